package domain

import (
	"fmt"
	"time"
)

// Severity is the display tone of a status card.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityNeutral Severity = "neutral"
)

// StatusCardKind identifies one of the four settlement summaries.
type StatusCardKind string

const (
	StatusCardCashCount          StatusCardKind = "cash_count"
	StatusCardCardReconciliation StatusCardKind = "card_reconciliation"
	StatusCardAdjustments        StatusCardKind = "adjustments"
	StatusCardSettlementStatus   StatusCardKind = "settlement_status"
)

// StatusCard is a derived, display-ready summary of one settlement aspect.
type StatusCard struct {
	Kind       StatusCardKind
	Title      string
	Severity   Severity
	ShortValue string
	DetailText string
}

const amountPlaces = 2

// StatusCards projects a settlement onto its four status summaries. The
// result depends only on s.
func StatusCards(s Settlement) []StatusCard {
	return []StatusCard{
		cashCountCard(s),
		cardReconciliationCard(s),
		adjustmentsCard(s),
		settlementStatusCard(s),
	}
}

func cashCountCard(s Settlement) StatusCard {
	actual := s.ActualCash()
	card := StatusCard{
		Kind:       StatusCardCashCount,
		Title:      "Cash Count",
		ShortValue: actual.StringFixed(amountPlaces),
	}

	if actual.IsPositive() {
		card.Severity = SeveritySuccess
		card.DetailText = fmt.Sprintf("Counted %s in cash", actual.StringFixed(amountPlaces))
	} else {
		card.Severity = SeverityWarning
		card.DetailText = "Cash not yet counted"
	}

	return card
}

func cardReconciliationCard(s Settlement) StatusCard {
	nonCash := NonCashTransactions(s.Transactions)
	total := s.Tenders().NonCash()

	card := StatusCard{
		Kind:       StatusCardCardReconciliation,
		Title:      "Card Reconciliation",
		Severity:   SeverityNeutral,
		ShortValue: total.StringFixed(amountPlaces),
		DetailText: fmt.Sprintf("%d non-cash %s awaiting verification", len(nonCash), plural(len(nonCash), "transaction", "transactions")),
	}
	if total.IsPositive() {
		card.Severity = SeverityInfo
	}

	return card
}

func adjustmentsCard(s Settlement) StatusCard {
	n := len(s.Adjustments)
	card := StatusCard{
		Kind:       StatusCardAdjustments,
		Title:      "Adjustments",
		Severity:   SeverityNeutral,
		ShortValue: fmt.Sprintf("%d", n),
		DetailText: "No adjustments recorded",
	}

	if n > 0 {
		card.Severity = SeverityWarning
		card.DetailText = fmt.Sprintf("%d %s, net impact %s", n, plural(n, "adjustment", "adjustments"), s.NetAdjustment().StringFixed(amountPlaces))
	}

	return card
}

func settlementStatusCard(s Settlement) StatusCard {
	card := StatusCard{
		Kind:  StatusCardSettlementStatus,
		Title: "Settlement Status",
	}

	switch s.Status {
	case SettlementStatusCompleted:
		card.Severity = SeveritySuccess
		card.ShortValue = "Completed"
		card.DetailText = "Completed"
		if s.EndTime != nil {
			card.DetailText = "Completed at " + s.EndTime.UTC().Format(time.RFC3339)
		}
	default:
		card.ShortValue = "Pending"
		diff := s.Difference()
		if !diff.IsZero() {
			card.Severity = SeverityWarning
			card.DetailText = fmt.Sprintf("Variance of %s (%s)", diff.Abs().StringFixed(amountPlaces), s.Variance())
		} else {
			card.Severity = SeverityInfo
			card.DetailText = "Ready for completion"
		}
	}

	return card
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
