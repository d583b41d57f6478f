package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TenderBucket groups payment methods for reconciliation.
type TenderBucket string

const (
	TenderBucketCash    TenderBucket = "cash"
	TenderBucketCard    TenderBucket = "card"
	TenderBucketDigital TenderBucket = "digital"
	TenderBucketOthers  TenderBucket = "others"
)

var digitalMarkers = []string{"upi", "wallet", "digital", "online"}

// TransactionSummary is a read-only view of a session transaction.
type TransactionSummary struct {
	ID            string
	PaymentMethod string
	Total         decimal.Decimal
	Status        string
}

// Refund is a read-only view of a session refund.
type Refund struct {
	ID     string
	Amount decimal.Decimal
}

// ClassifyPaymentMethod maps a payment method label to its bucket.
// Matching is a case-insensitive substring test and the first rule wins.
func ClassifyPaymentMethod(method string) TenderBucket {
	m := strings.ToLower(method)

	switch {
	case strings.Contains(m, "cash"):
		return TenderBucketCash
	case strings.Contains(m, "card"):
		return TenderBucketCard
	}

	for _, marker := range digitalMarkers {
		if strings.Contains(m, marker) {
			return TenderBucketDigital
		}
	}

	return TenderBucketOthers
}

// TenderTotals holds the summed transaction totals per bucket.
type TenderTotals struct {
	Cash    decimal.Decimal
	Card    decimal.Decimal
	Digital decimal.Decimal
	Others  decimal.Decimal
}

// Total returns the sum over all buckets.
func (t TenderTotals) Total() decimal.Decimal {
	return t.Cash.Add(t.Card).Add(t.Digital).Add(t.Others)
}

// NonCash returns the sum of every bucket except cash.
func (t TenderTotals) NonCash() decimal.Decimal {
	return t.Card.Add(t.Digital).Add(t.Others)
}

// ClassifyTransactions partitions transaction totals into tender buckets.
func ClassifyTransactions(txs []TransactionSummary) TenderTotals {
	totals := TenderTotals{
		Cash:    decimal.Zero,
		Card:    decimal.Zero,
		Digital: decimal.Zero,
		Others:  decimal.Zero,
	}

	for _, tx := range txs {
		switch ClassifyPaymentMethod(tx.PaymentMethod) {
		case TenderBucketCash:
			totals.Cash = totals.Cash.Add(tx.Total)
		case TenderBucketCard:
			totals.Card = totals.Card.Add(tx.Total)
		case TenderBucketDigital:
			totals.Digital = totals.Digital.Add(tx.Total)
		default:
			totals.Others = totals.Others.Add(tx.Total)
		}
	}

	return totals
}

// NonCashTransactions returns the transactions that need card/digital verification.
func NonCashTransactions(txs []TransactionSummary) []TransactionSummary {
	out := make([]TransactionSummary, 0, len(txs))
	for _, tx := range txs {
		if ClassifyPaymentMethod(tx.PaymentMethod) != TenderBucketCash {
			out = append(out, tx)
		}
	}
	return out
}

// TotalRefunded sums refund amounts.
func TotalRefunded(refunds []Refund) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}
	return total
}
