// Package render draws settlement views for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iho/tillclose/internal/adapter/http/dto"
)

// StatusCards renders the status cards side by side, followed by the
// completion verdict.
func StatusCards(status dto.StatusResponse) string {
	s := newStyles()

	lines := []string{
		s.title.Render("Settlement " + status.SessionID),
		s.header.Render("policy: " + status.Policy),
	}

	if len(status.Cards) == 0 {
		lines = append(lines, s.empty.Render("No status available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	cards := make([]string, len(status.Cards))
	for i, c := range status.Cards {
		cards[i] = renderCard(c, s)
	}
	lines = append(lines, s.section.Render(lipgloss.JoinHorizontal(lipgloss.Top, cards...)))

	verdict := s.tone("warning").Render("cannot complete yet")
	if status.CanComplete {
		verdict = s.tone("success").Render("ready to complete")
	}
	lines = append(lines, s.section.Render(verdict))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCard(c dto.StatusCardResponse, s styles) string {
	tone := s.tone(c.Severity)
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		s.label.Render(c.Title),
		tone.Bold(true).Render(c.ShortValue),
		s.detail.Render(c.DetailText),
	)
	return s.card.BorderForeground(tone.GetForeground()).Render(body)
}

// Settlement renders the amounts, counted denominations and adjustments of
// a settlement.
func Settlement(st dto.SettlementResponse) string {
	s := newStyles()

	lines := []string{
		s.title.Render(fmt.Sprintf("Settlement %s (%s)", st.SessionID, st.Status)),
		kv(s, "opening balance", st.OpeningBalance.StringFixed(2)),
		kv(s, "expected cash", st.ExpectedCash.StringFixed(2)),
		kv(s, "actual cash", st.ActualCash.StringFixed(2)),
		kv(s, "difference", fmt.Sprintf("%s (%s)", st.Difference.StringFixed(2), st.Variance)),
	}
	if st.Notes != "" {
		lines = append(lines, kv(s, "notes", st.Notes))
	}
	if st.CompletedBy != "" {
		lines = append(lines, kv(s, "completed by", st.CompletedBy))
	}

	counted := []string{s.header.Render("denominations")}
	for _, d := range st.Denominations {
		if d.Count == 0 {
			continue
		}
		counted = append(counted, s.detail.Render(fmt.Sprintf("%8s x %-4d = %s", d.Label, d.Count, d.Amount.StringFixed(2))))
	}
	if len(counted) == 1 {
		counted = append(counted, s.empty.Render("nothing counted"))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, counted...)))

	adjustments := []string{s.header.Render("adjustments")}
	for _, a := range st.Adjustments {
		sign := "+"
		if a.Type == "subtract" {
			sign = "-"
		}
		adjustments = append(adjustments, s.detail.Render(fmt.Sprintf("%s %s%s  %s", a.ID, sign, a.Amount.StringFixed(2), a.Reason)))
	}
	if len(adjustments) == 1 {
		adjustments = append(adjustments, s.empty.Render("none"))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, adjustments...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Tenders renders the tender bucket totals and the non-cash transactions.
func Tenders(t dto.TenderSummaryResponse) string {
	s := newStyles()

	lines := []string{
		s.title.Render("Tenders " + t.SessionID),
		kv(s, "cash", t.Cash.StringFixed(2)),
		kv(s, "card", t.Card.StringFixed(2)),
		kv(s, "digital", t.Digital.StringFixed(2)),
		kv(s, "others", t.Others.StringFixed(2)),
		kv(s, "total", t.Total.StringFixed(2)),
		kv(s, "refunded", t.Refunded.StringFixed(2)),
	}

	rows := []string{s.header.Render("non-cash transactions")}
	for _, tx := range t.NonCash {
		rows = append(rows, s.detail.Render(fmt.Sprintf("%-12s %-14s %10s", tx.ID, tx.PaymentMethod, tx.Total.StringFixed(2))))
	}
	if len(rows) == 1 {
		rows = append(rows, s.empty.Render("none"))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// History renders one line per completed settlement.
func History(list dto.ListSettlementsResponse) string {
	s := newStyles()

	lines := []string{s.title.Render("Completed settlements"), s.header.Render(fmt.Sprintf("count: %d", list.Total))}
	for _, st := range list.Settlements {
		ended := ""
		if st.EndTime != nil {
			ended = st.EndTime.Format("2006-01-02 15:04")
		}
		lines = append(lines, s.detail.Render(strings.TrimSpace(fmt.Sprintf("%-16s %-16s %10s %-8s %s",
			st.SessionID, ended, st.Difference.StringFixed(2), st.Variance, st.CompletedBy))))
	}
	if len(list.Settlements) == 0 {
		lines = append(lines, s.empty.Render("No completed settlements."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func kv(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(fmt.Sprintf("%-16s", key+":")), s.value.Render(value))
}
