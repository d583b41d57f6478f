package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
)

// DraftStore implements usecase.DraftStore using Redis. Each open settlement
// is stored as one JSON document under draft:<sessionID>.
type DraftStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDraftStore creates a new DraftStore. Drafts expire after ttl; zero
// keeps them until the settlement completes.
func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{
		client: client,
		prefix: "draft:",
		ttl:    ttl,
	}
}

// Save stores the settlement snapshot, replacing any previous draft.
func (s *DraftStore) Save(ctx context.Context, settlement domain.Settlement) error {
	data, err := json.Marshal(toDraft(settlement))
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.client.Set(ctx, s.prefix+settlement.SessionID, data, s.ttl).Err()
}

// Load returns the draft of a session, or domain.ErrSettlementNotFound.
func (s *DraftStore) Load(ctx context.Context, sessionID string) (*domain.Settlement, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}

	var d draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}

	settlement := d.toSettlement()
	return &settlement, nil
}

// Delete removes the draft of a session.
func (s *DraftStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}

type draft struct {
	ID             string              `json:"id"`
	SessionID      string              `json:"session_id"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	ExpectedCash   decimal.Decimal     `json:"expected_cash"`
	Denominations  []draftDenomination `json:"denominations"`
	Adjustments    []draftAdjustment   `json:"adjustments"`
	Transactions   []draftTransaction  `json:"transactions"`
	Refunds        []draftRefund       `json:"refunds"`
	Notes          string              `json:"notes"`
	Status         string              `json:"status"`
	StartTime      time.Time           `json:"start_time"`
}

type draftDenomination struct {
	Label     string          `json:"label"`
	FaceValue decimal.Decimal `json:"face_value"`
	Count     int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

type draftAdjustment struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

type draftTransaction struct {
	ID            string          `json:"id"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
}

type draftRefund struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

func toDraft(s domain.Settlement) draft {
	d := draft{
		ID:             s.ID,
		SessionID:      s.SessionID,
		OpeningBalance: s.OpeningBalance,
		ExpectedCash:   s.ExpectedCash,
		Denominations:  make([]draftDenomination, len(s.Denominations)),
		Adjustments:    make([]draftAdjustment, len(s.Adjustments)),
		Transactions:   make([]draftTransaction, len(s.Transactions)),
		Refunds:        make([]draftRefund, len(s.Refunds)),
		Notes:          s.Notes,
		Status:         string(s.Status),
		StartTime:      s.StartTime,
	}
	for i, c := range s.Denominations {
		d.Denominations[i] = draftDenomination{Label: c.Label, FaceValue: c.FaceValue, Count: c.Count, Amount: c.Amount}
	}
	for i, a := range s.Adjustments {
		d.Adjustments[i] = draftAdjustment{ID: a.ID, Type: string(a.Type), Amount: a.Amount, Reason: a.Reason, Timestamp: a.Timestamp}
	}
	for i, t := range s.Transactions {
		d.Transactions[i] = draftTransaction{ID: t.ID, PaymentMethod: t.PaymentMethod, Total: t.Total, Status: t.Status}
	}
	for i, r := range s.Refunds {
		d.Refunds[i] = draftRefund{ID: r.ID, Amount: r.Amount}
	}
	return d
}

func (d draft) toSettlement() domain.Settlement {
	s := domain.Settlement{
		ID:             d.ID,
		SessionID:      d.SessionID,
		OpeningBalance: d.OpeningBalance,
		ExpectedCash:   d.ExpectedCash,
		Denominations:  make([]domain.DenominationCount, len(d.Denominations)),
		Adjustments:    make([]domain.Adjustment, len(d.Adjustments)),
		Transactions:   make([]domain.TransactionSummary, len(d.Transactions)),
		Refunds:        make([]domain.Refund, len(d.Refunds)),
		Notes:          d.Notes,
		Status:         domain.SettlementStatus(d.Status),
		StartTime:      d.StartTime,
	}
	for i, c := range d.Denominations {
		s.Denominations[i] = domain.DenominationCount{Label: c.Label, FaceValue: c.FaceValue, Count: c.Count, Amount: c.Amount}
	}
	for i, a := range d.Adjustments {
		s.Adjustments[i] = domain.Adjustment{ID: a.ID, Type: domain.AdjustmentType(a.Type), Amount: a.Amount, Reason: a.Reason, Timestamp: a.Timestamp}
	}
	for i, t := range d.Transactions {
		s.Transactions[i] = domain.TransactionSummary{ID: t.ID, PaymentMethod: t.PaymentMethod, Total: t.Total, Status: t.Status}
	}
	for i, r := range d.Refunds {
		s.Refunds[i] = domain.Refund{ID: r.ID, Amount: r.Amount}
	}
	return s
}
