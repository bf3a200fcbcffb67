package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ports"

	"github.com/shopspring/decimal"
)

// TransactionPayload is the wire form of a transaction snapshot. Amounts
// travel as decimal strings and dates as RFC 3339.
type TransactionPayload struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Kind             string    `json:"kind"`
	Amount           string    `json:"amount"`
	Description      string    `json:"description"`
	Category         string    `json:"category,omitempty"`
	Date             time.Time `json:"date"`
	Account          string    `json:"account"`
	IsOpeningBalance bool      `json:"is_opening_balance,omitempty"`
}

// LedgerMessage is the body published for every transaction change.
type LedgerMessage struct {
	Type        string             `json:"type"`
	Version     int64              `json:"version"`
	Timestamp   time.Time          `json:"timestamp"`
	Transaction TransactionPayload `json:"transaction"`
}

func NewLedgerMessage(ev ports.LedgerEvent) *LedgerMessage {
	t := ev.Transaction
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerMessage{
		Type:      string(ev.Type),
		Version:   ev.Version,
		Timestamp: ts.UTC(),
		Transaction: TransactionPayload{
			ID:               t.ID,
			OwnerID:          t.OwnerID,
			Kind:             string(t.Kind),
			Amount:           t.Amount.String(),
			Description:      t.Description,
			Category:         t.Category,
			Date:             t.Date.UTC(),
			Account:          t.AccountRef(),
			IsOpeningBalance: t.IsOpeningBalance,
		},
	}
}

func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("message has no transaction id")
	}
	switch ports.EventType(msg.Type) {
	case ports.EventTransactionCreated, ports.EventTransactionUpdated, ports.EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}

// Event converts the message back into a ledger event.
func (m *LedgerMessage) Event() (ports.LedgerEvent, error) {
	amount, err := decimal.NewFromString(m.Transaction.Amount)
	if err != nil {
		return ports.LedgerEvent{}, fmt.Errorf("parse amount %q: %w", m.Transaction.Amount, err)
	}
	return ports.LedgerEvent{
		Type:    ports.EventType(m.Type),
		Version: m.Version,
		Transaction: core.Transaction{
			ID:               m.Transaction.ID,
			OwnerID:          m.Transaction.OwnerID,
			Kind:             core.TransactionKind(m.Transaction.Kind),
			Amount:           amount,
			Description:      m.Transaction.Description,
			Category:         m.Transaction.Category,
			Date:             m.Transaction.Date,
			AccountID:        core.NormalizeAccountRef(m.Transaction.Account),
			IsOpeningBalance: m.Transaction.IsOpeningBalance,
		},
		OccurredAt: m.Timestamp,
	}, nil
}
