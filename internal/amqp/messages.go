package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// EventType is the routing meaning of a LedgerEvent.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

// TransactionPayload carries a transaction with its amount as a decimal
// string, so consumers never see a float.
type TransactionPayload struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// LedgerEvent announces a committed transaction change. ID is unique per
// event and lets consumers drop redeliveries.
type LedgerEvent struct {
	ID          string             `json:"id"`
	Type        EventType          `json:"type"`
	Transaction TransactionPayload `json:"transaction"`
	Timestamp   time.Time          `json:"timestamp"`
}

// NewLedgerEvent creates an event for t with a fresh ID.
func NewLedgerEvent(typ EventType, t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		ID:   uuid.NewString(),
		Type: typ,
		Transaction: TransactionPayload{
			ID:          t.ID,
			Amount:      t.Amount.StringFixed(2),
			Kind:        string(t.Kind),
			Category:    string(t.Category),
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		},
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}

// ToTransaction converts the payload back into a domain transaction.
func (p TransactionPayload) ToTransaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", p.Amount, err)
	}
	return core.Transaction{
		ID:          p.ID,
		Amount:      amount,
		Kind:        core.Kind(p.Kind),
		Category:    core.Category(p.Category),
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}, nil
}

// ReportMessage is a rendered report ready for delivery.
type ReportMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Period    string    `json:"period"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportMessage(kind, period, text string) *ReportMessage {
	return &ReportMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Period:    period,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var m ReportMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
