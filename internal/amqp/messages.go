package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lawnledger/internal/core"
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventTemplateAdded      EventType = "template.added"
	EventTemplateRemoved    EventType = "template.removed"
)

func (t EventType) valid() bool {
	switch t {
	case EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted,
		EventTemplateAdded, EventTemplateRemoved:
		return true
	}
	return false
}

// LedgerEvent is a self-contained description of one ledger change. The
// worker records it as is; it never reads the ledger back.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Date          string    `json:"date,omitempty"`
	Version       uint64    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent describes a change to tx at ledger version v.
func NewTransactionEvent(t EventType, tx core.Transaction, v uint64) *LedgerEvent {
	return &LedgerEvent{
		Type:          t,
		TransactionID: tx.ID.String(),
		Description:   tx.Description,
		AmountCents:   tx.Amount.Cents,
		Kind:          tx.Kind.String(),
		Date:          tx.Date.String(),
		Version:       v,
		Timestamp:     time.Now(),
	}
}

// NewTemplateEvent describes a change to the template collection.
func NewTemplateEvent(t EventType, tp core.Template, v uint64) *LedgerEvent {
	return &LedgerEvent{
		Type:        t,
		Description: tp.Description,
		AmountCents: tp.Amount.Cents,
		Kind:        tp.Kind.String(),
		Version:     v,
		Timestamp:   time.Now(),
	}
}

// Validate checks the fields the audit log relies on.
func (m *LedgerEvent) Validate() error {
	if !m.Type.valid() {
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.Timestamp.IsZero() {
		return errors.New("missing timestamp")
	}
	switch m.Type {
	case EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted:
		if m.TransactionID == "" {
			return errors.New("missing transaction id")
		}
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
