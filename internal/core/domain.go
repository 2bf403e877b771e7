package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind classifies a transaction as money in or money out.
	Kind string

	// ID identifies a transaction. It is assigned once and never changes.
	ID string

	Transaction struct {
		ID          ID     `json:"id"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Date        Date   `json:"date"`
		Kind        Kind   `json:"type"`
		Client      string `json:"client,omitempty"`
	}

	// Draft holds the editable fields of a transaction.
	Draft struct {
		Description string
		Amount      Money
		Date        Date
		Kind        Kind
		Client      string
	}

	// Template is a reusable partial transaction without id and date.
	Template struct {
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Kind        Kind   `json:"type"`
		Client      string `json:"client,omitempty"`
	}

	// TemplateKey is the identity of a template.
	TemplateKey struct {
		Description string
		Amount      Money
		Kind        Kind
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrEmptyID            = errors.New("empty id")
	ErrNotFound           = errors.New("not found")
)

const maxDescriptionLen = 200

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Sign is +1 for income and -1 for expense.
func (k Kind) Sign() int64 {
	if k == Expense {
		return -1
	}
	return 1
}

func (k Kind) String() string {
	return string(k)
}

func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both string ids and the numeric ids written by
// older clients.
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (d Draft) Validate() error {
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if !d.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.ValidateStored(); err != nil {
		return err
	}
	return t.Date.Validate()
}

// ValidateStored checks every field except the date. Stored entries may
// carry an unparsable legacy date, which is kept but never falls in a range.
func (t Transaction) ValidateStored() error {
	if strings.TrimSpace(string(t.ID)) == "" {
		return ErrEmptyID
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Draft returns the editable fields of t.
func (t Transaction) Draft() Draft {
	return Draft{
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		Kind:        t.Kind,
		Client:      t.Client,
	}
}

// Apply replaces every editable field of t with the draft's values.
func (t Transaction) Apply(d Draft) Transaction {
	t.Description = strings.TrimSpace(d.Description)
	t.Amount = d.Amount
	t.Date = d.Date
	t.Kind = d.Kind
	t.Client = strings.TrimSpace(d.Client)
	return t
}

// Signed returns the amount with the sign of the transaction kind.
func (t Transaction) Signed() Money {
	return Money{Cents: t.Amount.Cents * t.Kind.Sign()}
}

func (tp Template) Validate() error {
	if err := validateDescription(tp.Description); err != nil {
		return err
	}
	if err := tp.Amount.Validate(); err != nil {
		return err
	}
	if !tp.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (tp Template) Key() TemplateKey {
	return TemplateKey{Description: tp.Description, Amount: tp.Amount, Kind: tp.Kind}
}

// Draft prefills a draft dated on the given day.
func (tp Template) Draft(on Date) Draft {
	return Draft{
		Description: tp.Description,
		Amount:      tp.Amount,
		Date:        on,
		Kind:        tp.Kind,
		Client:      tp.Client,
	}
}

// TemplateFrom builds the template matching a transaction's reusable fields.
func TemplateFrom(d Draft) Template {
	return Template{
		Description: strings.TrimSpace(d.Description),
		Amount:      d.Amount,
		Kind:        d.Kind,
		Client:      strings.TrimSpace(d.Client),
	}
}
