package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lawnledger/internal/amqp"
	"lawnledger/internal/core"
	"lawnledger/internal/ledger"
	applog "lawnledger/internal/log"
	"lawnledger/internal/voice"
)

var (
	// ErrValidation wraps every rejected form submission.
	ErrValidation = errors.New("validation failed")
	// ErrVoiceUnavailable is returned when voice capture is switched off.
	ErrVoiceUnavailable = errors.New("voice input unavailable")
)

const voiceAdvisory = "Voice input is not available here. Use the form instead."

// EventPublisher delivers ledger change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error
}

// FormInput is a form submission as typed by the user. Every field is raw text.
type FormInput struct {
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Date           string `json:"date"`
	Kind           string `json:"type"`
	Client         string `json:"client"`
	SaveAsTemplate bool   `json:"save_as_template"`
}

// Capabilities tells the rendering layer which capture surfaces work.
type Capabilities struct {
	Voice    bool   `json:"voice"`
	Advisory string `json:"advisory,omitempty"`
}

// LedgerService orchestrates the capture surfaces: it validates input,
// applies it to the ledger and announces the change.
type LedgerService struct {
	ledger    *ledger.Ledger
	parser    *voice.Parser
	publisher EventPublisher
	voice     bool
}

// NewLedgerService wires the service. parser may be nil to disable voice
// capture; publisher may be nil to skip change events.
func NewLedgerService(l *ledger.Ledger, parser *voice.Parser, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		ledger:    l,
		parser:    parser,
		publisher: publisher,
		voice:     parser != nil,
	}
}

func (s *LedgerService) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *LedgerService) Capabilities() Capabilities {
	if s.voice {
		return Capabilities{Voice: true}
	}
	return Capabilities{Voice: false, Advisory: voiceAdvisory}
}

// SubmitForm records a new transaction. Description, amount and date are
// required; an empty kind means income.
func (s *LedgerService) SubmitForm(ctx context.Context, in FormInput) (core.Transaction, error) {
	d, err := in.draft()
	if err != nil {
		return core.Transaction{}, err
	}

	tx, err := s.ledger.Add(ctx, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	s.changed(ctx, amqp.EventTransactionCreated, applog.OpCreate, tx)

	if in.SaveAsTemplate {
		if _, _, err := s.AddTemplate(ctx, in); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Transaction saved but template was rejected",
				applog.FieldTransactionID, tx.ID.String(),
				applog.FieldError, err)
		}
	}

	return tx, nil
}

// EditForm replaces the editable fields of transaction id.
func (s *LedgerService) EditForm(ctx context.Context, id core.ID, in FormInput) (core.Transaction, error) {
	d, err := in.draft()
	if err != nil {
		return core.Transaction{}, err
	}

	tx, err := s.ledger.Edit(ctx, id, d)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	s.changed(ctx, amqp.EventTransactionUpdated, applog.OpUpdate, tx)
	return tx, nil
}

func (s *LedgerService) Remove(ctx context.Context, id core.ID) (core.Transaction, error) {
	tx, err := s.ledger.Remove(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, amqp.EventTransactionDeleted, applog.OpDelete, tx)
	return tx, nil
}

// SubmitTranscript parses a spoken sentence and records it dated today. On a
// parse failure the returned error is a *voice.ParseError and nothing is
// recorded.
func (s *LedgerService) SubmitTranscript(ctx context.Context, transcript string) (core.Transaction, error) {
	if !s.voice {
		return core.Transaction{}, ErrVoiceUnavailable
	}

	p, err := s.parser.Parse(transcript)
	if err != nil {
		applog.FromContext(ctx).InfoContext(ctx, "Transcript not recognized",
			applog.FieldOperation, applog.OpParse,
			applog.FieldTranscript, transcript)
		return core.Transaction{}, err
	}

	tx, err := s.ledger.Add(ctx, core.Draft{
		Description: p.Description,
		Amount:      p.Amount,
		Date:        s.ledger.Today(),
		Kind:        p.Kind,
	})
	if err != nil {
		// Parsed but unusable, e.g. an overlong description
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	s.changed(ctx, amqp.EventTransactionCreated, applog.OpCreate, tx)
	return tx, nil
}

// AddTemplate stores the template described by in. added is false for a
// duplicate.
func (s *LedgerService) AddTemplate(ctx context.Context, in FormInput) (tp core.Template, added bool, err error) {
	tp, err = in.template()
	if err != nil {
		return core.Template{}, false, err
	}
	added, err = s.ledger.AddTemplate(ctx, tp)
	if err != nil {
		return core.Template{}, false, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if added {
		s.publish(ctx, amqp.NewTemplateEvent(amqp.EventTemplateAdded, tp, s.ledger.Version()))
	}
	return tp, added, nil
}

// RemoveTemplate deletes the template matching in's description, amount and
// kind. It reports whether one was removed.
func (s *LedgerService) RemoveTemplate(ctx context.Context, in FormInput) (bool, error) {
	tp, err := in.template()
	if err != nil {
		return false, err
	}
	removed := s.ledger.RemoveTemplate(ctx, tp.Key())
	if removed {
		s.publish(ctx, amqp.NewTemplateEvent(amqp.EventTemplateRemoved, tp, s.ledger.Version()))
	}
	return removed, nil
}

// UseTemplate records a transaction copied from the template, dated today.
func (s *LedgerService) UseTemplate(ctx context.Context, in FormInput) (core.Transaction, error) {
	tp, err := in.template()
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.ledger.UseTemplate(ctx, tp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	s.changed(ctx, amqp.EventTransactionCreated, applog.OpCreate, tx)
	return tx, nil
}

func (s *LedgerService) changed(ctx context.Context, t amqp.EventType, op string, tx core.Transaction) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionChanged(ctx, op,
		tx.ID.String(), tx.Description, tx.Amount.Cents, tx.Kind.String(), tx.Date.String())
	s.publish(ctx, amqp.NewTransactionEvent(t, tx, s.ledger.Version()))
}

// publish never fails the caller; the ledger is already updated.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventType, string(msg.Type),
			applog.FieldTransactionID, msg.TransactionID,
			applog.FieldError, err)
	}
}

func (in FormInput) kind() (core.Kind, error) {
	if strings.TrimSpace(in.Kind) == "" {
		return core.Income, nil
	}
	return core.ParseKind(in.Kind)
}

func (in FormInput) draft() (core.Draft, error) {
	var problems []error

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		problems = append(problems, core.ErrEmptyDescription)
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		problems = append(problems, err)
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		problems = append(problems, err)
	}
	kind, err := in.kind()
	if err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return core.Draft{}, fmt.Errorf("%w: %w", ErrValidation, errors.Join(problems...))
	}

	return core.Draft{
		Description: desc,
		Amount:      amount,
		Date:        date,
		Kind:        kind,
		Client:      strings.TrimSpace(in.Client),
	}, nil
}

func (in FormInput) template() (core.Template, error) {
	var problems []error

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		problems = append(problems, core.ErrEmptyDescription)
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		problems = append(problems, err)
	}
	kind, err := in.kind()
	if err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return core.Template{}, fmt.Errorf("%w: %w", ErrValidation, errors.Join(problems...))
	}

	return core.Template{
		Description: desc,
		Amount:      amount,
		Kind:        kind,
		Client:      strings.TrimSpace(in.Client),
	}, nil
}
