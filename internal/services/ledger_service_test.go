package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawnledger/internal/amqp"
	"lawnledger/internal/core"
	"lawnledger/internal/ledger"
	"lawnledger/internal/storage"
	"lawnledger/internal/voice"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
	return f.err
}

func (f *fakePublisher) types() []amqp.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]amqp.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T, withVoice bool) (*LedgerService, *fakePublisher) {
	t.Helper()
	l, err := ledger.Open(context.Background(), storage.NewMemoryStore(),
		ledger.WithClock(func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local) }))
	require.NoError(t, err)

	var parser *voice.Parser
	if withVoice {
		parser = voice.NewParser()
	}
	pub := &fakePublisher{}
	return NewLedgerService(l, parser, pub), pub
}

func TestSubmitForm(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)

	tx, err := svc.SubmitForm(ctx, FormInput{Description: " Mow Smith ", Amount: "45,50", Date: "2024-05-01", Client: "Smith"})
	require.NoError(t, err)

	assert.Equal(t, "Mow Smith", tx.Description)
	assert.Equal(t, int64(4550), tx.Amount.Cents)
	assert.Equal(t, core.Income, tx.Kind, "kind defaults to income")
	assert.Equal(t, "Smith", tx.Client)
	assert.Equal(t, []amqp.EventType{amqp.EventTransactionCreated}, pub.types())
	assert.Equal(t, tx.ID.String(), pub.events[0].TransactionID)
}

func TestSubmitFormRejectsIncompleteInput(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)

	tests := []struct {
		name string
		in   FormInput
		want error
	}{
		{"missing description", FormInput{Amount: "10", Date: "2024-05-01"}, core.ErrEmptyDescription},
		{"missing amount", FormInput{Description: "Gas", Date: "2024-05-01"}, core.ErrInvalidAmount},
		{"zero amount", FormInput{Description: "Gas", Amount: "0", Date: "2024-05-01"}, core.ErrInvalidAmount},
		{"missing date", FormInput{Description: "Gas", Amount: "10"}, core.ErrInvalidDate},
		{"bad kind", FormInput{Description: "Gas", Amount: "10", Date: "2024-05-01", Kind: "refund"}, core.ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitForm(ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, svc.Ledger().Transactions())
	assert.Empty(t, pub.types())
}

func TestSubmitFormSaveAsTemplate(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)

	in := FormInput{Description: "Weekly mow", Amount: "45", Date: "2024-05-01", Kind: "income", SaveAsTemplate: true}
	_, err := svc.SubmitForm(ctx, in)
	require.NoError(t, err)
	_, err = svc.SubmitForm(ctx, in)
	require.NoError(t, err)

	assert.Len(t, svc.Ledger().Transactions(), 2)
	assert.Len(t, svc.Ledger().Templates(), 1)
	assert.Equal(t, []amqp.EventType{
		amqp.EventTransactionCreated,
		amqp.EventTemplateAdded,
		amqp.EventTransactionCreated,
	}, pub.types())
}

func TestEditAndRemove(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)

	tx, err := svc.SubmitForm(ctx, FormInput{Description: "Gas", Amount: "10", Date: "2024-05-01", Kind: "expense"})
	require.NoError(t, err)

	edited, err := svc.EditForm(ctx, tx.ID, FormInput{Description: "Gas and oil", Amount: "12.5", Date: "2024-05-02", Kind: "expense"})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, edited.ID)
	assert.Equal(t, int64(1250), edited.Amount.Cents)

	_, err = svc.EditForm(ctx, "missing", FormInput{Description: "x", Amount: "1", Date: "2024-05-02"})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	_, err = svc.Remove(ctx, tx.ID)
	require.NoError(t, err)
	_, err = svc.Remove(ctx, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []amqp.EventType{
		amqp.EventTransactionCreated,
		amqp.EventTransactionUpdated,
		amqp.EventTransactionDeleted,
	}, pub.types())
}

func TestSubmitTranscript(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)

	tx, err := svc.SubmitTranscript(ctx, "earned 20 from lawn mowing")
	require.NoError(t, err)
	assert.Equal(t, "lawn mowing", tx.Description)
	assert.Equal(t, int64(2000), tx.Amount.Cents)
	assert.Equal(t, core.Income, tx.Kind)
	assert.Equal(t, "2024-05-20", tx.Date.String())

	_, err = svc.SubmitTranscript(ctx, "hello there")
	var perr *voice.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "hello there", perr.Transcript)
	assert.Len(t, svc.Ledger().Transactions(), 1, "failed parse changes nothing")
}

func TestSubmitTranscriptVoiceDisabled(t *testing.T) {
	svc, _ := newTestService(t, false)

	caps := svc.Capabilities()
	assert.False(t, caps.Voice)
	assert.NotEmpty(t, caps.Advisory)

	_, err := svc.SubmitTranscript(context.Background(), "earned 20 from lawn mowing")
	assert.ErrorIs(t, err, ErrVoiceUnavailable)
	assert.Empty(t, svc.Ledger().Transactions())
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)

	in := FormInput{Description: "Weekly mow", Amount: "45", Client: "Smith"}
	tp, added, err := svc.AddTemplate(ctx, in)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, core.Income, tp.Kind)

	_, added, err = svc.AddTemplate(ctx, in)
	require.NoError(t, err)
	assert.False(t, added)

	tx, err := svc.UseTemplate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", tx.Date.String())
	assert.Equal(t, "Smith", tx.Client)

	removed, err := svc.RemoveTemplate(ctx, in)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RemoveTemplate(ctx, in)
	require.NoError(t, err)
	assert.False(t, removed)

	_, _, err = svc.AddTemplate(ctx, FormInput{Amount: "45"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, []amqp.EventType{
		amqp.EventTemplateAdded,
		amqp.EventTransactionCreated,
		amqp.EventTemplateRemoved,
	}, pub.types())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, true)
	pub.err = errors.New("broker down")

	tx, err := svc.SubmitForm(ctx, FormInput{Description: "Mow", Amount: "45", Date: "2024-05-01"})
	require.NoError(t, err)

	_, err = svc.Ledger().Get(tx.ID)
	assert.NoError(t, err)
}

func TestNilPublisher(t *testing.T) {
	l, err := ledger.Open(context.Background(), storage.NewMemoryStore())
	require.NoError(t, err)
	svc := NewLedgerService(l, voice.NewParser(), nil)

	_, err = svc.SubmitForm(context.Background(), FormInput{Description: "Mow", Amount: "45", Date: "2024-05-01"})
	assert.NoError(t, err)
	assert.True(t, svc.Capabilities().Voice)
}
