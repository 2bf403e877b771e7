package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lawnledger/internal/amqp"
	"lawnledger/internal/storage"
)

// EventRecorder is the storage the audit worker writes to.
// *storage.SQLiteStore implements it.
type EventRecorder interface {
	AppendEvent(ctx context.Context, e storage.EventRecord) (int64, error)
}

// AuditWorker copies consumed ledger events into the audit log.
type AuditWorker struct {
	recorder EventRecorder
}

func NewAuditWorker(recorder EventRecorder) *AuditWorker {
	return &AuditWorker{recorder: recorder}
}

// HandleLedgerEvent records one event. An error makes the consumer requeue
// the message.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", msg.Type,
		"transaction_id", msg.TransactionID,
		"version", msg.Version)

	_, err := w.recorder.AppendEvent(ctx, storage.EventRecord{
		Type:          string(msg.Type),
		TransactionID: msg.TransactionID,
		Kind:          msg.Kind,
		AmountCents:   msg.AmountCents,
		Day:           msg.Date,
		Description:   msg.Description,
		OccurredAt:    msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record %s event: %w", msg.Type, err)
	}
	return nil
}
