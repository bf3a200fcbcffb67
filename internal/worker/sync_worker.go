// Package worker mirrors ledger events into the spreadsheet.
package worker

import (
	"context"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/metrics"
	"finanzas/internal/ports"
	"finanzas/internal/sheets"
)

// SyncWorker applies ledger events to a TransactionMirror.
type SyncWorker struct {
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewSyncWorker(mirror sheets.TransactionMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleMessage is an amqp.Handler. Errors make the broker requeue the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerMessage) error {
	ev, err := msg.Event()
	if err != nil {
		// Malformed payloads never get better on retry.
		w.logger.ErrorContext(ctx, "Dropping undecodable ledger event",
			log.FieldEventType, msg.Type, log.FieldTransactionID, msg.Transaction.ID, log.FieldError, err)
		metrics.WorkerEvent(msg.Type, err)
		return nil
	}
	err = w.HandleEvent(ctx, ev)
	metrics.WorkerEvent(string(ev.Type), err)
	return err
}

// HandleEvent mirrors a single event.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev ports.LedgerEvent) error {
	fields := log.NewFields().
		WithEvent(string(ev.Type), ev.Version).
		WithOwner(ev.Transaction.OwnerID)
	fields[log.FieldTransactionID] = ev.Transaction.ID

	switch ev.Type {
	case ports.EventTransactionCreated, ports.EventTransactionUpdated:
		applied, err := w.mirror.Upsert(ctx, sheets.RowFromTransaction(ev.Transaction, ev.Version))
		if err != nil {
			return fmt.Errorf("mirror transaction %s: %w", ev.Transaction.ID, err)
		}
		if !applied {
			w.logger.DebugContext(ctx, "Sheet already has this version", fields.ToSlice()...)
			return nil
		}
	case ports.EventTransactionDeleted:
		applied, err := w.mirror.Delete(ctx, ev.Transaction.ID, ev.Version)
		if err != nil {
			return fmt.Errorf("remove transaction %s: %w", ev.Transaction.ID, err)
		}
		if !applied {
			w.logger.DebugContext(ctx, "Sheet already has this deletion", fields.ToSlice()...)
			return nil
		}
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", fields.ToSlice()...)
		return nil
	}
	w.logger.InfoContext(ctx, "Mirrored ledger event", fields.ToSlice()...)
	return nil
}

// BackfillResult counts what a backfill wrote.
type BackfillResult struct {
	Scanned int
	Written int
}

// Backfill mirrors every transaction the owner has, using each record's
// UpdatedAt as its version so newer event-driven rows are never overwritten.
func (w *SyncWorker) Backfill(ctx context.Context, txs ports.TransactionStore, ownerID string) (BackfillResult, error) {
	list, err := txs.ListTransactions(ctx, ownerID, core.Filter{})
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list transactions: %w", err)
	}
	var res BackfillResult
	for _, t := range list {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		applied, err := w.mirror.Upsert(ctx, sheets.RowFromTransaction(t, t.UpdatedAt.UnixNano()))
		if err != nil {
			return res, fmt.Errorf("mirror transaction %s: %w", t.ID, err)
		}
		if applied {
			res.Written++
		}
	}
	w.logger.InfoContext(ctx, "Backfill completed",
		log.FieldOwnerID, ownerID, "scanned", res.Scanned, "written", res.Written)
	return res, nil
}
