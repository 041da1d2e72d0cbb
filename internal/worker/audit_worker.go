package worker

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

// AuditStore persists audit rows; inserting an already recorded event id
// is a no-op reporting false.
type AuditStore interface {
	InsertAuditLog(ctx context.Context, l core.AuditLog) (bool, error)
}

// AuditWorker turns ledger events into audit log rows.
type AuditWorker struct {
	store  AuditStore
	logger *log.Logger
}

func NewAuditWorker(store AuditStore) *AuditWorker {
	return &AuditWorker{
		store:  store,
		logger: log.ForComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent records one event. Redeliveries are ignored. An event
// the database rejects outright is dropped; any other failure is returned
// so the message is requeued.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	written, err := w.store.InsertAuditLog(ctx, ev.AuditLog())
	switch {
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrValidation):
		w.logger.WarnContext(ctx, "Dropping ledger event rejected by storage",
			log.FieldEventID, ev.ID,
			log.FieldOrganization, ev.OrganizationID,
			log.FieldError, err)
		return nil
	case err != nil:
		return fmt.Errorf("record audit log: %w", err)
	}

	if !written {
		w.logger.DebugContext(ctx, "Ledger event already recorded", log.FieldEventID, ev.ID)
		return nil
	}
	w.logger.InfoContext(ctx, "Recorded ledger event",
		log.FieldEventID, ev.ID,
		log.FieldOrganization, ev.OrganizationID,
		log.FieldEntity, ev.Entity,
		log.FieldEntityID, ev.EntityID,
		log.FieldOperation, ev.Action)
	return nil
}
