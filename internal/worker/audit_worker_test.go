package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

type fakeStore struct {
	rows map[string]core.AuditLog
	err  error
}

func (f *fakeStore) InsertAuditLog(_ context.Context, l core.AuditLog) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.rows[l.EventID]; ok {
		return false, nil
	}
	f.rows[l.EventID] = l
	return true, nil
}

func event() *amqp.LedgerEvent {
	actor := core.Actor{OrganizationID: 1, UserID: 2, Role: core.RoleAdmin}
	return amqp.NewLedgerEvent(actor, amqp.ActionCreated, "transaction", 9)
}

func TestAuditWorker_RecordsOnce(t *testing.T) {
	store := &fakeStore{rows: map[string]core.AuditLog{}}
	w := NewAuditWorker(store)
	ev := event()

	require.NoError(t, w.HandleLedgerEvent(context.Background(), ev))
	require.NoError(t, w.HandleLedgerEvent(context.Background(), ev))

	require.Len(t, store.rows, 1)
	row := store.rows[ev.ID]
	assert.Equal(t, int64(1), row.OrganizationID)
	assert.Equal(t, int64(2), row.UserID)
	assert.Equal(t, "transaction", row.Entity)
	assert.Equal(t, int64(9), row.EntityID)
	assert.Equal(t, amqp.ActionCreated, row.Action)
}

func TestAuditWorker_DropsRejectedEvents(t *testing.T) {
	store := &fakeStore{err: core.Conflict("record references a missing record")}
	w := NewAuditWorker(store)

	assert.NoError(t, w.HandleLedgerEvent(context.Background(), event()))
}

func TestAuditWorker_RetriesTransientFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	w := NewAuditWorker(store)

	err := w.HandleLedgerEvent(context.Background(), event())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}
