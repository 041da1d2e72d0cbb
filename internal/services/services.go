// Package services orchestrates ledger operations: access policy, storage
// transactions, cached directory lookups and event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// EventPublisher receives a notice after every committed mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

type options struct {
	events          EventPublisher
	now             func() time.Time
	pageSize        int
	defaultCurrency string
	cacheSize       int
	cacheTTL        time.Duration
}

type Option func(*options)

// WithEvents publishes ledger events through p.
func WithEvents(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPageSize sets the listing limit used when a filter has none.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithDefaultCurrency sets the currency of accounts created without one.
func WithDefaultCurrency(code string) Option {
	return func(o *options) { o.defaultCurrency = code }
}

// WithDirectoryCache sizes the per-organization directory cache.
func WithDirectoryCache(size int, ttl time.Duration) Option {
	return func(o *options) { o.cacheSize, o.cacheTTL = size, ttl }
}

// Ledger bundles the services sharing one repository.
type Ledger struct {
	Transactions *TransactionService
	Directory    *DirectoryService
	Budgets      *BudgetService
	Reports      *ReportService
	Export       *ExportService

	repo   *storage.SQLiteRepository
	events EventPublisher
}

func New(repo *storage.SQLiteRepository, opts ...Option) *Ledger {
	o := options{
		now:             time.Now,
		pageSize:        core.DefaultPageSize,
		defaultCurrency: "EUR",
		cacheSize:       128,
		cacheTTL:        5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	pub := &publisher{events: o.events, logger: log.ForComponent(log.ComponentAMQP)}
	dir := NewDirectoryService(repo, pub, o.now, o.defaultCurrency,
		cache.NewLRUCache[*Directory](o.cacheSize, o.cacheTTL).WithClock(o.now))
	txs := NewTransactionService(repo, pub, o.now, o.pageSize)
	budgets := NewBudgetService(repo, txs, pub, o.now)
	reports := NewReportService(txs, budgets, dir)

	return &Ledger{
		Transactions: txs,
		Directory:    dir,
		Budgets:      budgets,
		Reports:      reports,
		Export:       NewExportService(txs, dir),
		repo:         repo,
		events:       o.events,
	}
}

// Close closes both storage and the event publisher when it holds a connection.
func (l *Ledger) Close() error {
	var errs []error

	if l.repo != nil {
		if err := l.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := l.events.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %w", errors.Join(errs...))
	}
	return nil
}

// publisher sends events after commit. A failed publish is logged and never
// fails the operation that produced it.
type publisher struct {
	events EventPublisher
	logger *log.Logger
}

func (p *publisher) publish(ctx context.Context, actor core.Actor, action, entity string, id int64) {
	if p == nil || p.events == nil {
		return
	}
	ev := amqp.NewLedgerEvent(actor, action, entity, id)
	if err := p.events.PublishLedgerEvent(ctx, ev); err != nil {
		p.logger.WithFields(log.NewFields().WithEntity(entity, id).WithError(err)).
			WarnContext(ctx, "Failed to publish ledger event", log.FieldEventID, ev.ID)
	}
}

// actorFields are the log fields identifying who performed op.
func actorFields(actor core.Actor, op string) log.LogFields {
	return log.NewFields().
		WithActor(actor.OrganizationID, actor.UserID, string(actor.Role)).
		WithOperation(op)
}

// asReference turns a missing referenced entity into a validation failure
// on field: an id from another organization is indistinguishable from an
// unknown one.
func asReference(err error, field string) error {
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Invalid(field, "unknown %s %d", nf.Entity, nf.ID)
	}
	return err
}
