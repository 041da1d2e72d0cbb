package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/policy"
	"ledger/internal/storage"
)

const entityTransaction = "transaction"

// TransactionService is the transaction store: every write validates its
// references and sign convention inside the same SQL transaction.
type TransactionService struct {
	repo     *storage.SQLiteRepository
	events   *publisher
	now      func() time.Time
	pageSize int
	logger   *log.Logger
}

func NewTransactionService(repo *storage.SQLiteRepository, events *publisher, now func() time.Time, pageSize int) *TransactionService {
	if pageSize <= 0 || pageSize > core.MaxPageSize {
		pageSize = core.DefaultPageSize
	}
	return &TransactionService{
		repo:     repo,
		events:   events,
		now:      now,
		pageSize: pageSize,
		logger:   log.ForComponent(log.ComponentLedger),
	}
}

func (s *TransactionService) Create(ctx context.Context, actor core.Actor, draft core.TransactionDraft) (core.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := policy.Check(actor, core.CreateTransaction, actor.UserID); err != nil {
		return core.Transaction{}, err
	}
	d, err := draft.Normalize()
	if err != nil {
		return core.Transaction{}, err
	}

	now := s.now().UTC()
	var created core.Transaction
	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := checkReferences(ctx, q, actor.OrganizationID, d, true); err != nil {
			return err
		}
		created, err = q.CreateTransaction(ctx, core.Transaction{
			OrganizationID: actor.OrganizationID,
			AccountID:      d.AccountID,
			CategoryID:     d.CategoryID,
			CreatedBy:      actor.UserID,
			Amount:         d.Amount,
			OccurredOn:     d.OccurredOn,
			Tags:           d.Tags,
			Note:           d.Note,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.WithFields(actorFields(actor, log.OpCreate).WithEntity(entityTransaction, created.ID)).
		InfoContext(ctx, "Created transaction", log.FieldAmountCents, created.Amount.Cents)
	s.events.publish(ctx, actor, amqp.ActionCreated, entityTransaction, created.ID)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, actor core.Actor, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return core.Transaction{}, err
	}
	// Role-level denial needs no lookup.
	if d := policy.Authorize(actor.Role, core.EditTransaction, actor.UserID, actor.UserID); !d.Allowed {
		return core.Transaction{}, d.Err(actor.Role, core.EditTransaction)
	}

	var updated core.Transaction
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetTransaction(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, core.EditTransaction, existing.CreatedBy); err != nil {
			return err
		}

		d, err := patch.Apply(existing.Draft()).Normalize()
		if err != nil {
			return err
		}
		if err := checkReferences(ctx, q, actor.OrganizationID, d, d.AccountID != existing.AccountID); err != nil {
			return err
		}

		existing.AccountID = d.AccountID
		existing.CategoryID = d.CategoryID
		existing.Amount = d.Amount
		existing.OccurredOn = d.OccurredOn
		existing.Tags = d.Tags
		existing.Note = d.Note
		existing.UpdatedAt = s.now().UTC()
		if err := q.UpdateTransaction(ctx, existing); err != nil {
			return err
		}
		updated, err = q.GetTransaction(ctx, actor.OrganizationID, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.WithFields(actorFields(actor, log.OpUpdate).WithEntity(entityTransaction, id)).
		InfoContext(ctx, "Updated transaction")
	s.events.publish(ctx, actor, amqp.ActionUpdated, entityTransaction, id)
	return updated, nil
}

// Delete soft-deletes a transaction; it disappears from listings, reports,
// budgets and exports but its row is kept.
func (s *TransactionService) Delete(ctx context.Context, actor core.Actor, id int64) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if d := policy.Authorize(actor.Role, core.EditTransaction, actor.UserID, actor.UserID); !d.Allowed {
		return d.Err(actor.Role, core.EditTransaction)
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetTransaction(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, core.EditTransaction, existing.CreatedBy); err != nil {
			return err
		}
		return q.SoftDeleteTransaction(ctx, actor.OrganizationID, id, s.now().UTC())
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(actorFields(actor, log.OpDelete).WithEntity(entityTransaction, id)).
		InfoContext(ctx, "Deleted transaction")
	s.events.publish(ctx, actor, amqp.ActionDeleted, entityTransaction, id)
	return nil
}

// Get returns one transaction. A user-role actor may only read its own.
func (s *TransactionService) Get(ctx context.Context, actor core.Actor, id int64) (core.Transaction, error) {
	if err := s.authorizeView(actor); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.repo.Queries().GetTransaction(ctx, actor.OrganizationID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if owner := policy.OwnerScope(actor); owner != 0 && t.CreatedBy != owner {
		return core.Transaction{}, &core.AuthorizationError{
			Role: actor.Role, Action: core.ViewTransactions, Reason: core.NotOwner,
		}
	}
	return t, nil
}

// List returns one page of the filtered, ownership-scoped set ordered most
// recent first. Total counts the whole filtered set.
func (s *TransactionService) List(ctx context.Context, actor core.Actor, filter core.TransactionFilter) (core.Page[core.Transaction], error) {
	if err := s.authorizeView(actor); err != nil {
		return core.Page[core.Transaction]{}, err
	}
	if err := filter.Validate(); err != nil {
		return core.Page[core.Transaction]{}, err
	}
	if filter.Limit == 0 {
		filter.Limit = s.pageSize
	}

	page := core.Page[core.Transaction]{Offset: filter.Offset, Limit: filter.Limit}
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		items, total, err := q.ListTransactions(ctx, actor.OrganizationID, policy.OwnerScope(actor), filter)
		page.Items, page.Total = items, total
		return err
	})
	if err != nil {
		return core.Page[core.Transaction]{}, err
	}
	if page.Items == nil {
		page.Items = []core.Transaction{}
	}
	return page, nil
}

// Summarize totals income, expense and net over the filtered set; paging
// fields of the filter are ignored.
func (s *TransactionService) Summarize(ctx context.Context, actor core.Actor, filter core.TransactionFilter) (core.Totals, error) {
	if err := s.authorizeView(actor); err != nil {
		return core.Totals{}, err
	}
	filter.Offset, filter.Limit = 0, 0
	if err := filter.Validate(); err != nil {
		return core.Totals{}, err
	}
	return s.repo.Queries().SummarizeTransactions(ctx, actor.OrganizationID, policy.OwnerScope(actor), filter)
}

// all returns every transaction matching filter that actor may see, in
// listing order. action is the permission the caller is exercising.
func (s *TransactionService) all(ctx context.Context, actor core.Actor, action core.Action, filter core.TransactionFilter) ([]core.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Check(actor, action, actor.UserID); err != nil {
		return nil, err
	}
	filter.Offset, filter.Limit = 0, 0
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var txs []core.Transaction
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		txs, _, err = q.ListTransactions(ctx, actor.OrganizationID, policy.OwnerScope(actor), filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("collect transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) authorizeView(actor core.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return policy.Check(actor, core.ViewTransactions, actor.UserID)
}

// checkReferences verifies that account and category belong to orgID and
// that the amount sign matches the category kind.
func checkReferences(ctx context.Context, q *storage.Queries, orgID int64, d core.TransactionDraft, requireActive bool) error {
	account, err := q.GetAccount(ctx, orgID, d.AccountID)
	if err != nil {
		return asReference(err, "account_id")
	}
	if requireActive && !account.Active {
		return core.Invalid("account_id", "account %q is inactive", account.Name)
	}
	category, err := q.GetCategory(ctx, orgID, d.CategoryID)
	if err != nil {
		return asReference(err, "category_id")
	}
	return core.CheckAmountSign(category.Kind, d.Amount)
}
