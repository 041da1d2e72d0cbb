package services

import (
	"context"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/policy"
	"ledger/internal/storage"
)

const entityBudget = "budget"

type BudgetService struct {
	repo   *storage.SQLiteRepository
	txs    *TransactionService
	events *publisher
	now    func() time.Time
	logger *log.Logger
}

func NewBudgetService(repo *storage.SQLiteRepository, txs *TransactionService, events *publisher, now func() time.Time) *BudgetService {
	return &BudgetService{
		repo:   repo,
		txs:    txs,
		events: events,
		now:    now,
		logger: log.ForComponent(log.ComponentBudget),
	}
}

// Create adds a spending cap on an expense category.
func (s *BudgetService) Create(ctx context.Context, actor core.Actor, draft core.BudgetDraft) (core.Budget, error) {
	if err := s.authorize(actor, core.CreateBudget); err != nil {
		return core.Budget{}, err
	}
	d, err := draft.Normalize()
	if err != nil {
		return core.Budget{}, err
	}

	var created core.Budget
	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := checkBudgetCategory(ctx, q, actor.OrganizationID, d.CategoryID); err != nil {
			return err
		}
		var err error
		created, err = q.CreateBudget(ctx, core.Budget{
			OrganizationID: actor.OrganizationID,
			CategoryID:     d.CategoryID,
			Name:           d.Name,
			Cadence:        d.Cadence,
			LimitAmount:    d.LimitAmount,
			PeriodStart:    d.PeriodStart,
			PeriodEnd:      d.PeriodEnd,
			CreatedAt:      s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.WithFields(actorFields(actor, log.OpCreate).WithEntity(entityBudget, created.ID)).
		InfoContext(ctx, "Created budget", "period", created.Period().String())
	s.events.publish(ctx, actor, amqp.ActionCreated, entityBudget, created.ID)
	return created, nil
}

// Update edits a budget whose period has not ended yet. Concurrent edits
// are last-write-wins.
func (s *BudgetService) Update(ctx context.Context, actor core.Actor, id int64, patch core.BudgetPatch) (core.Budget, error) {
	if err := s.authorize(actor, core.CreateBudget); err != nil {
		return core.Budget{}, err
	}

	today := core.DateOf(s.now())
	var updated core.Budget
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetBudget(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if existing.PeriodEnd.Before(today.Time) {
			return core.Conflict("budget %d ended on %s and can no longer be edited", id, existing.PeriodEnd)
		}
		d, err := patch.Apply(existing.Draft()).Normalize()
		if err != nil {
			return err
		}
		existing.Name = d.Name
		existing.Cadence = d.Cadence
		existing.LimitAmount = d.LimitAmount
		existing.PeriodStart = d.PeriodStart
		existing.PeriodEnd = d.PeriodEnd
		if err := q.UpdateBudget(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.events.publish(ctx, actor, amqp.ActionUpdated, entityBudget, id)
	return updated, nil
}

func (s *BudgetService) Get(ctx context.Context, actor core.Actor, id int64) (core.Budget, error) {
	if err := s.authorize(actor, core.ViewReports); err != nil {
		return core.Budget{}, err
	}
	return s.repo.Queries().GetBudget(ctx, actor.OrganizationID, id)
}

func (s *BudgetService) List(ctx context.Context, actor core.Actor) ([]core.Budget, error) {
	if err := s.authorize(actor, core.ViewReports); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListBudgets(ctx, actor.OrganizationID, time.Time{})
}

// Progress reports spend against one budget over the transactions the actor
// may see.
func (s *BudgetService) Progress(ctx context.Context, actor core.Actor, id int64) (core.BudgetProgress, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return s.progress(ctx, actor, b)
}

// ProgressAll reports every budget whose period contains day.
func (s *BudgetService) ProgressAll(ctx context.Context, actor core.Actor, day core.Date) ([]core.BudgetProgress, error) {
	if err := s.authorize(actor, core.ViewReports); err != nil {
		return nil, err
	}
	if err := day.Validate(); err != nil {
		return nil, core.Invalid("date", "%v", err)
	}
	budgets, err := s.repo.Queries().ListBudgets(ctx, actor.OrganizationID, day.Time)
	if err != nil {
		return nil, err
	}

	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := s.progress(ctx, actor, b)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *BudgetService) progress(ctx context.Context, actor core.Actor, b core.Budget) (core.BudgetProgress, error) {
	txs, err := s.txs.all(ctx, actor, core.ViewReports, core.TransactionFilter{
		From:       b.PeriodStart,
		To:         b.PeriodEnd,
		CategoryID: b.CategoryID,
	})
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return core.Progress(b, txs), nil
}

func (s *BudgetService) authorize(actor core.Actor, action core.Action) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return policy.Check(actor, action, actor.UserID)
}

func checkBudgetCategory(ctx context.Context, q *storage.Queries, orgID, categoryID int64) error {
	c, err := q.GetCategory(ctx, orgID, categoryID)
	if err != nil {
		return asReference(err, "category_id")
	}
	if c.Kind != core.KindExpense {
		return core.Invalid("category_id", "budgets apply to expense categories only")
	}
	return nil
}
