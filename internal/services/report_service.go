package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/log"
)

const recentTransactions = 5

// Dashboard is the landing view: the current month, the budgets running
// today and the latest transactions.
type Dashboard struct {
	Today   core.Date
	Month   core.Report
	Budgets []core.BudgetProgress
	Recent  []core.Transaction
}

type ReportService struct {
	txs     *TransactionService
	budgets *BudgetService
	dir     *DirectoryService
	logger  *log.Logger
}

func NewReportService(txs *TransactionService, budgets *BudgetService, dir *DirectoryService) *ReportService {
	return &ReportService{
		txs:     txs,
		budgets: budgets,
		dir:     dir,
		logger:  log.ForComponent(log.ComponentReport),
	}
}

// Monthly aggregates the actor's visible transactions for one calendar month.
func (s *ReportService) Monthly(ctx context.Context, actor core.Actor, year, month int) (core.Report, error) {
	p, err := core.MonthPeriod(year, month)
	if err != nil {
		return core.Report{}, err
	}
	r, err := s.report(ctx, actor, p)
	if err != nil {
		return core.Report{}, err
	}
	s.logger.WithFields(actorFields(actor, log.OpReport)).
		DebugContext(ctx, "Built monthly report", log.FieldYear, year, log.FieldMonth, month)
	return r, nil
}

// Yearly aggregates a calendar year; it equals the sum of its twelve months.
func (s *ReportService) Yearly(ctx context.Context, actor core.Actor, year int) (core.Report, error) {
	p, err := core.YearPeriod(year)
	if err != nil {
		return core.Report{}, err
	}
	r, err := s.report(ctx, actor, p)
	if err != nil {
		return core.Report{}, err
	}
	s.logger.WithFields(actorFields(actor, log.OpReport)).
		DebugContext(ctx, "Built yearly report", log.FieldYear, year)
	return r, nil
}

func (s *ReportService) report(ctx context.Context, actor core.Actor, p core.Period) (core.Report, error) {
	txs, err := s.txs.all(ctx, actor, core.ViewReports, core.TransactionFilter{From: p.Start, To: p.End})
	if err != nil {
		return core.Report{}, err
	}
	dir, err := s.dir.Directory(ctx, actor.OrganizationID)
	if err != nil {
		return core.Report{}, err
	}
	return core.Aggregate(p, txs, dir.Kinds()), nil
}

// Dashboard computes its three parts concurrently; the first failure
// cancels the rest.
func (s *ReportService) Dashboard(ctx context.Context, actor core.Actor, today core.Date) (Dashboard, error) {
	if err := today.Validate(); err != nil {
		return Dashboard{}, core.Invalid("today", "%v", err)
	}

	d := Dashboard{Today: today}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.Month, err = s.Monthly(ctx, actor, today.Year(), today.Month())
		return err
	})
	g.Go(func() error {
		var err error
		d.Budgets, err = s.budgets.ProgressAll(ctx, actor, today)
		return err
	})
	g.Go(func() error {
		page, err := s.txs.List(ctx, actor, core.TransactionFilter{Limit: recentTransactions})
		d.Recent = page.Items
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
