package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

const budgetColumns = `id, organization_id, category_id, name, cadence, limit_cents, period_start, period_end, created_at`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                   core.Budget
		start, end, created string
	)
	if err := s.Scan(&b.ID, &b.OrganizationID, &b.CategoryID, &b.Name, &b.Cadence, &b.LimitAmount.Cents,
		&start, &end, &created); err != nil {
		return b, err
	}
	var err error
	if b.PeriodStart, err = parseDate(start); err != nil {
		return b, err
	}
	if b.PeriodEnd, err = parseDate(end); err != nil {
		return b, err
	}
	b.CreatedAt, err = parseTime(created)
	return b, err
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	id, err := q.insert(ctx,
		`INSERT INTO budgets (organization_id, category_id, name, cadence, limit_cents, period_start, period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.OrganizationID, b.CategoryID, b.Name, string(b.Cadence), b.LimitAmount.Cents,
		b.PeriodStart.String(), b.PeriodEnd.String(), formatTime(b.CreatedAt))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func (q *Queries) GetBudget(ctx context.Context, orgID, id int64) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE organization_id = ? AND id = ?`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, &core.NotFoundError{Entity: "budget", ID: id}
	}
	if err != nil {
		return b, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	n, err := q.exec(ctx,
		`UPDATE budgets SET name = ?, cadence = ?, limit_cents = ?, period_start = ?, period_end = ?
		 WHERE organization_id = ? AND id = ?`,
		b.Name, string(b.Cadence), b.LimitAmount.Cents, b.PeriodStart.String(), b.PeriodEnd.String(), b.OrganizationID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "budget", ID: b.ID}
	}
	return nil
}

// ListBudgets returns the organization's budgets, most recent period first.
// A non-zero activeOn keeps only budgets whose period contains that day.
func (q *Queries) ListBudgets(ctx context.Context, orgID int64, activeOn time.Time) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE organization_id = ?`
	args := []any{orgID}
	if !activeOn.IsZero() {
		day := core.DateOf(activeOn).String()
		query += ` AND period_start <= ? AND period_end >= ?`
		args = append(args, day, day)
	}
	rows, err := q.db.QueryContext(ctx, query+` ORDER BY period_start DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
