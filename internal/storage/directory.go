package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

const accountColumns = `id, organization_id, name, type, currency, active, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var (
		a       core.Account
		typ     string
		created string
	)
	if err := s.Scan(&a.ID, &a.OrganizationID, &a.Name, &typ, &a.Currency, &a.Active, &created); err != nil {
		return a, err
	}
	a.Type = core.AccountType(typ)
	var err error
	a.CreatedAt, err = parseTime(created)
	return a, err
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := q.insert(ctx,
		`INSERT INTO accounts (organization_id, name, type, currency, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.OrganizationID, a.Name, string(a.Type), a.Currency, a.Active, formatTime(a.CreatedAt))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (q *Queries) GetAccount(ctx context.Context, orgID, id int64) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE organization_id = ? AND id = ?`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, &core.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return a, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, orgID int64, activeOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE organization_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	rows, err := q.db.QueryContext(ctx, query+` ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) SetAccountActive(ctx context.Context, orgID, id int64, active bool) error {
	n, err := q.exec(ctx, `UPDATE accounts SET active = ? WHERE organization_id = ? AND id = ?`, active, orgID, id)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

func (q *Queries) DeleteAccount(ctx context.Context, orgID, id int64) error {
	n, err := q.exec(ctx, `DELETE FROM accounts WHERE organization_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

// CountAccountReferences counts transactions, soft-deleted ones included,
// that point at the account.
func (q *Queries) CountAccountReferences(ctx context.Context, orgID, id int64) (int, error) {
	n, err := q.count(ctx,
		`SELECT COUNT(*) FROM transactions WHERE organization_id = ? AND account_id = ?`, orgID, id)
	if err != nil {
		return 0, fmt.Errorf("count account references: %w", err)
	}
	return n, nil
}

const categoryColumns = `id, organization_id, name, kind, created_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c       core.Category
		kind    string
		created string
	)
	if err := s.Scan(&c.ID, &c.OrganizationID, &c.Name, &kind, &created); err != nil {
		return c, err
	}
	c.Kind = core.Kind(kind)
	var err error
	c.CreatedAt, err = parseTime(created)
	return c, err
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := q.insert(ctx,
		`INSERT INTO categories (organization_id, name, kind, created_at) VALUES (?, ?, ?, ?)`,
		c.OrganizationID, c.Name, string(c.Kind), formatTime(c.CreatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, orgID, id int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE organization_id = ? AND id = ?`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, &core.NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return c, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context, orgID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE organization_id = ? ORDER BY kind, name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *Queries) DeleteCategory(ctx context.Context, orgID, id int64) error {
	n, err := q.exec(ctx, `DELETE FROM categories WHERE organization_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

// CountCategoryReferences counts transactions and budgets using the category.
func (q *Queries) CountCategoryReferences(ctx context.Context, orgID, id int64) (int, error) {
	n, err := q.count(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE organization_id = ?1 AND category_id = ?2)
		      + (SELECT COUNT(*) FROM budgets WHERE organization_id = ?1 AND category_id = ?2)`, orgID, id)
	if err != nil {
		return 0, fmt.Errorf("count category references: %w", err)
	}
	return n, nil
}
