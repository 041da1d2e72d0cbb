package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger/internal/core"
)

const transactionColumns = `t.id, t.organization_id, t.account_id, t.category_id, t.created_by,
	t.amount_cents, t.occurred_on, t.note, t.created_at, t.updated_at`

const listingOrder = ` ORDER BY t.occurred_on DESC, t.created_at DESC, t.id DESC`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                         core.Transaction
		occurred, created, update string
	)
	if err := s.Scan(&t.ID, &t.OrganizationID, &t.AccountID, &t.CategoryID, &t.CreatedBy,
		&t.Amount.Cents, &occurred, &t.Note, &created, &update); err != nil {
		return t, err
	}
	var err error
	if t.OccurredOn, err = parseDate(occurred); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	t.UpdatedAt, err = parseTime(update)
	return t, err
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := q.insert(ctx,
		`INSERT INTO transactions (organization_id, account_id, category_id, created_by, amount_cents,
		   occurred_on, note, note_folded, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OrganizationID, t.AccountID, t.CategoryID, t.CreatedBy, t.Amount.Cents,
		t.OccurredOn.String(), t.Note, core.Fold(t.Note), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id
	if err := q.ReplaceTags(ctx, id, t.Tags); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// GetTransaction returns a live (not soft-deleted) transaction with its tags.
func (q *Queries) GetTransaction(ctx context.Context, orgID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.organization_id = ? AND t.id = ? AND t.deleted_at IS NULL`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return t, fmt.Errorf("get transaction: %w", err)
	}
	tags, err := q.listTags(ctx, []int64{id})
	if err != nil {
		return t, err
	}
	t.Tags = tags[id]
	return t, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := q.exec(ctx,
		`UPDATE transactions
		 SET account_id = ?, category_id = ?, amount_cents = ?, occurred_on = ?,
		     note = ?, note_folded = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ? AND deleted_at IS NULL`,
		t.AccountID, t.CategoryID, t.Amount.Cents, t.OccurredOn.String(),
		t.Note, core.Fold(t.Note), formatTime(t.UpdatedAt), t.OrganizationID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "transaction", ID: t.ID}
	}
	return q.ReplaceTags(ctx, t.ID, t.Tags)
}

func (q *Queries) SoftDeleteTransaction(ctx context.Context, orgID, id int64, at time.Time) error {
	n, err := q.exec(ctx,
		`UPDATE transactions SET deleted_at = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ? AND deleted_at IS NULL`,
		formatTime(at), formatTime(at), orgID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return nil
}

// ReplaceTags rewrites the tag rows of a transaction in the given order.
func (q *Queries) ReplaceTags(ctx context.Context, transactionID int64, tags []string) error {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := q.exec(ctx,
			`INSERT INTO transaction_tags (transaction_id, position, tag, tag_folded) VALUES (?, ?, ?, ?)`,
			transactionID, i, tag, core.Fold(tag)); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

func (q *Queries) listTags(ctx context.Context, ids []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT transaction_id, tag FROM transaction_tags
		 WHERE transaction_id IN (`+placeholders(len(ids))+`)
		 ORDER BY transaction_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	return tags, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// transactionPredicate builds the shared WHERE clause for listings, counts
// and sums. owner restricts to rows created by that user when non-zero.
func transactionPredicate(orgID, owner int64, f core.TransactionFilter) (string, []any) {
	var (
		b    strings.Builder
		args = []any{orgID}
	)
	b.WriteString(` WHERE t.organization_id = ? AND t.deleted_at IS NULL`)
	if owner != 0 {
		b.WriteString(` AND t.created_by = ?`)
		args = append(args, owner)
	}
	if !f.From.IsEmpty() {
		b.WriteString(` AND t.occurred_on >= ?`)
		args = append(args, f.From.String())
	}
	if !f.To.IsEmpty() {
		b.WriteString(` AND t.occurred_on <= ?`)
		args = append(args, f.To.String())
	}
	if f.AccountID != 0 {
		b.WriteString(` AND t.account_id = ?`)
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		b.WriteString(` AND t.category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.MinAmount != nil {
		b.WriteString(` AND t.amount_cents >= ?`)
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		b.WriteString(` AND t.amount_cents <= ?`)
		args = append(args, f.MaxAmount.Cents)
	}
	if kw := f.FoldedKeyword(); kw != "" {
		b.WriteString(` AND (instr(t.note_folded, ?) > 0 OR EXISTS (
			SELECT 1 FROM transaction_tags g
			WHERE g.transaction_id = t.id AND instr(g.tag_folded, ?) > 0))`)
		args = append(args, kw, kw)
	}
	return b.String(), args
}

// ListTransactions returns one page of the filtered set and the size of the
// whole set. A zero limit returns every row from the offset on.
func (q *Queries) ListTransactions(ctx context.Context, orgID, owner int64, f core.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := transactionPredicate(orgID, owner, f)

	total, err := q.count(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit == 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t`+where+listingOrder+` LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		txs []core.Transaction
		ids []int64
	)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	tags, err := q.listTags(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range txs {
		txs[i].Tags = tags[txs[i].ID]
	}
	return txs, total, nil
}

// SummarizeTransactions totals the filtered set by category kind.
func (q *Queries) SummarizeTransactions(ctx context.Context, orgID, owner int64, f core.TransactionFilter) (core.Totals, error) {
	where, args := transactionPredicate(orgID, owner, f)
	var totals core.Totals
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN c.kind = 'income' THEN t.amount_cents END), 0),
		        COALESCE(SUM(CASE WHEN c.kind = 'expense' THEN t.amount_cents END), 0),
		        COALESCE(SUM(t.amount_cents), 0)
		 FROM transactions t
		 JOIN categories c ON c.organization_id = t.organization_id AND c.id = t.category_id`+where,
		args...).Scan(&totals.Count, &totals.Income.Cents, &totals.Expense.Cents, &totals.Net.Cents)
	if err != nil {
		return totals, fmt.Errorf("summarize transactions: %w", err)
	}
	return totals, nil
}
