package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

func (q *Queries) CreateOrganization(ctx context.Context, name string, now time.Time) (core.Organization, error) {
	id, err := q.insert(ctx, `INSERT INTO organizations (name, created_at) VALUES (?, ?)`, name, formatTime(now))
	if err != nil {
		return core.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	return core.Organization{ID: id, Name: name, CreatedAt: now.UTC()}, nil
}

func (q *Queries) GetOrganization(ctx context.Context, id int64) (core.Organization, error) {
	var (
		o       core.Organization
		created string
	)
	err := q.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM organizations WHERE id = ?`, id).
		Scan(&o.ID, &o.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return o, &core.NotFoundError{Entity: "organization", ID: id}
	}
	if err != nil {
		return o, fmt.Errorf("get organization: %w", err)
	}
	o.CreatedAt, err = parseTime(created)
	return o, err
}

func (q *Queries) CountUsers(ctx context.Context) (int, error) {
	n, err := q.count(ctx, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

const userColumns = `id, organization_id, username, credential_hash, role, active, created_at`

func scanUser(s scanner) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	if err := s.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.CredentialHash, &role, &u.Active, &created); err != nil {
		return u, err
	}
	u.Role = core.Role(role)
	var err error
	u.CreatedAt, err = parseTime(created)
	return u, err
}

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	id, err := q.insert(ctx,
		`INSERT INTO users (organization_id, username, credential_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.OrganizationID, u.Username, u.CredentialHash, string(u.Role), u.Active, formatTime(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (q *Queries) GetUser(ctx context.Context, orgID, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = ? AND id = ?`, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, &core.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, orgID int64, username string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = ? AND username = ?`, orgID, username))
	if errors.Is(err, sql.ErrNoRows) {
		return u, &core.NotFoundError{Entity: "user"}
	}
	if err != nil {
		return u, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (q *Queries) ListUsers(ctx context.Context, orgID int64) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = ? ORDER BY username`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) UpdateUserRole(ctx context.Context, orgID, id int64, role core.Role) error {
	n, err := q.exec(ctx, `UPDATE users SET role = ? WHERE organization_id = ? AND id = ?`, string(role), orgID, id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

func (q *Queries) SetUserActive(ctx context.Context, orgID, id int64, active bool) error {
	n, err := q.exec(ctx, `UPDATE users SET active = ? WHERE organization_id = ? AND id = ?`, active, orgID, id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

func (q *Queries) CountActiveAdmins(ctx context.Context, orgID int64) (int, error) {
	n, err := q.count(ctx,
		`SELECT COUNT(*) FROM users WHERE organization_id = ? AND role = 'admin' AND active = 1`, orgID)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
