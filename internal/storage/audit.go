package storage

import (
	"context"
	"fmt"

	"ledger/internal/core"
)

// InsertAuditLog records an event once; a redelivered event id is ignored.
// It reports whether a row was written.
func (q *Queries) InsertAuditLog(ctx context.Context, l core.AuditLog) (bool, error) {
	n, err := q.exec(ctx,
		`INSERT INTO audit_logs (event_id, organization_id, user_id, action, entity, entity_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_id) DO NOTHING`,
		l.EventID, l.OrganizationID, l.UserID, l.Action, l.Entity, l.EntityID, formatTime(l.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert audit log: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) ListAuditLogs(ctx context.Context, orgID int64, limit int) ([]core.AuditLog, error) {
	if limit <= 0 {
		limit = core.DefaultPageSize
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, event_id, organization_id, user_id, action, entity, entity_id, created_at
		 FROM audit_logs WHERE organization_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []core.AuditLog
	for rows.Next() {
		var (
			l       core.AuditLog
			created string
		)
		if err := rows.Scan(&l.ID, &l.EventID, &l.OrganizationID, &l.UserID, &l.Action,
			&l.Entity, &l.EntityID, &created); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if l.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
