package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/historia/cockpit-archive/internal/models"
)

// Log methods

// CreateActivityLog records a user action.
func (db *DB) CreateActivityLog(ctx context.Context, log *models.ActivityLog) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO activity_logs (id, user_id, action, resource_type, resource_id,
		                           ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, log.ID, log.UserID, string(log.Action), log.ResourceType, log.ResourceID,
		log.IPAddress, log.UserAgent, log.Details, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ActivityLogFilter defines filters for listing activity logs.
type ActivityLogFilter struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	Skip         int
	Take         int
}

// ListActivityLogs returns activity logs matching the filter, newest first.
func (db *DB) ListActivityLogs(ctx context.Context, filter ActivityLogFilter) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, user_id, action, resource_type, resource_id,
		       ip_address, user_agent, details, created_at
		FROM activity_logs WHERE 1=1`
	args := []any{}
	argIdx := 1
	query, args, argIdx = appendActivityLogFilters(query, args, argIdx, filter)
	query += " ORDER BY created_at DESC"

	if filter.Take > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Take)
		argIdx++
	}
	if filter.Skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Skip)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		var action string
		if err := rows.Scan(&log.ID, &log.UserID, &action, &log.ResourceType,
			&log.ResourceID, &log.IPAddress, &log.UserAgent, &log.Details,
			&log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		log.Action = models.ActivityAction(action)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity logs: %w", err)
	}
	return logs, nil
}

// CountActivityLogs returns the number of activity logs matching the filter.
func (db *DB) CountActivityLogs(ctx context.Context, filter ActivityLogFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM activity_logs WHERE 1=1`
	args := []any{}
	query, args, _ = appendActivityLogFilters(query, args, 1, filter)

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activity logs: %w", err)
	}
	return count, nil
}

func appendActivityLogFilters(query string, args []any, argIdx int, filter ActivityLogFilter) (string, []any, int) {
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if filter.ResourceType != "" {
		query += fmt.Sprintf(" AND resource_type = $%d", argIdx)
		args = append(args, filter.ResourceType)
		argIdx++
	}
	return query, args, argIdx
}

// GetObjectChangeLogByID returns a single object change log entry.
func (db *DB) GetObjectChangeLogByID(ctx context.Context, id uuid.UUID) (*models.ObjectChangeLog, error) {
	var log models.ObjectChangeLog
	var action string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, object_id, user_id, action, previous_snapshot, new_snapshot, created_at
		FROM object_change_logs
		WHERE id = $1
	`, id).Scan(&log.ID, &log.ObjectID, &log.UserID, &action,
		&log.PreviousSnapshot, &log.NewSnapshot, &log.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get object change log: %w", err)
	}
	log.Action = models.SnapshotAction(action)
	return &log, nil
}

// ListObjectChangeLogs returns the change history of an object, newest
// first.
func (db *DB) ListObjectChangeLogs(ctx context.Context, objectID uuid.UUID, skip, take int) ([]*models.ObjectChangeLog, error) {
	query := `
		SELECT id, object_id, user_id, action, previous_snapshot, new_snapshot, created_at
		FROM object_change_logs
		WHERE object_id = $1
		ORDER BY created_at DESC`
	args := []any{objectID}
	argIdx := 2
	if take > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, take)
		argIdx++
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, skip)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list object change logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ObjectChangeLog
	for rows.Next() {
		var log models.ObjectChangeLog
		var action string
		if err := rows.Scan(&log.ID, &log.ObjectID, &log.UserID, &action,
			&log.PreviousSnapshot, &log.NewSnapshot, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan object change log: %w", err)
		}
		log.Action = models.SnapshotAction(action)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object change logs: %w", err)
	}
	return logs, nil
}

// CreateVisitLog records a page or object view.
func (db *DB) CreateVisitLog(ctx context.Context, log *models.VisitLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO visit_logs (id, object_id, user_id, path, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, log.ID, log.ObjectID, log.UserID, log.Path, log.IPAddress, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create visit log: %w", err)
	}
	return nil
}

// ListVisitLogs returns visit logs newest first, optionally scoped to one
// object.
func (db *DB) ListVisitLogs(ctx context.Context, objectID *uuid.UUID, skip, take int) ([]*models.VisitLog, error) {
	query := `
		SELECT id, object_id, user_id, path, ip_address, created_at
		FROM visit_logs WHERE 1=1`
	args := []any{}
	argIdx := 1
	if objectID != nil {
		query += fmt.Sprintf(" AND object_id = $%d", argIdx)
		args = append(args, *objectID)
		argIdx++
	}
	query += " ORDER BY created_at DESC"
	if take > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, take)
		argIdx++
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, skip)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.VisitLog
	for rows.Next() {
		var log models.VisitLog
		if err := rows.Scan(&log.ID, &log.ObjectID, &log.UserID, &log.Path,
			&log.IPAddress, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan visit log: %w", err)
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visit logs: %w", err)
	}
	return logs, nil
}

// CleanupActivityLogs deletes activity logs older than the cutoff and
// returns the number removed.
func (db *DB) CleanupActivityLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM activity_logs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleanup activity logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CleanupVisitLogs deletes visit logs older than the cutoff and returns the
// number removed.
func (db *DB) CleanupVisitLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM visit_logs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleanup visit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
