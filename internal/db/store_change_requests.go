package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/historia/cockpit-archive/internal/models"
)

// Change request methods. Status and reviewer-slot writes are conditional
// UPDATEs guarded by the row's current state, so concurrent reviewers cannot
// claim the same slot and terminal requests cannot be altered.

const changeRequestColumns = `
	id, object_id, status, proposed_by_id, reviewed_by_id, reviewed_at,
	reviewed_by_id2, reviewed_at2, reason_rejected, request_snapshot, submitted_at
`

// CreateChangeRequest persists a new change request.
func (db *DB) CreateChangeRequest(ctx context.Context, req *models.ChangeRequest) error {
	snapshot, err := json.Marshal(req.Snapshot)
	if err != nil {
		return fmt.Errorf("serialize request snapshot: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO change_requests (id, object_id, status, proposed_by_id,
		                             reason_rejected, request_snapshot, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.ObjectID, string(req.Status), req.ProposedByID,
		req.ReasonRejected, snapshot, req.SubmittedAt)
	if err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetChangeRequestByID returns a change request row.
func (db *DB) GetChangeRequestByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id)
	return scanChangeRequest(row)
}

func scanChangeRequest(row pgx.Row) (*models.ChangeRequest, error) {
	var req models.ChangeRequest
	var statusStr string
	var snapshot []byte
	err := row.Scan(&req.ID, &req.ObjectID, &statusStr, &req.ProposedByID,
		&req.ReviewedByID, &req.ReviewedAt, &req.ReviewedByID2, &req.ReviewedAt2,
		&req.ReasonRejected, &snapshot, &req.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get change request: %w", err)
	}
	req.Status = models.ChangeRequestStatus(statusStr)
	if err := json.Unmarshal(snapshot, &req.Snapshot); err != nil {
		return nil, fmt.Errorf("parse request snapshot: %w", err)
	}
	return &req, nil
}

// GetChangeRequestDetail returns a change request with its object and the
// involved users populated.
func (db *DB) GetChangeRequestDetail(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	req, err := db.GetChangeRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ObjectID != nil {
		if obj, err := db.GetObjectByID(ctx, *req.ObjectID); err == nil {
			req.Object = obj
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	users := []struct {
		id   *uuid.UUID
		dest **models.User
	}{
		{&req.ProposedByID, &req.ProposedBy},
		{req.ReviewedByID, &req.ReviewedBy},
		{req.ReviewedByID2, &req.ReviewedBy2},
	}
	for _, u := range users {
		if u.id == nil {
			continue
		}
		user, err := db.GetUserByID(ctx, *u.id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		*u.dest = user
	}

	return req, nil
}

// ChangeRequestFilter defines filters for listing change requests.
type ChangeRequestFilter struct {
	Status       string
	ObjectID     *uuid.UUID
	ProposedByID *uuid.UUID
	ReviewedByID *uuid.UUID
	Skip         int
	Take         int
}

// ListChangeRequests returns change requests matching the filter, newest
// first.
func (db *DB) ListChangeRequests(ctx context.Context, filter ChangeRequestFilter) ([]*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE 1=1`
	args := []any{}
	argIdx := 1
	query, args, argIdx = appendChangeRequestFilters(query, args, argIdx, filter)
	query += " ORDER BY submitted_at DESC"

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
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ChangeRequest
	for rows.Next() {
		req, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change requests: %w", err)
	}
	return requests, nil
}

// CountChangeRequests returns the number of change requests matching the
// filter.
func (db *DB) CountChangeRequests(ctx context.Context, filter ChangeRequestFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM change_requests WHERE 1=1`
	args := []any{}
	query, args, _ = appendChangeRequestFilters(query, args, 1, filter)

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count change requests: %w", err)
	}
	return count, nil
}

func appendChangeRequestFilters(query string, args []any, argIdx int, filter ChangeRequestFilter) (string, []any, int) {
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.ObjectID != nil {
		query += fmt.Sprintf(" AND object_id = $%d", argIdx)
		args = append(args, *filter.ObjectID)
		argIdx++
	}
	if filter.ProposedByID != nil {
		query += fmt.Sprintf(" AND proposed_by_id = $%d", argIdx)
		args = append(args, *filter.ProposedByID)
		argIdx++
	}
	if filter.ReviewedByID != nil {
		query += fmt.Sprintf(" AND (reviewed_by_id = $%d OR reviewed_by_id2 = $%d)", argIdx, argIdx)
		args = append(args, *filter.ReviewedByID)
		argIdx++
	}
	return query, args, argIdx
}

// ClaimFirstReviewerSlot atomically fills the first reviewer slot and moves
// the request to REVIEWED. The compare-and-set on reviewed_by_id IS NULL
// guarantees only one of two racing approvals wins the slot.
func (db *DB) ClaimFirstReviewerSlot(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE change_requests
		SET reviewed_by_id = $2, reviewed_at = $3, status = 'REVIEWED'
		WHERE id = $1
		  AND reviewed_by_id IS NULL
		  AND status IN ('PENDING', 'REVIEWED')
	`, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("claim first reviewer slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimSecondReviewerSlot atomically fills the second reviewer slot. The
// guard requires the first slot to be held by a different user.
func (db *DB) ClaimSecondReviewerSlot(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE change_requests
		SET reviewed_by_id2 = $2, reviewed_at2 = $3
		WHERE id = $1
		  AND reviewed_by_id IS NOT NULL
		  AND reviewed_by_id <> $2
		  AND reviewed_by_id2 IS NULL
		  AND status IN ('PENDING', 'REVIEWED')
	`, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("claim second reviewer slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRejected moves an eligible request to REJECTED with the given reason.
func (db *DB) MarkRejected(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE change_requests
		SET status = 'REJECTED', reason_rejected = $2
		WHERE id = $1 AND status IN ('PENDING', 'REVIEWED')
	`, id, reason)
	if err != nil {
		return false, fmt.Errorf("mark change request rejected: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCanceled moves an eligible request to CANCELED.
func (db *DB) MarkCanceled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE change_requests
		SET status = 'CANCELED'
		WHERE id = $1 AND status IN ('PENDING', 'REVIEWED')
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark change request canceled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SubmitApproved finalizes an eligible, quorum-met request: the status
// moves to APPROVED and the snapshot is applied to the archive object, all
// in one transaction. The row is locked for the duration so a concurrent
// reject or cancel cannot interleave.
func (db *DB) SubmitApproved(ctx context.Context, id uuid.UUID) (bool, error) {
	var changed bool
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1 FOR UPDATE`, id)
		req, err := scanChangeRequest(row)
		if err != nil {
			return err
		}
		if req.IsTerminal() || !req.HasTwoReviewers() {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE change_requests SET status = 'APPROVED' WHERE id = $1`, id); err != nil {
			return fmt.Errorf("approve change request: %w", err)
		}

		if err := applySnapshot(ctx, tx, req); err != nil {
			return err
		}

		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// applySnapshot applies a request's proposed change to the archive object.
func applySnapshot(ctx context.Context, tx pgx.Tx, req *models.ChangeRequest) error {
	switch req.Snapshot.Action {
	case models.SnapshotActionCreate:
		return applyCreate(ctx, tx, req)
	case models.SnapshotActionDelete:
		return applyDelete(ctx, tx, req)
	case models.SnapshotActionUpdate, models.SnapshotActionRevert:
		return applyUpdate(ctx, tx, req)
	}
	return fmt.Errorf("apply snapshot: unknown action %q", req.Snapshot.Action)
}

func applyCreate(ctx context.Context, tx pgx.Tx, req *models.ChangeRequest) error {
	snap := req.Snapshot
	obj := models.NewArchiveObject("", "")
	if req.ObjectID != nil {
		obj.ID = *req.ObjectID
	}
	applyBasicTo(obj, snap.Basic)
	if snap.Tags != nil {
		obj.Tags = snap.Tags.Proposed
	}
	if snap.Location != nil {
		obj.Location = snap.Location.Proposed
	}
	if snap.Media != nil {
		for _, m := range snap.Media.ToAdd {
			obj.Media = append(obj.Media, &models.ObjectMedia{
				URL: m.URL, MimeType: m.MimeType, Position: m.Position,
				IsCover: m.IsCover, Size: m.Size,
			})
		}
	}
	if snap.Relations != nil {
		obj.Relations = snap.Relations.Proposed
	}

	if err := insertObject(ctx, tx, obj); err != nil {
		return err
	}

	newState, err := serializeObjectState(obj)
	if err != nil {
		return err
	}
	return recordObjectChange(ctx, tx, &models.ObjectChangeLog{
		ObjectID:    obj.ID,
		UserID:      &req.ProposedByID,
		Action:      models.SnapshotActionCreate,
		NewSnapshot: newState,
	})
}

func applyDelete(ctx context.Context, tx pgx.Tx, req *models.ChangeRequest) error {
	if req.ObjectID == nil {
		return fmt.Errorf("apply delete: change request has no object")
	}
	obj, err := getObjectTx(ctx, tx, *req.ObjectID)
	if err != nil {
		return err
	}
	prevState, err := serializeObjectState(obj)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM archive_objects WHERE id = $1`, obj.ID); err != nil {
		return fmt.Errorf("apply delete: %w", err)
	}
	return recordObjectChange(ctx, tx, &models.ObjectChangeLog{
		ObjectID:         obj.ID,
		UserID:           &req.ProposedByID,
		Action:           models.SnapshotActionDelete,
		PreviousSnapshot: prevState,
	})
}

func applyUpdate(ctx context.Context, tx pgx.Tx, req *models.ChangeRequest) error {
	if req.ObjectID == nil {
		return fmt.Errorf("apply update: change request has no object")
	}
	obj, err := getObjectTx(ctx, tx, *req.ObjectID)
	if err != nil {
		return err
	}
	prevState, err := serializeObjectState(obj)
	if err != nil {
		return err
	}

	snap := req.Snapshot
	applyBasicTo(obj, snap.Basic)
	if snap.Tags != nil {
		obj.Tags = snap.Tags.Proposed
	}
	if snap.Location != nil {
		obj.Location = snap.Location.Proposed
	}

	loc := obj.Location
	if loc == nil {
		loc = &models.ObjectLocation{}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE archive_objects
		SET code = $2, title = $3, description = $4, date = $5,
		    category_id = $6, material_id = $7, location_id = $8,
		    location = $9, sub_location = $10, location_details = $11,
		    tags = $12, updated_at = NOW()
		WHERE id = $1
	`, obj.ID, obj.Code, obj.Title, obj.Description, obj.Date,
		obj.CategoryID, obj.MaterialID, loc.LocationID,
		loc.Location, loc.SubLocation, loc.Details, obj.Tags); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	if snap.Media != nil {
		for _, m := range snap.Media.ToAdd {
			if err := insertMedia(ctx, tx, obj.ID, &models.ObjectMedia{
				URL: m.URL, MimeType: m.MimeType, Position: m.Position,
				IsCover: m.IsCover, Size: m.Size,
			}); err != nil {
				return err
			}
		}
		for _, m := range snap.Media.ToUpdate {
			if err := updateMediaTx(ctx, tx, m); err != nil {
				return err
			}
		}
		for _, m := range snap.Media.ToDelete {
			if _, err := tx.Exec(ctx,
				`DELETE FROM object_media WHERE id = $1`, m.MediaID); err != nil {
				return fmt.Errorf("apply media delete: %w", err)
			}
		}
	}

	if snap.Relations != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM object_relations WHERE object_id = $1`, obj.ID); err != nil {
			return fmt.Errorf("apply relations: %w", err)
		}
		for _, r := range snap.Relations.Proposed {
			if err := insertRelation(ctx, tx, obj.ID, r); err != nil {
				return err
			}
		}
	}

	newState, err := serializeObjectState(obj)
	if err != nil {
		return err
	}
	return recordObjectChange(ctx, tx, &models.ObjectChangeLog{
		ObjectID:         obj.ID,
		UserID:           &req.ProposedByID,
		Action:           models.SnapshotActionUpdate,
		PreviousSnapshot: prevState,
		NewSnapshot:      newState,
	})
}

func applyBasicTo(obj *models.ArchiveObject, basic *models.BasicChange) {
	if basic == nil {
		return
	}
	if basic.Code != nil {
		obj.Code = *basic.Code
	}
	if basic.Title != nil {
		obj.Title = *basic.Title
	}
	if basic.Description != nil {
		obj.Description = *basic.Description
	}
	if basic.Date != nil {
		obj.Date = *basic.Date
	}
	if basic.CategoryID != nil {
		obj.CategoryID = basic.CategoryID
	}
	if basic.MaterialID != nil {
		obj.MaterialID = basic.MaterialID
	}
}

func getObjectTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ArchiveObject, error) {
	var obj models.ArchiveObject
	var loc models.ObjectLocation
	err := tx.QueryRow(ctx, `
		SELECT id, code, title, description, date, category_id, material_id,
		       location_id, location, sub_location, location_details, tags,
		       created_at, updated_at
		FROM archive_objects
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&obj.ID, &obj.Code, &obj.Title, &obj.Description, &obj.Date,
		&obj.CategoryID, &obj.MaterialID, &loc.LocationID, &loc.Location,
		&loc.SubLocation, &loc.Details, &obj.Tags, &obj.CreatedAt, &obj.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get object for update: %w", err)
	}
	if !loc.IsEmpty() || loc.LocationID != nil {
		obj.Location = &loc
	}
	return &obj, nil
}

func updateMediaTx(ctx context.Context, tx pgx.Tx, m *models.MediaToUpdate) error {
	query := `UPDATE object_media SET id = id`
	args := []any{m.MediaID}
	argIdx := 2
	if m.Position != nil {
		query += fmt.Sprintf(", position = $%d", argIdx)
		args = append(args, *m.Position)
		argIdx++
	}
	if m.IsCover != nil {
		query += fmt.Sprintf(", is_cover = $%d", argIdx)
		args = append(args, *m.IsCover)
		argIdx++
	}
	if m.MimeType != "" {
		query += fmt.Sprintf(", mime_type = $%d", argIdx)
		args = append(args, m.MimeType)
		argIdx++
	}
	query += ` WHERE id = $1`
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("apply media update: %w", err)
	}
	return nil
}
