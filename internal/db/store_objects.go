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

// Archive object methods

// CreateObject creates an archive object with its media, tags, location and
// relations.
func (db *DB) CreateObject(ctx context.Context, obj *models.ArchiveObject) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		return insertObject(ctx, tx, obj)
	})
}

func insertObject(ctx context.Context, tx pgx.Tx, obj *models.ArchiveObject) error {
	loc := obj.Location
	if loc == nil {
		loc = &models.ObjectLocation{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO archive_objects (id, code, title, description, date,
		                             category_id, material_id, location_id,
		                             location, sub_location, location_details,
		                             tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, obj.ID, obj.Code, obj.Title, obj.Description, obj.Date,
		obj.CategoryID, obj.MaterialID, loc.LocationID,
		loc.Location, loc.SubLocation, loc.Details,
		obj.Tags, obj.CreatedAt, obj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}

	for _, m := range obj.Media {
		if err := insertMedia(ctx, tx, obj.ID, m); err != nil {
			return err
		}
	}
	for _, r := range obj.Relations {
		if err := insertRelation(ctx, tx, obj.ID, r); err != nil {
			return err
		}
	}
	return nil
}

func insertMedia(ctx context.Context, tx pgx.Tx, objectID uuid.UUID, m *models.ObjectMedia) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.ObjectID = objectID
	_, err := tx.Exec(ctx, `
		INSERT INTO object_media (id, object_id, url, mime_type, position, is_cover, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.ObjectID, m.URL, m.MimeType, m.Position, m.IsCover, m.Size)
	if err != nil {
		return fmt.Errorf("create object media: %w", err)
	}
	return nil
}

func insertRelation(ctx context.Context, tx pgx.Tx, objectID uuid.UUID, r *models.ObjectRelation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO object_relations (object_id, related_object_id, relation)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_id, related_object_id) DO UPDATE SET relation = EXCLUDED.relation
	`, objectID, r.RelatedObjectID, r.Relation)
	if err != nil {
		return fmt.Errorf("create object relation: %w", err)
	}
	return nil
}

// GetObjectByID returns an archive object with media, relations and location.
func (db *DB) GetObjectByID(ctx context.Context, id uuid.UUID) (*models.ArchiveObject, error) {
	obj, err := db.scanObject(db.Pool.QueryRow(ctx, `
		SELECT id, code, title, description, date, category_id, material_id,
		       location_id, location, sub_location, location_details, tags,
		       created_at, updated_at
		FROM archive_objects
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, object_id, url, mime_type, position, is_cover, size
		FROM object_media
		WHERE object_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get object media: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m models.ObjectMedia
		if err := rows.Scan(&m.ID, &m.ObjectID, &m.URL, &m.MimeType,
			&m.Position, &m.IsCover, &m.Size); err != nil {
			return nil, fmt.Errorf("scan object media: %w", err)
		}
		obj.Media = append(obj.Media, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object media: %w", err)
	}

	relRows, err := db.Pool.Query(ctx, `
		SELECT r.related_object_id, o.code, o.title, r.relation
		FROM object_relations r
		JOIN archive_objects o ON o.id = r.related_object_id
		WHERE r.object_id = $1
		ORDER BY o.code
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get object relations: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r models.ObjectRelation
		if err := relRows.Scan(&r.RelatedObjectID, &r.RelatedCode, &r.RelatedTitle, &r.Relation); err != nil {
			return nil, fmt.Errorf("scan object relation: %w", err)
		}
		obj.Relations = append(obj.Relations, &r)
	}
	if err := relRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object relations: %w", err)
	}

	return obj, nil
}

func (db *DB) scanObject(row pgx.Row) (*models.ArchiveObject, error) {
	var obj models.ArchiveObject
	var loc models.ObjectLocation
	err := row.Scan(&obj.ID, &obj.Code, &obj.Title, &obj.Description, &obj.Date,
		&obj.CategoryID, &obj.MaterialID, &loc.LocationID, &loc.Location,
		&loc.SubLocation, &loc.Details, &obj.Tags, &obj.CreatedAt, &obj.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	if !loc.IsEmpty() || loc.LocationID != nil {
		obj.Location = &loc
	}
	return &obj, nil
}

// ObjectFilter defines filters for listing archive objects.
type ObjectFilter struct {
	Search     string
	CategoryID *uuid.UUID
	MaterialID *uuid.UUID
	Tag        string
	Limit      int
	Offset     int
}

// ListObjects returns archive objects matching the filter, newest first.
func (db *DB) ListObjects(ctx context.Context, filter ObjectFilter) ([]*models.ArchiveObject, error) {
	query := `
		SELECT id, code, title, description, date, category_id, material_id,
		       location_id, location, sub_location, location_details, tags,
		       created_at, updated_at
		FROM archive_objects
		WHERE 1=1
	`
	args := []any{}
	argIdx := 1
	query, args, argIdx = appendObjectFilters(query, args, argIdx, filter)
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var objects []*models.ArchiveObject
	for rows.Next() {
		var obj models.ArchiveObject
		var loc models.ObjectLocation
		if err := rows.Scan(&obj.ID, &obj.Code, &obj.Title, &obj.Description, &obj.Date,
			&obj.CategoryID, &obj.MaterialID, &loc.LocationID, &loc.Location,
			&loc.SubLocation, &loc.Details, &obj.Tags, &obj.CreatedAt, &obj.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		if !loc.IsEmpty() || loc.LocationID != nil {
			obj.Location = &loc
		}
		objects = append(objects, &obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}

// CountObjects returns the number of objects matching the filter.
func (db *DB) CountObjects(ctx context.Context, filter ObjectFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM archive_objects WHERE 1=1`
	args := []any{}
	query, args, _ = appendObjectFilters(query, args, 1, filter)

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return count, nil
}

func appendObjectFilters(query string, args []any, argIdx int, filter ObjectFilter) (string, []any, int) {
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (code ILIKE $%d OR title ILIKE $%d OR description ILIKE $%d)",
			argIdx, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argIdx)
		args = append(args, *filter.CategoryID)
		argIdx++
	}
	if filter.MaterialID != nil {
		query += fmt.Sprintf(" AND material_id = $%d", argIdx)
		args = append(args, *filter.MaterialID)
		argIdx++
	}
	if filter.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", argIdx)
		args = append(args, filter.Tag)
		argIdx++
	}
	return query, args, argIdx
}

// UpdateObject updates an object's scalar fields, tags and location.
func (db *DB) UpdateObject(ctx context.Context, obj *models.ArchiveObject) error {
	obj.UpdatedAt = time.Now()
	loc := obj.Location
	if loc == nil {
		loc = &models.ObjectLocation{}
	}
	_, err := db.Pool.Exec(ctx, `
		UPDATE archive_objects
		SET code = $2, title = $3, description = $4, date = $5,
		    category_id = $6, material_id = $7, location_id = $8,
		    location = $9, sub_location = $10, location_details = $11,
		    tags = $12, updated_at = $13
		WHERE id = $1
	`, obj.ID, obj.Code, obj.Title, obj.Description, obj.Date,
		obj.CategoryID, obj.MaterialID, loc.LocationID,
		loc.Location, loc.SubLocation, loc.Details, obj.Tags, obj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	return nil
}

// DeleteObject removes an archive object and its media and relations.
func (db *DB) DeleteObject(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM archive_objects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// recordObjectChange writes an object change-log entry inside a transaction.
func recordObjectChange(ctx context.Context, tx pgx.Tx, log *models.ObjectChangeLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO object_change_logs (id, object_id, user_id, action,
		                                previous_snapshot, new_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.ObjectID, log.UserID, string(log.Action),
		log.PreviousSnapshot, log.NewSnapshot, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("record object change: %w", err)
	}
	return nil
}

// serializeObjectState renders an object's current row as the flat JSON
// document stored in change-log snapshots.
func serializeObjectState(obj *models.ArchiveObject) (json.RawMessage, error) {
	state := map[string]any{
		"code":        obj.Code,
		"title":       obj.Title,
		"description": obj.Description,
		"date":        obj.Date,
		"tags":        obj.Tags,
	}
	if obj.CategoryID != nil {
		state["category_id"] = obj.CategoryID.String()
	}
	if obj.MaterialID != nil {
		state["material_id"] = obj.MaterialID.String()
	}
	if obj.Location != nil && !obj.Location.IsEmpty() {
		state["location"] = obj.Location.Location
		state["sub_location"] = obj.Location.SubLocation
		state["location_details"] = obj.Location.Details
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("serialize object state: %w", err)
	}
	return raw, nil
}
