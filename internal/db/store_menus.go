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

// Menu methods

// CreateMenu creates a new menu entry.
func (db *DB) CreateMenu(ctx context.Context, menu *models.Menu) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO menus (id, parent_id, label, path, icon, position, is_visible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, menu.ID, menu.ParentID, menu.Label, menu.Path, menu.Icon,
		menu.Position, menu.IsVisible, menu.CreatedAt, menu.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create menu: %w", err)
	}
	return nil
}

// GetMenuByID returns a menu entry by ID.
func (db *DB) GetMenuByID(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	var m models.Menu
	err := db.Pool.QueryRow(ctx, `
		SELECT id, parent_id, label, path, icon, position, is_visible, created_at, updated_at
		FROM menus
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ParentID, &m.Label, &m.Path, &m.Icon,
		&m.Position, &m.IsVisible, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}
	return &m, nil
}

// ListMenus returns all menus ordered for sidebar rendering: parents first,
// then position within each parent.
func (db *DB) ListMenus(ctx context.Context) ([]*models.Menu, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, parent_id, label, path, icon, position, is_visible, created_at, updated_at
		FROM menus
		ORDER BY parent_id NULLS FIRST, position, label
	`)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer rows.Close()

	var menus []*models.Menu
	for rows.Next() {
		var m models.Menu
		if err := rows.Scan(&m.ID, &m.ParentID, &m.Label, &m.Path, &m.Icon,
			&m.Position, &m.IsVisible, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		menus = append(menus, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menus: %w", err)
	}
	return menus, nil
}

// UpdateMenu updates a menu entry.
func (db *DB) UpdateMenu(ctx context.Context, menu *models.Menu) error {
	menu.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE menus
		SET parent_id = $2, label = $3, path = $4, icon = $5, position = $6,
		    is_visible = $7, updated_at = $8
		WHERE id = $1
	`, menu.ID, menu.ParentID, menu.Label, menu.Path, menu.Icon,
		menu.Position, menu.IsVisible, menu.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	return nil
}

// DeleteMenu removes a menu entry and its children.
func (db *DB) DeleteMenu(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	return nil
}
