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

// Group methods

// CreateGroup creates a new group.
func (db *DB) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO groups (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, group.ID, group.Name, group.Description, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// GetGroupByID returns a group with its member and menu IDs.
func (db *DB) GetGroupByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM groups
		WHERE id = $1
	`, id).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedAt, &group.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT user_id FROM group_memberships WHERE group_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		group.MemberIDs = append(group.MemberIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}

	menuRows, err := db.Pool.Query(ctx,
		`SELECT menu_id FROM group_menus WHERE group_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get group menus: %w", err)
	}
	defer menuRows.Close()
	for menuRows.Next() {
		var menuID uuid.UUID
		if err := menuRows.Scan(&menuID); err != nil {
			return nil, fmt.Errorf("scan group menu: %w", err)
		}
		group.MenuIDs = append(group.MenuIDs, menuID)
	}
	if err := menuRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group menus: %w", err)
	}

	return &group, nil
}

// ListGroups returns all groups ordered by name.
func (db *DB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM groups
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup updates a group's name and description.
func (db *DB) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE groups SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, group.ID, group.Name, group.Description, group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group and its memberships.
func (db *DB) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// AddGroupMember adds a user to a group. Adding an existing member is a no-op.
func (db *DB) AddGroupMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO group_memberships (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember removes a user from a group.
func (db *DB) RemoveGroupMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// SetGroupMenus replaces the set of menus visible to a group.
func (db *DB) SetGroupMenus(ctx context.Context, groupID uuid.UUID, menuIDs []uuid.UUID) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM group_menus WHERE group_id = $1`, groupID); err != nil {
			return fmt.Errorf("clear group menus: %w", err)
		}
		for _, menuID := range menuIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO group_menus (group_id, menu_id) VALUES ($1, $2)`, groupID, menuID); err != nil {
				return fmt.Errorf("add group menu: %w", err)
			}
		}
		return nil
	})
}
