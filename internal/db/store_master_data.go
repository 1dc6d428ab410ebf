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

// Master data methods: categories, materials, storage locations. The three
// tables share one shape, so the queries are generated per table name from
// a fixed allowlist.

type masterDataRow struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	tableCategories       = "categories"
	tableMaterials        = "materials"
	tableStorageLocations = "storage_locations"
)

func (db *DB) createMasterData(ctx context.Context, table string, row masterDataRow) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, table)
	_, err := db.Pool.Exec(ctx, query, row.ID, row.Name, row.Description, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create %s row: %w", table, err)
	}
	return nil
}

func (db *DB) getMasterData(ctx context.Context, table string, id uuid.UUID) (*masterDataRow, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, created_at, updated_at FROM %s WHERE id = $1
	`, table)
	var row masterDataRow
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Name, &row.Description, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s row: %w", table, err)
	}
	return &row, nil
}

func (db *DB) listMasterData(ctx context.Context, table string) ([]masterDataRow, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, created_at, updated_at FROM %s ORDER BY name
	`, table)
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []masterDataRow
	for rows.Next() {
		var row masterDataRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Description, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func (db *DB) updateMasterData(ctx context.Context, table string, row masterDataRow) error {
	query := fmt.Sprintf(`
		UPDATE %s SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, table)
	_, err := db.Pool.Exec(ctx, query, row.ID, row.Name, row.Description, time.Now())
	if err != nil {
		return fmt.Errorf("update %s row: %w", table, err)
	}
	return nil
}

func (db *DB) deleteMasterData(ctx context.Context, table string, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	if _, err := db.Pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s row: %w", table, err)
	}
	return nil
}

// Categories

// CreateCategory creates a new category.
func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	return db.createMasterData(ctx, tableCategories, masterDataRow{
		ID: c.ID, Name: c.Name, Description: c.Description,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	})
}

// GetCategoryByID returns a category by ID.
func (db *DB) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row, err := db.getMasterData(ctx, tableCategories, id)
	if err != nil {
		return nil, err
	}
	return &models.Category{ID: row.ID, Name: row.Name, Description: row.Description,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.listMasterData(ctx, tableCategories)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, &models.Category{ID: row.ID, Name: row.Name,
			Description: row.Description, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt})
	}
	return out, nil
}

// UpdateCategory updates a category.
func (db *DB) UpdateCategory(ctx context.Context, c *models.Category) error {
	return db.updateMasterData(ctx, tableCategories, masterDataRow{
		ID: c.ID, Name: c.Name, Description: c.Description,
	})
}

// DeleteCategory removes a category.
func (db *DB) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return db.deleteMasterData(ctx, tableCategories, id)
}

// Materials

// CreateMaterial creates a new material.
func (db *DB) CreateMaterial(ctx context.Context, m *models.Material) error {
	return db.createMasterData(ctx, tableMaterials, masterDataRow{
		ID: m.ID, Name: m.Name, Description: m.Description,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	})
}

// GetMaterialByID returns a material by ID.
func (db *DB) GetMaterialByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	row, err := db.getMasterData(ctx, tableMaterials, id)
	if err != nil {
		return nil, err
	}
	return &models.Material{ID: row.ID, Name: row.Name, Description: row.Description,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// ListMaterials returns all materials ordered by name.
func (db *DB) ListMaterials(ctx context.Context) ([]*models.Material, error) {
	rows, err := db.listMasterData(ctx, tableMaterials)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Material, 0, len(rows))
	for _, row := range rows {
		out = append(out, &models.Material{ID: row.ID, Name: row.Name,
			Description: row.Description, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt})
	}
	return out, nil
}

// UpdateMaterial updates a material.
func (db *DB) UpdateMaterial(ctx context.Context, m *models.Material) error {
	return db.updateMasterData(ctx, tableMaterials, masterDataRow{
		ID: m.ID, Name: m.Name, Description: m.Description,
	})
}

// DeleteMaterial removes a material.
func (db *DB) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	return db.deleteMasterData(ctx, tableMaterials, id)
}

// Storage locations

// CreateStorageLocation creates a new storage location.
func (db *DB) CreateStorageLocation(ctx context.Context, l *models.StorageLocation) error {
	return db.createMasterData(ctx, tableStorageLocations, masterDataRow{
		ID: l.ID, Name: l.Name, Description: l.Description,
		CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
	})
}

// GetStorageLocationByID returns a storage location by ID.
func (db *DB) GetStorageLocationByID(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error) {
	row, err := db.getMasterData(ctx, tableStorageLocations, id)
	if err != nil {
		return nil, err
	}
	return &models.StorageLocation{ID: row.ID, Name: row.Name, Description: row.Description,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// ListStorageLocations returns all storage locations ordered by name.
func (db *DB) ListStorageLocations(ctx context.Context) ([]*models.StorageLocation, error) {
	rows, err := db.listMasterData(ctx, tableStorageLocations)
	if err != nil {
		return nil, err
	}
	out := make([]*models.StorageLocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, &models.StorageLocation{ID: row.ID, Name: row.Name,
			Description: row.Description, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt})
	}
	return out, nil
}

// UpdateStorageLocation updates a storage location.
func (db *DB) UpdateStorageLocation(ctx context.Context, l *models.StorageLocation) error {
	return db.updateMasterData(ctx, tableStorageLocations, masterDataRow{
		ID: l.ID, Name: l.Name, Description: l.Description,
	})
}

// DeleteStorageLocation removes a storage location.
func (db *DB) DeleteStorageLocation(ctx context.Context, id uuid.UUID) error {
	return db.deleteMasterData(ctx, tableStorageLocations, id)
}
