// Package export serializes master data and the menu tree to YAML, for
// backup and for seeding fresh installations.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/historia/cockpit-archive/internal/models"
)

// Store defines the data access the exporter needs.
type Store interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListMaterials(ctx context.Context) ([]*models.Material, error)
	ListStorageLocations(ctx context.Context) ([]*models.StorageLocation, error)
	ListMenus(ctx context.Context) ([]*models.Menu, error)

	CreateCategory(ctx context.Context, c *models.Category) error
	CreateMaterial(ctx context.Context, m *models.Material) error
	CreateStorageLocation(ctx context.Context, l *models.StorageLocation) error
	CreateMenu(ctx context.Context, m *models.Menu) error
}

// Document is the YAML export envelope.
type Document struct {
	Version          int            `yaml:"version"`
	Categories       []NamedItem    `yaml:"categories,omitempty"`
	Materials        []NamedItem    `yaml:"materials,omitempty"`
	StorageLocations []NamedItem    `yaml:"storage_locations,omitempty"`
	Menus            []MenuItem     `yaml:"menus,omitempty"`
}

// NamedItem is a master data entry in the export document.
type NamedItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// MenuItem is a menu tree node in the export document. Children are nested
// so the tree survives a round trip without internal IDs.
type MenuItem struct {
	Label     string     `yaml:"label"`
	Path      string     `yaml:"path,omitempty"`
	IsVisible bool       `yaml:"is_visible"`
	Children  []MenuItem `yaml:"children,omitempty"`
}

// Exporter reads console data and writes export documents.
type Exporter struct {
	store Store
}

// NewExporter creates an Exporter.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the current master data and menu tree as YAML.
func (e *Exporter) Export(ctx context.Context, w io.Writer) error {
	doc := Document{Version: 1}

	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("export categories: %w", err)
	}
	for _, c := range categories {
		doc.Categories = append(doc.Categories, NamedItem{Name: c.Name, Description: c.Description})
	}

	materials, err := e.store.ListMaterials(ctx)
	if err != nil {
		return fmt.Errorf("export materials: %w", err)
	}
	for _, m := range materials {
		doc.Materials = append(doc.Materials, NamedItem{Name: m.Name, Description: m.Description})
	}

	locations, err := e.store.ListStorageLocations(ctx)
	if err != nil {
		return fmt.Errorf("export storage locations: %w", err)
	}
	for _, l := range locations {
		doc.StorageLocations = append(doc.StorageLocations, NamedItem{Name: l.Name, Description: l.Description})
	}

	menus, err := e.store.ListMenus(ctx)
	if err != nil {
		return fmt.Errorf("export menus: %w", err)
	}
	doc.Menus = buildMenuTree(menus, nil)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export document: %w", err)
	}
	return enc.Close()
}

// buildMenuTree nests flat menu rows under their parents.
func buildMenuTree(menus []*models.Menu, parentID *uuid.UUID) []MenuItem {
	var items []MenuItem
	for _, m := range menus {
		if !sameParent(m.ParentID, parentID) {
			continue
		}
		items = append(items, MenuItem{
			Label:     m.Label,
			Path:      m.Path,
			IsVisible: m.IsVisible,
			Children:  buildMenuTree(menus, &m.ID),
		})
	}
	return items
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Import reads an export document and creates its entries. Existing data is
// left untouched; callers wanting a clean slate must wipe first.
func (e *Exporter) Import(ctx context.Context, r io.Reader) error {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode import document: %w", err)
	}
	if doc.Version != 1 {
		return fmt.Errorf("unsupported export document version %d", doc.Version)
	}

	for _, item := range doc.Categories {
		if err := e.store.CreateCategory(ctx, models.NewCategory(item.Name, item.Description)); err != nil {
			return fmt.Errorf("import category %q: %w", item.Name, err)
		}
	}
	for _, item := range doc.Materials {
		if err := e.store.CreateMaterial(ctx, models.NewMaterial(item.Name, item.Description)); err != nil {
			return fmt.Errorf("import material %q: %w", item.Name, err)
		}
	}
	for _, item := range doc.StorageLocations {
		if err := e.store.CreateStorageLocation(ctx, models.NewStorageLocation(item.Name, item.Description)); err != nil {
			return fmt.Errorf("import storage location %q: %w", item.Name, err)
		}
	}

	return e.importMenus(ctx, doc.Menus, nil, 0)
}

func (e *Exporter) importMenus(ctx context.Context, items []MenuItem, parentID *uuid.UUID, basePos int) error {
	for i, item := range items {
		menu := models.NewMenu(item.Label, item.Path, basePos+i)
		menu.ParentID = parentID
		menu.IsVisible = item.IsVisible
		if err := e.store.CreateMenu(ctx, menu); err != nil {
			return fmt.Errorf("import menu %q: %w", item.Label, err)
		}
		if err := e.importMenus(ctx, item.Children, &menu.ID, 0); err != nil {
			return err
		}
	}
	return nil
}
