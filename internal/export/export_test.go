package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/historia/cockpit-archive/internal/models"
)

type memStore struct {
	categories []*models.Category
	materials  []*models.Material
	locations  []*models.StorageLocation
	menus      []*models.Menu
}

func (m *memStore) ListCategories(context.Context) ([]*models.Category, error) {
	return m.categories, nil
}
func (m *memStore) ListMaterials(context.Context) ([]*models.Material, error) {
	return m.materials, nil
}
func (m *memStore) ListStorageLocations(context.Context) ([]*models.StorageLocation, error) {
	return m.locations, nil
}
func (m *memStore) ListMenus(context.Context) ([]*models.Menu, error) {
	return m.menus, nil
}
func (m *memStore) CreateCategory(_ context.Context, c *models.Category) error {
	m.categories = append(m.categories, c)
	return nil
}
func (m *memStore) CreateMaterial(_ context.Context, mat *models.Material) error {
	m.materials = append(m.materials, mat)
	return nil
}
func (m *memStore) CreateStorageLocation(_ context.Context, l *models.StorageLocation) error {
	m.locations = append(m.locations, l)
	return nil
}
func (m *memStore) CreateMenu(_ context.Context, menu *models.Menu) error {
	m.menus = append(m.menus, menu)
	return nil
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	src := &memStore{}
	src.categories = append(src.categories, models.NewCategory("Ceramics", "Fired clay objects"))
	src.materials = append(src.materials, models.NewMaterial("Bronze", ""))
	src.locations = append(src.locations, models.NewStorageLocation("Depot A", "Main depot"))

	root := models.NewMenu("Archive", "/archive", 0)
	child := models.NewMenu("Coins", "/archive/coins", 0)
	child.ParentID = &root.ID
	src.menus = append(src.menus, root, child)

	var buf bytes.Buffer
	if err := NewExporter(src).Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Ceramics", "Bronze", "Depot A", "Archive", "Coins", "version: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("export output missing %q:\n%s", want, out)
		}
	}

	dst := &memStore{}
	if err := NewExporter(dst).Import(ctx, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	if len(dst.categories) != 1 || dst.categories[0].Name != "Ceramics" {
		t.Errorf("imported categories = %+v", dst.categories)
	}
	if len(dst.materials) != 1 || dst.materials[0].Name != "Bronze" {
		t.Errorf("imported materials = %+v", dst.materials)
	}
	if len(dst.locations) != 1 {
		t.Errorf("imported locations = %+v", dst.locations)
	}
	if len(dst.menus) != 2 {
		t.Fatalf("expected 2 imported menus, got %d", len(dst.menus))
	}
	if dst.menus[0].Label != "Archive" || dst.menus[0].ParentID != nil {
		t.Errorf("root menu = %+v", dst.menus[0])
	}
	if dst.menus[1].Label != "Coins" || dst.menus[1].ParentID == nil {
		t.Fatalf("child menu = %+v", dst.menus[1])
	}
	if *dst.menus[1].ParentID != dst.menus[0].ID {
		t.Error("child menu not linked to the imported root")
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	doc := "version: 7\ncategories:\n  - name: X\n"
	err := NewExporter(&memStore{}).Import(context.Background(), strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
}
