package models

import (
	"time"

	"github.com/google/uuid"
)

// Menu represents a navigation entry in the console sidebar.
// Menus form a shallow tree: top-level entries with ParentID nil and
// children ordered by Position within their parent.
type Menu struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Label     string     `json:"label"`
	Path      string     `json:"path"`
	Icon      string     `json:"icon,omitempty"`
	Position  int        `json:"position"`
	IsVisible bool       `json:"is_visible"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewMenu creates a new visible Menu at the given position.
func NewMenu(label, path string, position int) *Menu {
	now := time.Now()
	return &Menu{
		ID:        uuid.New(),
		Label:     label,
		Path:      path,
		Position:  position,
		IsVisible: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
