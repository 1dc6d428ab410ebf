package models

import "github.com/google/uuid"

// SnapshotAction is the kind of change a snapshot proposes.
type SnapshotAction string

const (
	SnapshotActionCreate SnapshotAction = "CREATE"
	SnapshotActionUpdate SnapshotAction = "UPDATE"
	SnapshotActionDelete SnapshotAction = "DELETE"
	SnapshotActionRevert SnapshotAction = "REVERT"
)

// IsValid reports whether the action is a known value.
func (a SnapshotAction) IsValid() bool {
	switch a {
	case SnapshotActionCreate, SnapshotActionUpdate, SnapshotActionDelete, SnapshotActionRevert:
		return true
	}
	return false
}

// StructuredSnapshot is the sparse, sectioned representation of what a
// change request proposes. Each section is present only if that aspect of
// the object changed. Write-once: set when the request is created and never
// mutated afterwards.
type StructuredSnapshot struct {
	Action       SnapshotAction   `json:"action"`
	Basic        *BasicChange     `json:"basic,omitempty"`
	Media        *MediaChange     `json:"media,omitempty"`
	Tags         *TagsChange      `json:"tags,omitempty"`
	Location     *LocationChange  `json:"location,omitempty"`
	Relations    *RelationsChange `json:"relations,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	ChangeReason string           `json:"change_reason,omitempty"`
}

// BasicChange holds proposed scalar field values. Unset fields are nil and
// mean "unchanged".
type BasicChange struct {
	Code        *string    `json:"code,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *string    `json:"date,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Category    string     `json:"category,omitempty"`
	MaterialID  *uuid.UUID `json:"material_id,omitempty"`
	Material    string     `json:"material,omitempty"`
}

// MediaChange holds three disjoint media operation lists.
type MediaChange struct {
	ToAdd    []*MediaToAdd    `json:"to_add,omitempty"`
	ToUpdate []*MediaToUpdate `json:"to_update,omitempty"`
	ToDelete []*MediaToDelete `json:"to_delete,omitempty"`
}

// MediaToAdd describes a new media file to attach.
type MediaToAdd struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Position int    `json:"position"`
	IsCover  bool   `json:"is_cover"`
	Size     int64  `json:"size,omitempty"`
}

// MediaToUpdate describes changed attributes of an existing media file.
type MediaToUpdate struct {
	MediaID  uuid.UUID `json:"media_id"`
	Position *int      `json:"position,omitempty"`
	IsCover  *bool     `json:"is_cover,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
}

// MediaToDelete identifies a media file to remove; URL and mime type are
// kept for display in the review screen.
type MediaToDelete struct {
	MediaID  uuid.UUID `json:"media_id"`
	URL      string    `json:"url,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
}

// TagsChange carries both full tag lists, before and after. No delta is
// computed; reviewers compare the lists side by side.
type TagsChange struct {
	Current  []string `json:"current"`
	Proposed []string `json:"proposed"`
}

// LocationChange carries the location triple before and after.
type LocationChange struct {
	Current  *ObjectLocation `json:"current,omitempty"`
	Proposed *ObjectLocation `json:"proposed,omitempty"`
}

// RelationsChange carries the relation lists before and after.
type RelationsChange struct {
	Current  []*ObjectRelation `json:"current,omitempty"`
	Proposed []*ObjectRelation `json:"proposed,omitempty"`
}

// IsEmpty reports whether the snapshot proposes no section changes at all.
func (s *StructuredSnapshot) IsEmpty() bool {
	return s.Basic == nil && s.Media == nil && s.Tags == nil &&
		s.Location == nil && s.Relations == nil
}
