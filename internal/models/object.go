package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveObject is a catalogued item in the archive.
type ArchiveObject struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        string     `json:"date,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	MaterialID  *uuid.UUID `json:"material_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Populated on detail reads.
	Media     []*ObjectMedia    `json:"media,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Location  *ObjectLocation   `json:"location,omitempty"`
	Relations []*ObjectRelation `json:"relations,omitempty"`
}

// NewArchiveObject creates a new ArchiveObject.
func NewArchiveObject(code, title string) *ArchiveObject {
	now := time.Now()
	return &ArchiveObject{
		ID:        uuid.New(),
		Code:      code,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ObjectMedia is a file attached to an archive object. The binary lives
// behind the media service; only the URL is stored here.
type ObjectMedia struct {
	ID       uuid.UUID `json:"id"`
	ObjectID uuid.UUID `json:"object_id"`
	URL      string    `json:"url"`
	MimeType string    `json:"mime_type,omitempty"`
	Position int       `json:"position"`
	IsCover  bool      `json:"is_cover"`
	Size     int64     `json:"size,omitempty"`
}

// ObjectLocation is the physical placement of an object within the archive.
type ObjectLocation struct {
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
	Location    string     `json:"location,omitempty"`
	SubLocation string     `json:"sub_location,omitempty"`
	Details     string     `json:"details,omitempty"`
}

// IsEmpty reports whether no location information is set.
func (l *ObjectLocation) IsEmpty() bool {
	return l == nil || (l.Location == "" && l.SubLocation == "" && l.Details == "")
}

// ObjectRelation links two archive objects.
type ObjectRelation struct {
	RelatedObjectID uuid.UUID `json:"related_object_id"`
	RelatedCode     string    `json:"related_code,omitempty"`
	RelatedTitle    string    `json:"related_title,omitempty"`
	Relation        string    `json:"relation,omitempty"`
}
