package review

import (
	"fmt"
	"math"
	"strings"

	"github.com/historia/cockpit-archive/internal/models"
)

// FieldValue is a single populated field in a basic-section diff.
type FieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// DiffBasic returns the populated scalar fields of a basic change as
// field/value pairs. Unset fields are omitted. Safe to call with nil.
func DiffBasic(basic *models.BasicChange) []FieldValue {
	if basic == nil {
		return nil
	}

	var out []FieldValue
	if basic.Code != nil {
		out = append(out, FieldValue{Field: "code", Value: *basic.Code})
	}
	if basic.Title != nil {
		out = append(out, FieldValue{Field: "title", Value: *basic.Title})
	}
	if basic.Description != nil {
		out = append(out, FieldValue{Field: "description", Value: *basic.Description})
	}
	if basic.Date != nil {
		out = append(out, FieldValue{Field: "date", Value: *basic.Date})
	}
	if basic.CategoryID != nil {
		value := basic.Category
		if value == "" {
			value = basic.CategoryID.String()
		}
		out = append(out, FieldValue{Field: "category", Value: value})
	}
	if basic.MaterialID != nil {
		value := basic.Material
		if value == "" {
			value = basic.MaterialID.String()
		}
		out = append(out, FieldValue{Field: "material", Value: value})
	}
	return out
}

// MediaItem is a display-ready descriptor for one media entry in a diff.
type MediaItem struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Size     string `json:"size,omitempty"`
	Position *int   `json:"position,omitempty"`
	IsCover  *bool  `json:"is_cover,omitempty"`
}

// MediaDiff is the display-ready breakdown of a media change section.
type MediaDiff struct {
	ToAddCount    int         `json:"to_add_count"`
	ToUpdateCount int         `json:"to_update_count"`
	ToDeleteCount int         `json:"to_delete_count"`
	ToAdd         []MediaItem `json:"to_add,omitempty"`
	ToUpdate      []MediaItem `json:"to_update,omitempty"`
	ToDelete      []MediaItem `json:"to_delete,omitempty"`
}

// DiffMedia renders a media change section for display: counts per
// operation, filenames extracted from URLs, humanized sizes. Safe to call
// with nil.
func DiffMedia(media *models.MediaChange) MediaDiff {
	var d MediaDiff
	if media == nil {
		return d
	}

	d.ToAddCount = len(media.ToAdd)
	d.ToUpdateCount = len(media.ToUpdate)
	d.ToDeleteCount = len(media.ToDelete)

	for _, m := range media.ToAdd {
		item := MediaItem{
			Filename: FilenameFromURL(m.URL),
			MimeType: m.MimeType,
		}
		if m.Size > 0 {
			item.Size = FormatFileSize(m.Size)
		}
		pos := m.Position
		cover := m.IsCover
		item.Position = &pos
		item.IsCover = &cover
		d.ToAdd = append(d.ToAdd, item)
	}
	for _, m := range media.ToUpdate {
		d.ToUpdate = append(d.ToUpdate, MediaItem{
			Filename: m.MediaID.String(),
			MimeType: m.MimeType,
			Position: m.Position,
			IsCover:  m.IsCover,
		})
	}
	for _, m := range media.ToDelete {
		d.ToDelete = append(d.ToDelete, MediaItem{
			Filename: FilenameFromURL(m.URL),
			MimeType: m.MimeType,
		})
	}
	return d
}

// TagsDiff shows both full tag lists side by side. No set difference is
// computed; reviewers compare visually.
type TagsDiff struct {
	Current  []string `json:"current"`
	Proposed []string `json:"proposed"`
}

// DiffTags renders a tags change section. Safe to call with nil.
func DiffTags(tags *models.TagsChange) TagsDiff {
	if tags == nil {
		return TagsDiff{}
	}
	return TagsDiff{Current: tags.Current, Proposed: tags.Proposed}
}

// LocationDiff shows the rendered location before and after.
type LocationDiff struct {
	Current  string `json:"current"`
	Proposed string `json:"proposed"`
}

// DiffLocation renders a location change section. An absent or fully empty
// location triple renders as "no location set". Safe to call with nil.
func DiffLocation(location *models.LocationChange) LocationDiff {
	if location == nil {
		return LocationDiff{
			Current:  renderLocation(nil),
			Proposed: renderLocation(nil),
		}
	}
	return LocationDiff{
		Current:  renderLocation(location.Current),
		Proposed: renderLocation(location.Proposed),
	}
}

func renderLocation(l *models.ObjectLocation) string {
	if l.IsEmpty() {
		return "no location set"
	}
	parts := make([]string, 0, 3)
	if l.Location != "" {
		parts = append(parts, l.Location)
	}
	if l.SubLocation != "" {
		parts = append(parts, l.SubLocation)
	}
	if l.Details != "" {
		parts = append(parts, l.Details)
	}
	return strings.Join(parts, " / ")
}

// FilenameFromURL extracts the final path segment of a media URL, with any
// query string stripped.
func FilenameFromURL(url string) string {
	if url == "" {
		return ""
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

var fileSizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// FormatFileSize renders a byte count as a human-readable string using
// base-1024 units, rounded to two decimals. Zero renders as "0 Bytes".
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	exp := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if exp >= len(fileSizeUnits) {
		exp = len(fileSizeUnits) - 1
	}
	value := float64(size) / math.Pow(1024, float64(exp))
	rounded := math.Round(value*100) / 100
	return fmt.Sprintf("%s %s", trimTrailingZeros(rounded), fileSizeUnits[exp])
}

// trimTrailingZeros formats with up to two decimals, dropping trailing
// zeros so 1.00 renders as "1" and 1.50 as "1.5".
func trimTrailingZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
