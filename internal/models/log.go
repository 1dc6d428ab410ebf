package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LogKind discriminates the closed set of log entry types. Every log record
// carries exactly one kind; consumers switch on it exhaustively instead of
// probing loosely-typed fields.
type LogKind string

const (
	// LogKindActivity records a user action in the console.
	LogKindActivity LogKind = "activity"
	// LogKindObjectChange records a persisted object mutation with
	// before/after snapshots.
	LogKindObjectChange LogKind = "object_change"
	// LogKindVisit records a page or object view.
	LogKindVisit LogKind = "visit"
)

// LogEntry is implemented by all log record types.
type LogEntry interface {
	Kind() LogKind
}

// ActivityAction is the type of user action recorded in an activity log.
type ActivityAction string

const (
	ActivityActionLogin   ActivityAction = "login"
	ActivityActionLogout  ActivityAction = "logout"
	ActivityActionCreate  ActivityAction = "create"
	ActivityActionUpdate  ActivityAction = "update"
	ActivityActionDelete  ActivityAction = "delete"
	ActivityActionApprove ActivityAction = "approve"
	ActivityActionReject  ActivityAction = "reject"
	ActivityActionSubmit  ActivityAction = "submit"
	ActivityActionCancel  ActivityAction = "cancel"
)

// ActivityLog records a user action against a console resource.
type ActivityLog struct {
	ID           uuid.UUID      `json:"id"`
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	Action       ActivityAction `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *uuid.UUID     `json:"resource_id,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Details      string         `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Kind implements LogEntry.
func (l *ActivityLog) Kind() LogKind { return LogKindActivity }

// NewActivityLog creates a new ActivityLog entry.
func NewActivityLog(action ActivityAction, resourceType string) *ActivityLog {
	return &ActivityLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		CreatedAt:    time.Now(),
	}
}

// WithUser sets the acting user.
func (l *ActivityLog) WithUser(userID uuid.UUID) *ActivityLog {
	l.UserID = &userID
	return l
}

// WithResource sets the resource being acted upon.
func (l *ActivityLog) WithResource(resourceID uuid.UUID) *ActivityLog {
	l.ResourceID = &resourceID
	return l
}

// WithRequestInfo sets HTTP request information.
func (l *ActivityLog) WithRequestInfo(ipAddress, userAgent string) *ActivityLog {
	l.IPAddress = ipAddress
	l.UserAgent = userAgent
	return l
}

// WithDetails sets additional free-text context.
func (l *ActivityLog) WithDetails(details string) *ActivityLog {
	l.Details = details
	return l
}

// ObjectChangeLog records a persisted mutation of an archive object. The
// snapshots are the full serialized object state before and after; either
// may be absent (CREATE has no previous state, DELETE has no new state).
type ObjectChangeLog struct {
	ID               uuid.UUID       `json:"id"`
	ObjectID         uuid.UUID       `json:"object_id"`
	UserID           *uuid.UUID      `json:"user_id,omitempty"`
	Action           SnapshotAction  `json:"action"`
	PreviousSnapshot json.RawMessage `json:"previous_snapshot,omitempty"`
	NewSnapshot      json.RawMessage `json:"new_snapshot,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Kind implements LogEntry.
func (l *ObjectChangeLog) Kind() LogKind { return LogKindObjectChange }

// VisitLog records a view of an archive object or console page.
type VisitLog struct {
	ID        uuid.UUID  `json:"id"`
	ObjectID  *uuid.UUID `json:"object_id,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Path      string     `json:"path"`
	IPAddress string     `json:"ip_address,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Kind implements LogEntry.
func (l *VisitLog) Kind() LogKind { return LogKindVisit }
