package models

import (
	"time"

	"github.com/google/uuid"
)

// Group represents a named collection of users sharing menu access.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// MemberIDs is populated on detail reads, not list queries.
	MemberIDs []uuid.UUID `json:"member_ids,omitempty"`
	// MenuIDs are the menus members of this group can see.
	MenuIDs []uuid.UUID `json:"menu_ids,omitempty"`
}

// NewGroup creates a new Group.
func NewGroup(name, description string) *Group {
	now := time.Now()
	return &Group{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GroupMembership links a user to a group.
type GroupMembership struct {
	GroupID   uuid.UUID `json:"group_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
