package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole defines the role of a console user.
type UserRole string

const (
	// UserRoleAdmin has full access to manage the archive and its users.
	UserRoleAdmin UserRole = "admin"
	// UserRoleEditor can edit archive objects and propose changes.
	UserRoleEditor UserRole = "editor"
	// UserRoleViewer has read-only access.
	UserRoleViewer UserRole = "viewer"
)

// User represents a console user with local credentials.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given details.
func NewUser(email, name string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
