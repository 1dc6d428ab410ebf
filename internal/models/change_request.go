package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRequestStatus is the review status of a change request.
type ChangeRequestStatus string

const (
	// ChangeRequestPending awaits its first review.
	ChangeRequestPending ChangeRequestStatus = "PENDING"
	// ChangeRequestReviewed has at least one reviewer approval.
	ChangeRequestReviewed ChangeRequestStatus = "REVIEWED"
	// ChangeRequestApproved was submitted after quorum; the change is applied.
	ChangeRequestApproved ChangeRequestStatus = "APPROVED"
	// ChangeRequestRejected was declined with a reason.
	ChangeRequestRejected ChangeRequestStatus = "REJECTED"
	// ChangeRequestCanceled was withdrawn before a decision.
	ChangeRequestCanceled ChangeRequestStatus = "CANCELED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s ChangeRequestStatus) IsTerminal() bool {
	switch s {
	case ChangeRequestApproved, ChangeRequestRejected, ChangeRequestCanceled:
		return true
	}
	return false
}

// IsValid reports whether the status is a known value.
func (s ChangeRequestStatus) IsValid() bool {
	switch s {
	case ChangeRequestPending, ChangeRequestReviewed, ChangeRequestApproved,
		ChangeRequestRejected, ChangeRequestCanceled:
		return true
	}
	return false
}

// ChangeRequest is a proposed modification to an archive object that must
// pass two-reviewer quorum before it is applied.
type ChangeRequest struct {
	ID uuid.UUID `json:"id"`
	// ObjectID is nil for CREATE actions, where the object does not exist yet.
	ObjectID      *uuid.UUID          `json:"object_id,omitempty"`
	Status        ChangeRequestStatus `json:"status"`
	ProposedByID  uuid.UUID           `json:"proposed_by_id"`
	ReviewedByID  *uuid.UUID          `json:"reviewed_by_id,omitempty"`
	ReviewedAt    *time.Time          `json:"reviewed_at,omitempty"`
	ReviewedByID2 *uuid.UUID          `json:"reviewed_by_id2,omitempty"`
	ReviewedAt2   *time.Time          `json:"reviewed_at2,omitempty"`
	ReasonRejected string             `json:"reason_rejected,omitempty"`
	Snapshot      StructuredSnapshot  `json:"request_snapshot"`
	SubmittedAt   time.Time           `json:"submitted_at"`

	// Populated on detail reads.
	Object      *ArchiveObject `json:"object,omitempty"`
	ProposedBy  *User          `json:"proposed_by,omitempty"`
	ReviewedBy  *User          `json:"reviewed_by,omitempty"`
	ReviewedBy2 *User          `json:"reviewed_by2,omitempty"`
}

// NewChangeRequest creates a PENDING request wrapping the given snapshot.
func NewChangeRequest(objectID *uuid.UUID, proposedBy uuid.UUID, snapshot StructuredSnapshot) *ChangeRequest {
	return &ChangeRequest{
		ID:           uuid.New(),
		ObjectID:     objectID,
		Status:       ChangeRequestPending,
		ProposedByID: proposedBy,
		Snapshot:     snapshot,
		SubmittedAt:  time.Now(),
	}
}

// HasTwoReviewers reports whether the quorum of two reviewers is met.
func (r *ChangeRequest) HasTwoReviewers() bool {
	return r.ReviewedByID != nil && r.ReviewedByID2 != nil
}

// HasReviewer reports whether the given user already occupies a reviewer slot.
func (r *ChangeRequest) HasReviewer(userID uuid.UUID) bool {
	if r.ReviewedByID != nil && *r.ReviewedByID == userID {
		return true
	}
	if r.ReviewedByID2 != nil && *r.ReviewedByID2 == userID {
		return true
	}
	return false
}

// IsTerminal reports whether the request's status is terminal.
func (r *ChangeRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}
