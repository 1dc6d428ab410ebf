// Package review implements the change-request approval workflow: the
// status state machine with its two-reviewer quorum rule, and the snapshot
// diff rendering used by the review screens.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/historia/cockpit-archive/internal/models"
)

// Sentinel errors for the review workflow. Callers match with errors.Is.
var (
	// ErrInvalidTransition means the request's current status does not
	// permit the attempted action.
	ErrInvalidTransition = errors.New("change request status does not allow this action")
	// ErrValidation means the action's input was invalid.
	ErrValidation = errors.New("validation failed")
	// ErrQuorumNotMet means submit was attempted with fewer than two
	// distinct reviewer approvals.
	ErrQuorumNotMet = errors.New("two distinct reviewer approvals are required before submit")
	// ErrDuplicateReviewer means the acting user already occupies a
	// reviewer slot on the request.
	ErrDuplicateReviewer = errors.New("user has already reviewed this change request")
	// ErrNotAuthorized means the acting user may not perform the action.
	ErrNotAuthorized = errors.New("not authorized to perform this action")
	// ErrNotFound means the change request does not exist.
	ErrNotFound = errors.New("change request not found")
)

// Session identifies the acting user. It is passed explicitly into every
// operation so the machine carries no ambient authentication state.
type Session struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Store is the persistence boundary for change requests. All conditional
// methods are atomic at the database: they mutate only when the row still
// satisfies the stated predicate and report whether a row was changed, so
// concurrent reviewers cannot claim the same slot or revive a terminal
// request.
type Store interface {
	GetChangeRequestByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error)

	// ClaimFirstReviewerSlot sets reviewed_by and moves the request to
	// REVIEWED, only while reviewed_by is still unset and the status is
	// PENDING or REVIEWED.
	ClaimFirstReviewerSlot(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)

	// ClaimSecondReviewerSlot sets reviewed_by2, only while the first slot
	// is held by a different user, the second slot is unset, and the status
	// is PENDING or REVIEWED.
	ClaimSecondReviewerSlot(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)

	// MarkRejected moves a PENDING or REVIEWED request to REJECTED with
	// the given reason.
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) (bool, error)

	// MarkCanceled moves a PENDING or REVIEWED request to CANCELED.
	MarkCanceled(ctx context.Context, id uuid.UUID) (bool, error)

	// SubmitApproved moves a PENDING or REVIEWED request with both reviewer
	// slots filled to APPROVED and applies its snapshot to the archive
	// object in the same transaction.
	SubmitApproved(ctx context.Context, id uuid.UUID) (bool, error)
}

// Machine enforces the legal status transitions for change requests. It is
// the only mutation path: handlers call it, it calls the store's conditional
// writes, and direct field writes are impossible by construction.
//
// The machine does not log or retry; every failure is returned to the
// caller, which decides between surfacing and retrying.
type Machine struct {
	store Store
}

// NewMachine creates a Machine backed by the given store.
func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// Approve records an approval by the acting user, filling the first free
// reviewer slot. Slot assignment is first come, first served: whichever
// approval reaches the database first claims slot one. The same user can
// never occupy both slots.
func (m *Machine) Approve(ctx context.Context, id uuid.UUID, sess Session) (*models.ChangeRequest, error) {
	req, err := m.store.GetChangeRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, fmt.Errorf("approve %s request: %w", req.Status, ErrInvalidTransition)
	}
	if req.HasReviewer(sess.UserID) {
		return nil, ErrDuplicateReviewer
	}

	at := time.Now()
	if req.ReviewedByID == nil {
		claimed, err := m.store.ClaimFirstReviewerSlot(ctx, id, sess.UserID, at)
		if err != nil {
			return nil, err
		}
		if claimed {
			return m.store.GetChangeRequestByID(ctx, id)
		}
		// Lost the race for slot one; fall through to slot two.
	}

	claimed, err := m.store.ClaimSecondReviewerSlot(ctx, id, sess.UserID, at)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, m.staleApproveError(ctx, id, sess.UserID)
	}
	return m.store.GetChangeRequestByID(ctx, id)
}

// staleApproveError re-reads the request to report why a slot claim failed.
func (m *Machine) staleApproveError(ctx context.Context, id, userID uuid.UUID) error {
	req, err := m.store.GetChangeRequestByID(ctx, id)
	if err != nil {
		return err
	}
	if req.HasReviewer(userID) {
		return ErrDuplicateReviewer
	}
	return fmt.Errorf("approve %s request: %w", req.Status, ErrInvalidTransition)
}

// Reject moves the request to REJECTED. A non-empty reason is required.
func (m *Machine) Reject(ctx context.Context, id uuid.UUID, sess Session, reason string) (*models.ChangeRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	req, err := m.store.GetChangeRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, fmt.Errorf("reject %s request: %w", req.Status, ErrInvalidTransition)
	}

	changed, err := m.store.MarkRejected(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("reject: request no longer eligible: %w", ErrInvalidTransition)
	}
	return m.store.GetChangeRequestByID(ctx, id)
}

// Submit finalizes the request: status moves to APPROVED and the proposed
// change is applied to the archive object. Requires the two-reviewer quorum.
func (m *Machine) Submit(ctx context.Context, id uuid.UUID, sess Session) (*models.ChangeRequest, error) {
	req, err := m.store.GetChangeRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, fmt.Errorf("submit %s request: %w", req.Status, ErrInvalidTransition)
	}
	if !req.HasTwoReviewers() {
		return nil, ErrQuorumNotMet
	}

	changed, err := m.store.SubmitApproved(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("submit: request no longer eligible: %w", ErrInvalidTransition)
	}
	return m.store.GetChangeRequestByID(ctx, id)
}

// Cancel withdraws the request. Only the proposer or an admin may cancel.
func (m *Machine) Cancel(ctx context.Context, id uuid.UUID, sess Session) (*models.ChangeRequest, error) {
	req, err := m.store.GetChangeRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, fmt.Errorf("cancel %s request: %w", req.Status, ErrInvalidTransition)
	}
	if req.ProposedByID != sess.UserID && !sess.IsAdmin {
		return nil, ErrNotAuthorized
	}

	changed, err := m.store.MarkCanceled(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("cancel: request no longer eligible: %w", ErrInvalidTransition)
	}
	return m.store.GetChangeRequestByID(ctx, id)
}
