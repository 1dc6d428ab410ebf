package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/historia/cockpit-archive/internal/models"
)

// memStore is an in-memory Store with the same conditional-write semantics
// as the SQL implementation.
type memStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ChangeRequest
	applied  []uuid.UUID
}

func newMemStore(reqs ...*models.ChangeRequest) *memStore {
	s := &memStore{requests: make(map[uuid.UUID]*models.ChangeRequest)}
	for _, r := range reqs {
		s.requests[r.ID] = r
	}
	return s
}

func (s *memStore) GetChangeRequestByID(_ context.Context, id uuid.UUID) (*models.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *memStore) eligible(req *models.ChangeRequest) bool {
	return req.Status == models.ChangeRequestPending || req.Status == models.ChangeRequestReviewed
}

func (s *memStore) ClaimFirstReviewerSlot(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || !s.eligible(req) || req.ReviewedByID != nil {
		return false, nil
	}
	req.ReviewedByID = &userID
	req.ReviewedAt = &at
	req.Status = models.ChangeRequestReviewed
	return true, nil
}

func (s *memStore) ClaimSecondReviewerSlot(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || !s.eligible(req) {
		return false, nil
	}
	if req.ReviewedByID == nil || *req.ReviewedByID == userID || req.ReviewedByID2 != nil {
		return false, nil
	}
	req.ReviewedByID2 = &userID
	req.ReviewedAt2 = &at
	return true, nil
}

func (s *memStore) MarkRejected(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || !s.eligible(req) {
		return false, nil
	}
	req.Status = models.ChangeRequestRejected
	req.ReasonRejected = reason
	return true, nil
}

func (s *memStore) MarkCanceled(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || !s.eligible(req) {
		return false, nil
	}
	req.Status = models.ChangeRequestCanceled
	return true, nil
}

func (s *memStore) SubmitApproved(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || !s.eligible(req) || !req.HasTwoReviewers() {
		return false, nil
	}
	req.Status = models.ChangeRequestApproved
	s.applied = append(s.applied, id)
	return true, nil
}

func pendingRequest(proposer uuid.UUID) *models.ChangeRequest {
	objectID := uuid.New()
	return models.NewChangeRequest(&objectID, proposer, models.StructuredSnapshot{
		Action:  models.SnapshotActionUpdate,
		Summary: "update title",
	})
}

func TestApproveThenSubmit(t *testing.T) {
	ctx := context.Background()
	proposer := uuid.New()
	userA := uuid.New()
	userB := uuid.New()

	req := pendingRequest(proposer)
	store := newMemStore(req)
	machine := NewMachine(store)

	got, err := machine.Approve(ctx, req.ID, Session{UserID: userA})
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if got.Status != models.ChangeRequestReviewed {
		t.Fatalf("expected REVIEWED after first approve, got %s", got.Status)
	}
	if got.ReviewedByID == nil || *got.ReviewedByID != userA {
		t.Fatal("expected user A in first reviewer slot")
	}
	if got.ReviewedAt == nil {
		t.Fatal("expected reviewed_at timestamp")
	}
	if got.HasTwoReviewers() {
		t.Fatal("quorum should not be met after one approval")
	}

	got, err = machine.Approve(ctx, req.ID, Session{UserID: userB})
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if got.ReviewedByID2 == nil || *got.ReviewedByID2 != userB {
		t.Fatal("expected user B in second reviewer slot")
	}
	if !got.HasTwoReviewers() {
		t.Fatal("quorum should be met after two approvals")
	}

	got, err = machine.Submit(ctx, req.ID, Session{UserID: userB})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != models.ChangeRequestApproved {
		t.Fatalf("expected APPROVED after submit, got %s", got.Status)
	}
	if len(store.applied) != 1 || store.applied[0] != req.ID {
		t.Fatal("expected snapshot application on submit")
	}
}

func TestSubmitRequiresQuorum(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	if _, err := machine.Submit(ctx, req.ID, Session{UserID: userA}); !errors.Is(err, ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet with zero reviewers, got %v", err)
	}

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userA}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := machine.Submit(ctx, req.ID, Session{UserID: userA}); !errors.Is(err, ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet with one reviewer, got %v", err)
	}
}

func TestNoDoubleApprovalBySameUser(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userA}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userA}); !errors.Is(err, ErrDuplicateReviewer) {
		t.Fatalf("expected ErrDuplicateReviewer, got %v", err)
	}

	got, err := machine.store.GetChangeRequestByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReviewedByID2 != nil {
		t.Fatal("second slot must stay empty after same-user re-approval")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	if _, err := machine.Reject(ctx, req.ID, Session{UserID: userA}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank reason, got %v", err)
	}

	got, err := machine.Reject(ctx, req.ID, Session{UserID: userA}, "bad data")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.ChangeRequestRejected {
		t.Fatalf("expected REJECTED, got %s", got.Status)
	}
	if got.ReasonRejected != "bad data" {
		t.Fatalf("expected reason recorded, got %q", got.ReasonRejected)
	}
}

func TestRejectPathBlocksFurtherActions(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	if _, err := machine.Reject(ctx, req.ID, Session{UserID: userA}, "bad data"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userB}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on approve after reject, got %v", err)
	}
	if _, err := machine.Submit(ctx, req.ID, Session{UserID: userB}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on submit after reject, got %v", err)
	}
	if _, err := machine.Reject(ctx, req.ID, Session{UserID: userB}, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double reject, got %v", err)
	}

	got, _ := machine.store.GetChangeRequestByID(ctx, req.ID)
	if got.Status != models.ChangeRequestRejected || got.ReasonRejected != "bad data" {
		t.Fatal("terminal request must not change under further actions")
	}
}

func TestCancelBeforeReview(t *testing.T) {
	ctx := context.Background()
	proposer := uuid.New()
	reviewer := uuid.New()

	req := pendingRequest(proposer)
	machine := NewMachine(newMemStore(req))

	got, err := machine.Cancel(ctx, req.ID, Session{UserID: proposer})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.ChangeRequestCanceled {
		t.Fatalf("expected CANCELED, got %s", got.Status)
	}

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: reviewer}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on approve after cancel, got %v", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	proposer := uuid.New()
	other := uuid.New()

	req := pendingRequest(proposer)
	machine := NewMachine(newMemStore(req))

	if _, err := machine.Cancel(ctx, req.ID, Session{UserID: other}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-proposer, got %v", err)
	}

	// Admins may cancel any request.
	if _, err := machine.Cancel(ctx, req.ID, Session{UserID: other, IsAdmin: true}); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestApproveTerminalFails(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	for _, u := range []uuid.UUID{userA, userB} {
		if _, err := machine.Approve(ctx, req.ID, Session{UserID: u}); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	if _, err := machine.Submit(ctx, req.ID, Session{UserID: userA}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userC}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on approve of APPROVED request, got %v", err)
	}
}

func TestThirdApproverFindsNoSlot(t *testing.T) {
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	req := pendingRequest(uuid.New())
	machine := NewMachine(newMemStore(req))

	for _, u := range []uuid.UUID{userA, userB} {
		if _, err := machine.Approve(ctx, req.ID, Session{UserID: u}); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	if _, err := machine.Approve(ctx, req.ID, Session{UserID: userC}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition when both slots taken, got %v", err)
	}
}

func TestConcurrentApprovalsFillDistinctSlots(t *testing.T) {
	ctx := context.Background()
	req := pendingRequest(uuid.New())
	store := newMemStore(req)
	machine := NewMachine(store)

	const reviewers = 4
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = machine.Approve(ctx, req.ID, Session{UserID: uuid.New()})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 {
		t.Fatalf("expected exactly 2 successful approvals, got %d", succeeded)
	}

	got, _ := store.GetChangeRequestByID(ctx, req.ID)
	if !got.HasTwoReviewers() {
		t.Fatal("expected both slots filled")
	}
	if *got.ReviewedByID == *got.ReviewedByID2 {
		t.Fatal("slots must hold distinct users")
	}
}
