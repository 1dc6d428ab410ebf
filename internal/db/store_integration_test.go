//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/historia/cockpit-archive/internal/models"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("cockpit_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.New(zerolog.NewConsoleWriter())
	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	testDB, err = New(ctx, cfg, logger)
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB returns the shared test database after cleaning all tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	cleanTables(t, testDB)
	return testDB
}

// cleanTables truncates all user tables between tests for isolation.
func cleanTables(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		DO $$ DECLARE r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename != 'schema_migrations') LOOP
				EXECUTE 'TRUNCATE TABLE ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$;
	`)
	require.NoError(t, err)
}

// createTestUser creates and persists a test user.
func createTestUser(t *testing.T, db *DB, email, name string, role models.UserRole) *models.User {
	t.Helper()
	user := models.NewUser(email, name, role)
	user.PasswordHash = "x"
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

// createTestObject creates and persists a test archive object.
func createTestObject(t *testing.T, db *DB, code, title string) *models.ArchiveObject {
	t.Helper()
	obj := models.NewArchiveObject(code, title)
	obj.Tags = []string{"test"}
	require.NoError(t, db.CreateObject(context.Background(), obj))
	return obj
}

// createTestRequest creates and persists a pending update request against
// the given object.
func createTestRequest(t *testing.T, db *DB, objectID uuid.UUID, proposedBy uuid.UUID) *models.ChangeRequest {
	t.Helper()
	title := "Updated title"
	req := models.NewChangeRequest(&objectID, proposedBy, models.StructuredSnapshot{
		Action: models.SnapshotActionUpdate,
		Basic:  &models.BasicChange{Title: &title},
	})
	require.NoError(t, db.CreateChangeRequest(context.Background(), req))
	return req
}

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "anna@example.org", "Anna", models.UserRoleEditor)

	got, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, models.UserRoleEditor, got.Role)

	got.Name = "Anna B"
	require.NoError(t, db.UpdateUser(ctx, got))

	byEmail, err := db.GetUserByEmail(ctx, "anna@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Anna B", byEmail.Name)

	require.NoError(t, db.DeleteUser(ctx, user.ID))
	_, err = db.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangeRequestLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	rev1 := createTestUser(t, db, "r1@example.org", "Reviewer One", models.UserRoleEditor)
	rev2 := createTestUser(t, db, "r2@example.org", "Reviewer Two", models.UserRoleEditor)
	obj := createTestObject(t, db, "OBJ-001", "Original title")
	req := createTestRequest(t, db, obj.ID, proposer.ID)

	ok, err := db.ClaimFirstReviewerSlot(ctx, req.ID, rev1.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := db.GetChangeRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestReviewed, got.Status)
	require.NotNil(t, got.ReviewedByID)
	assert.Equal(t, rev1.ID, *got.ReviewedByID)

	// First slot is taken, a second claim of it must not change the row.
	ok, err = db.ClaimFirstReviewerSlot(ctx, req.ID, rev2.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	// The first reviewer cannot also take the second slot.
	ok, err = db.ClaimSecondReviewerSlot(ctx, req.ID, rev1.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.ClaimSecondReviewerSlot(ctx, req.ID, rev2.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.SubmitApproved(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = db.GetChangeRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestApproved, got.Status)

	// The snapshot was applied to the object.
	updated, err := db.GetObjectByID(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated title", updated.Title)

	// The mutation was recorded in the change history.
	logs, err := db.ListObjectChangeLogs(ctx, obj.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SnapshotActionUpdate, logs[0].Action)

	// Terminal request rejects further writes.
	ok, err = db.MarkRejected(ctx, req.ID, "too late")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitRequiresQuorumInStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	rev1 := createTestUser(t, db, "r1@example.org", "Reviewer One", models.UserRoleEditor)
	obj := createTestObject(t, db, "OBJ-002", "Title")
	req := createTestRequest(t, db, obj.ID, proposer.ID)

	ok, err := db.ClaimFirstReviewerSlot(ctx, req.ID, rev1.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// Only one reviewer so far, submit must not finalize.
	ok, err = db.SubmitApproved(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetChangeRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestReviewed, got.Status)
}

func TestConcurrentFirstSlotClaims(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	obj := createTestObject(t, db, "OBJ-003", "Title")
	req := createTestRequest(t, db, obj.ID, proposer.ID)

	const n = 4
	reviewers := make([]*models.User, n)
	for i := range reviewers {
		reviewers[i] = createTestUser(t, db,
			fmt.Sprintf("r%d@example.org", i), fmt.Sprintf("Reviewer %d", i),
			models.UserRoleEditor)
	}

	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := db.ClaimFirstReviewerSlot(ctx, req.ID, reviewers[i].ID, time.Now())
			require.NoError(t, err)
			wins[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one claim should win the first slot")
}

func TestApplyCreateSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	rev1 := createTestUser(t, db, "r1@example.org", "Reviewer One", models.UserRoleEditor)
	rev2 := createTestUser(t, db, "r2@example.org", "Reviewer Two", models.UserRoleEditor)

	code := "OBJ-NEW"
	title := "Bronze coin"
	objectID := uuid.New()
	req := models.NewChangeRequest(&objectID, proposer.ID, models.StructuredSnapshot{
		Action: models.SnapshotActionCreate,
		Basic:  &models.BasicChange{Code: &code, Title: &title},
		Tags:   &models.TagsChange{Proposed: []string{"coin", "bronze"}},
	})
	require.NoError(t, db.CreateChangeRequest(ctx, req))

	ok, err := db.ClaimFirstReviewerSlot(ctx, req.ID, rev1.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = db.ClaimSecondReviewerSlot(ctx, req.ID, rev2.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = db.SubmitApproved(ctx, req.ID)
	require.NoError(t, err)
	require.True(t, ok)

	obj, err := db.GetObjectByID(ctx, objectID)
	require.NoError(t, err)
	assert.Equal(t, "OBJ-NEW", obj.Code)
	assert.Equal(t, "Bronze coin", obj.Title)
	assert.ElementsMatch(t, []string{"coin", "bronze"}, obj.Tags)
}

func TestMarkCanceledOnlyWhileOpen(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	obj := createTestObject(t, db, "OBJ-004", "Title")
	req := createTestRequest(t, db, obj.ID, proposer.ID)

	ok, err := db.MarkRejected(ctx, req.ID, "not good enough")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.MarkCanceled(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetChangeRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestRejected, got.Status)
	assert.Equal(t, "not good enough", got.ReasonRejected)
}

func TestListChangeRequestsFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	proposer := createTestUser(t, db, "p@example.org", "Proposer", models.UserRoleEditor)
	other := createTestUser(t, db, "o@example.org", "Other", models.UserRoleEditor)
	obj := createTestObject(t, db, "OBJ-005", "Title")

	for i := 0; i < 3; i++ {
		createTestRequest(t, db, obj.ID, proposer.ID)
	}
	otherReq := createTestRequest(t, db, obj.ID, other.ID)
	ok, err := db.MarkCanceled(ctx, otherReq.ID)
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := db.ListChangeRequests(ctx, ChangeRequestFilter{Status: "PENDING"})
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	mine, err := db.ListChangeRequests(ctx, ChangeRequestFilter{ProposedByID: &other.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	count, err := db.CountChangeRequests(ctx, ChangeRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	paged, err := db.ListChangeRequests(ctx, ChangeRequestFilter{Skip: 2, Take: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 2)
}

func TestLogRetentionCleanup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "u@example.org", "User", models.UserRoleEditor)

	old := models.NewActivityLog(models.ActivityActionLogin, "session").WithUser(user.ID)
	old.CreatedAt = time.Now().AddDate(0, 0, -120)
	require.NoError(t, db.CreateActivityLog(ctx, old))

	fresh := models.NewActivityLog(models.ActivityActionLogout, "session").WithUser(user.ID)
	require.NoError(t, db.CreateActivityLog(ctx, fresh))

	removed, err := db.CleanupActivityLogs(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	logs, err := db.ListActivityLogs(ctx, ActivityLogFilter{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActivityActionLogout, logs[0].Action)
}
