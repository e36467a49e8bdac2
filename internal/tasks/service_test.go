package tasks_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/auth"
	"github.com/hugh/taskhub/internal/database/models"
	"github.com/hugh/taskhub/internal/notify"
	"github.com/hugh/taskhub/internal/tasks"
	"github.com/hugh/taskhub/internal/testutil"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db         *gorm.DB
	service    *tasks.Service
	dispatcher *testutil.RecordingDispatcher
	owner      *models.User
	colleague  *models.User
	stranger   *models.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	otherCompany := testutil.CreateTestCompany(t, tc.DB)
	dispatcher := &testutil.RecordingDispatcher{}

	return &serviceFixture{
		db:         tc.DB,
		service:    tasks.NewService(tasks.NewGormStore(tc.DB), auth.NewService(tc.DB, tc.JWTService), dispatcher, util.DiscardLogger()),
		dispatcher: dispatcher,
		owner:      tc.User,
		colleague:  testutil.CreateTestUser(t, tc.DB, tc.Company),
		stranger:   testutil.CreateTestUser(t, tc.DB, otherCompany),
	}
}

func TestService_CreateNotifiesAndForcesOwnership(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)
	actor := testutil.ActorFor(f.owner)

	for _, status := range models.TaskStatuses {
		task, err := f.service.Create(ctx, actor, fields(status))
		require.NoError(t, err)
		assert.Equal(t, f.owner.ID, task.UserID)
		assert.Equal(t, f.owner.CompanyID, task.CompanyID)
	}

	// creation is notifiable whatever the initial status
	sent := f.dispatcher.Notifications()
	require.Len(t, sent, 3)
	for _, n := range sent {
		assert.Equal(t, notify.EventTaskCreated, n.Event)
		assert.Equal(t, f.owner.Email, n.Recipient)
	}
}

func TestService_RoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)
	actor := testutil.ActorFor(f.owner)

	desc := "with details"
	due := models.NewDate(time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC))
	in := tasks.Fields{
		Title:       "Round trip",
		Description: &desc,
		Status:      models.TaskStatusInProgress,
		Priority:    models.TaskPriorityMedium,
		DueDate:     &due,
	}

	created, err := f.service.Create(ctx, actor, in)
	require.NoError(t, err)

	got, err := f.service.Get(ctx, actor, created.ID)
	require.NoError(t, err)

	assert.Equal(t, in.Title, got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, in.Priority, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-12-24", got.DueDate.String())
}

func TestService_UpdateCompletionNotifications(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)
	actor := testutil.ActorFor(f.owner)

	task, err := f.service.Create(ctx, actor, fields(models.TaskStatusPending))
	require.NoError(t, err)
	require.Equal(t, 1, f.dispatcher.Count())

	_, err = f.service.Update(ctx, actor, task.ID, fields(models.TaskStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, 2, f.dispatcher.Count())

	_, err = f.service.Update(ctx, actor, task.ID, fields(models.TaskStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, 2, f.dispatcher.Count(), "re-completing must not notify")

	_, err = f.service.Update(ctx, actor, task.ID, fields(models.TaskStatusPending))
	require.NoError(t, err)
	assert.Equal(t, 2, f.dispatcher.Count())

	_, err = f.service.Update(ctx, actor, task.ID, fields(models.TaskStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, 3, f.dispatcher.Count())

	last := f.dispatcher.Notifications()[2]
	assert.Equal(t, notify.EventTaskCompleted, last.Event)
	assert.Equal(t, task.ID, last.TaskID)
	assert.Equal(t, models.TaskStatusCompleted, last.Status)
}

func TestService_CompletionByColleagueNotifiesOwner(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)

	task := testutil.CreateTestTask(t, f.db, f.owner, "shared", models.TaskStatusPending, models.TaskPriorityLow)

	updated, err := f.service.Update(ctx, testutil.ActorFor(f.colleague), task.ID, fields(models.TaskStatusCompleted))
	require.NoError(t, err)

	// ownership survives an update by someone else
	assert.Equal(t, f.owner.ID, updated.UserID)

	sent := f.dispatcher.Notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, f.owner.Email, sent[0].Recipient)
}

type brokenUsers struct{}

func (brokenUsers) GetUserByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, errors.New("identity store down")
}

func TestService_OwnerLookupFailureDoesNotFailUpdate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)
	dispatcher := &testutil.RecordingDispatcher{}
	service := tasks.NewService(tasks.NewGormStore(f.db), brokenUsers{}, dispatcher, util.DiscardLogger())

	task := testutil.CreateTestTask(t, f.db, f.owner, "shared", models.TaskStatusPending, models.TaskPriorityLow)

	updated, err := service.Update(ctx, testutil.ActorFor(f.colleague), task.ID, fields(models.TaskStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.Zero(t, dispatcher.Count())
}

func TestService_AccessRules(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)
	task := testutil.CreateTestTask(t, f.db, f.owner, "mine", models.TaskStatusPending, models.TaskPriorityLow)

	t.Run("stranger is forbidden, not told it is missing", func(t *testing.T) {
		stranger := testutil.ActorFor(f.stranger)

		_, err := f.service.Get(ctx, stranger, task.ID)
		assert.ErrorIs(t, err, tasks.ErrForbidden)

		_, err = f.service.Update(ctx, stranger, task.ID, fields(models.TaskStatusCompleted))
		assert.ErrorIs(t, err, tasks.ErrForbidden)

		assert.ErrorIs(t, f.service.Delete(ctx, stranger, task.ID), tasks.ErrForbidden)
		assert.Zero(t, f.dispatcher.Count())
	})

	t.Run("missing task is not found", func(t *testing.T) {
		_, err := f.service.Get(ctx, testutil.ActorFor(f.owner), uuid.New())
		assert.ErrorIs(t, err, tasks.ErrNotFound)
	})

	t.Run("colleague may read", func(t *testing.T) {
		got, err := f.service.Get(ctx, testutil.ActorFor(f.colleague), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
	})

	t.Run("delete is permanent", func(t *testing.T) {
		require.NoError(t, f.service.Delete(ctx, testutil.ActorFor(f.colleague), task.ID))

		_, err := f.service.Get(ctx, testutil.ActorFor(f.owner), task.ID)
		assert.ErrorIs(t, err, tasks.ErrNotFound)

		assert.ErrorIs(t, f.service.Delete(ctx, testutil.ActorFor(f.owner), task.ID), tasks.ErrNotFound)
	})
}

func TestService_ListScope(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)

	mine := testutil.CreateTestTask(t, f.db, f.owner, "mine", models.TaskStatusPending, models.TaskPriorityLow)
	theirs := testutil.CreateTestTask(t, f.db, f.colleague, "colleague", models.TaskStatusCompleted, models.TaskPriorityHigh)
	testutil.CreateTestTask(t, f.db, f.stranger, "stranger", models.TaskStatusPending, models.TaskPriorityLow)

	list, err := f.service.List(ctx, testutil.ActorFor(f.owner), tasks.Filter{})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(list))
	for _, task := range list {
		ids = append(ids, task.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{mine.ID, theirs.ID}, ids)

	completed, err := f.service.List(ctx, testutil.ActorFor(f.owner), tasks.Filter{Status: models.TaskStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, theirs.ID, completed[0].ID)

	low, err := f.service.List(ctx, testutil.ActorFor(f.owner), tasks.Filter{Priority: models.TaskPriorityLow})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, mine.ID, low[0].ID)
}

func TestService_ExportFiltersByStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.TestContext(t)

	testutil.CreateTestTask(t, f.db, f.owner, "open", models.TaskStatusPending, models.TaskPriorityLow)
	testutil.CreateTestTask(t, f.db, f.owner, "done one", models.TaskStatusCompleted, models.TaskPriorityLow)
	testutil.CreateTestTask(t, f.db, f.colleague, "done two", models.TaskStatusCompleted, models.TaskPriorityHigh)
	testutil.CreateTestTask(t, f.db, f.stranger, "not mine", models.TaskStatusCompleted, models.TaskPriorityHigh)

	var buf bytes.Buffer
	n, err := f.service.Export(ctx, testutil.ActorFor(f.owner), tasks.Filter{Status: models.TaskStatusCompleted}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	for _, row := range records[1:] {
		assert.Equal(t, "completed", row[3])
		assert.NotEqual(t, "not mine", row[1])
	}
}
