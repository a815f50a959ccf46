package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kickai/trialgate/internal/models"
	"github.com/kickai/trialgate/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==============================================
// MOCK COLLABORATORS
// ==============================================

type MockFollowupStore struct {
	CreateJobFunc func(ctx context.Context, job *models.FollowupJob) error
	DueJobsFunc   func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error)
	MarkDoneFunc  func(ctx context.Context, jobID string) error

	created []models.FollowupJob
	done    []string
}

func (m *MockFollowupStore) CreateJob(ctx context.Context, job *models.FollowupJob) error {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, job)
	}
	m.created = append(m.created, *job)
	return nil
}

func (m *MockFollowupStore) DueJobs(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
	if m.DueJobsFunc != nil {
		return m.DueJobsFunc(ctx, now, limit)
	}
	return nil, nil
}

func (m *MockFollowupStore) MarkDone(ctx context.Context, jobID string) error {
	if m.MarkDoneFunc != nil {
		return m.MarkDoneFunc(ctx, jobID)
	}
	m.done = append(m.done, jobID)
	return nil
}

type MockTrialExpirer struct {
	ExpireActiveFunc func(ctx context.Context, phone string) (int64, error)

	expired []string
}

func (m *MockTrialExpirer) ExpireActive(ctx context.Context, phone string) (int64, error) {
	if m.ExpireActiveFunc != nil {
		return m.ExpireActiveFunc(ctx, phone)
	}
	m.expired = append(m.expired, phone)
	return 1, nil
}

type MockChannelLookup struct {
	GetTelegramIDFunc func(ctx context.Context, phone string) (string, error)
}

func (m *MockChannelLookup) GetTelegramID(ctx context.Context, phone string) (string, error) {
	if m.GetTelegramIDFunc != nil {
		return m.GetTelegramIDFunc(ctx, phone)
	}
	return "", nil
}

type MockSender struct {
	EnabledFunc     func() bool
	SendMessageFunc func(ctx context.Context, chatID, text string) error

	sent []string
}

func (m *MockSender) Enabled() bool {
	if m.EnabledFunc != nil {
		return m.EnabledFunc()
	}
	return true
}

func (m *MockSender) SendMessage(ctx context.Context, chatID, text string) error {
	m.sent = append(m.sent, chatID)
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text)
	}
	return nil
}

type workerFixture struct {
	followups *MockFollowupStore
	trials    *MockTrialExpirer
	channels  *MockChannelLookup
	sender    *MockSender
	worker    *Worker
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		followups: &MockFollowupStore{},
		trials:    &MockTrialExpirer{},
		channels:  &MockChannelLookup{},
		sender:    &MockSender{},
	}
	f.worker = NewWorker(f.followups, f.trials, f.channels, f.sender)
	return f
}

// ==============================================
// QUEUE INTAKE TESTS
// ==============================================

func TestHandleScheduleMessage_StoresJob(t *testing.T) {
	f := newWorkerFixture()
	runAt := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)

	body, err := json.Marshal(scheduler.FollowupMessage{
		Phone:  "+15551230000",
		Action: models.FollowupNudge,
		RunAt:  runAt,
	})
	require.NoError(t, err)

	ok := f.worker.HandleScheduleMessage(body)

	assert.True(t, ok)
	require.Len(t, f.followups.created, 1)
	assert.Equal(t, "+15551230000", f.followups.created[0].Phone)
	assert.Equal(t, models.FollowupNudge, f.followups.created[0].Action)
	assert.True(t, f.followups.created[0].RunAt.Equal(runAt))
}

func TestHandleScheduleMessage_DropsGarbage(t *testing.T) {
	f := newWorkerFixture()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `<xml/>`},
		{"missing phone", `{"action":"nudge","run_at":"2026-09-01T00:00:00Z"}`},
		{"missing action", `{"phone":"+15551230000","run_at":"2026-09-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Ack the message anyway: re-queuing garbage loops forever
			assert.True(t, f.worker.HandleScheduleMessage([]byte(tt.body)))
			assert.Empty(t, f.followups.created)
		})
	}
}

func TestHandleScheduleMessage_RequeuesOnStoreFailure(t *testing.T) {
	f := newWorkerFixture()
	f.followups.CreateJobFunc = func(ctx context.Context, job *models.FollowupJob) error {
		return errors.New("insert failed")
	}

	body, _ := json.Marshal(scheduler.FollowupMessage{
		Phone:  "+15551230000",
		Action: models.FollowupExpire,
		RunAt:  time.Now(),
	})

	assert.False(t, f.worker.HandleScheduleMessage(body))
}

// ==============================================
// EXECUTION TESTS
// ==============================================

func TestRunDue_Nudge(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return []models.FollowupJob{
			{ID: "job-1", Phone: "+15551230000", Action: models.FollowupNudge},
		}, nil
	}
	f.channels.GetTelegramIDFunc = func(ctx context.Context, phone string) (string, error) {
		return "tg-777", nil
	}

	f.worker.RunDue(context.Background())

	assert.Equal(t, []string{"tg-777"}, f.sender.sent)
	assert.Equal(t, []string{"job-1"}, f.followups.done)
}

func TestRunDue_NudgeWithoutLinkedChannel(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return []models.FollowupJob{
			{ID: "job-1", Phone: "+15551230000", Action: models.FollowupNudge},
		}, nil
	}

	f.worker.RunDue(context.Background())

	assert.Empty(t, f.sender.sent)
	assert.Equal(t, []string{"job-1"}, f.followups.done, "an undeliverable nudge is still done")
}

func TestRunDue_Expire(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return []models.FollowupJob{
			{ID: "job-2", Phone: "+15551230000", Action: models.FollowupExpire},
		}, nil
	}

	f.worker.RunDue(context.Background())

	assert.Equal(t, []string{"+15551230000"}, f.trials.expired)
	assert.Equal(t, []string{"job-2"}, f.followups.done)
}

func TestRunDue_ExpireFailureStillMarksDone(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return []models.FollowupJob{
			{ID: "job-2", Phone: "+15551230000", Action: models.FollowupExpire},
		}, nil
	}
	f.trials.ExpireActiveFunc = func(ctx context.Context, phone string) (int64, error) {
		return 0, errors.New("update failed")
	}

	f.worker.RunDue(context.Background())

	assert.Equal(t, []string{"job-2"}, f.followups.done)
}

func TestRunDue_UnknownAction(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return []models.FollowupJob{
			{ID: "job-3", Phone: "+15551230000", Action: "mystery"},
		}, nil
	}

	f.worker.RunDue(context.Background())

	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.trials.expired)
	assert.Equal(t, []string{"job-3"}, f.followups.done)
}

func TestRunDue_FetchFailure(t *testing.T) {
	f := newWorkerFixture()
	f.followups.DueJobsFunc = func(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error) {
		return nil, errors.New("query failed")
	}

	f.worker.RunDue(context.Background())

	assert.Empty(t, f.followups.done)
}
