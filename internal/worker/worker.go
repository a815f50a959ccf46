package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/kickai/trialgate/internal/models"
	"github.com/kickai/trialgate/internal/notify"
	"github.com/kickai/trialgate/internal/scheduler"
	"github.com/robfig/cron/v3"
)

// ==============================================
// COLLABORATOR INTERFACES (for testing)
// ==============================================

type FollowupStore interface {
	CreateJob(ctx context.Context, job *models.FollowupJob) error
	DueJobs(ctx context.Context, now time.Time, limit int) ([]models.FollowupJob, error)
	MarkDone(ctx context.Context, jobID string) error
}

type TrialExpirer interface {
	ExpireActive(ctx context.Context, phone string) (int64, error)
}

type ChannelLookup interface {
	GetTelegramID(ctx context.Context, phone string) (string, error)
}

// ==============================================
// FOLLOW-UP WORKER
// ==============================================

const dueJobBatchSize = 100

// Worker persists scheduled follow-up jobs from the queue and executes
// them when due. Both actions are idempotent, so at-least-once delivery
// from the broker is acceptable.
type Worker struct {
	followups FollowupStore
	trials    TrialExpirer
	channels  ChannelLookup
	sender    notify.Sender
}

func NewWorker(followups FollowupStore, trials TrialExpirer, channels ChannelLookup, sender notify.Sender) *Worker {
	return &Worker{
		followups: followups,
		trials:    trials,
		channels:  channels,
		sender:    sender,
	}
}

// ==============================================
// QUEUE INTAKE
// ==============================================

// HandleScheduleMessage stores one follow-up job received from the
// queue. Returns false to re-queue on store failure.
func (w *Worker) HandleScheduleMessage(body []byte) bool {
	var msg scheduler.FollowupMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Printf("[WORKER] Dropping malformed follow-up message: %v", err)
		return true
	}

	if msg.Phone == "" || msg.Action == "" {
		log.Printf("[WORKER] Dropping incomplete follow-up message: %s", string(body))
		return true
	}

	job := &models.FollowupJob{
		Phone:  msg.Phone,
		Action: msg.Action,
		RunAt:  msg.RunAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.followups.CreateJob(ctx, job); err != nil {
		log.Printf("[WORKER] Failed to store follow-up job - Phone: %s, Action: %s, Err: %v", msg.Phone, msg.Action, err)
		return false
	}

	log.Printf("[WORKER] Scheduled %s for %s at %s", msg.Action, msg.Phone, msg.RunAt.Format(time.RFC3339))
	return true
}

// ==============================================
// EXECUTION
// ==============================================

// RunDue executes all jobs whose run time has passed
func (w *Worker) RunDue(ctx context.Context) {
	jobs, err := w.followups.DueJobs(ctx, time.Now(), dueJobBatchSize)
	if err != nil {
		log.Printf("[WORKER] Failed to fetch due jobs: %v", err)
		return
	}

	for _, job := range jobs {
		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job models.FollowupJob) {
	switch job.Action {
	case models.FollowupNudge:
		w.nudge(ctx, job.Phone)
	case models.FollowupExpire:
		w.expire(ctx, job.Phone)
	default:
		log.Printf("[WORKER] Unknown follow-up action %q for %s", job.Action, job.Phone)
	}

	if err := w.followups.MarkDone(ctx, job.ID); err != nil {
		log.Printf("[WORKER] Failed to mark job done - ID: %s, Err: %v", job.ID, err)
	}
}

// nudge sends a best-effort mid-trial upsell to the user's linked channel
func (w *Worker) nudge(ctx context.Context, phone string) {
	if !w.sender.Enabled() {
		return
	}

	telegramID, err := w.channels.GetTelegramID(ctx, phone)
	if err != nil || telegramID == "" {
		return
	}

	if err := w.sender.SendMessage(ctx, telegramID, notify.NudgeMessage()); err != nil {
		log.Printf("[WORKER] Nudge delivery failed - Phone: %s, Err: %v", phone, err)
	}
}

// expire marks the phone's active trial sessions expired, freeing the
// cooldown slot
func (w *Worker) expire(ctx context.Context, phone string) {
	n, err := w.trials.ExpireActive(ctx, phone)
	if err != nil {
		log.Printf("[WORKER] Expiry failed - Phone: %s, Err: %v", phone, err)
		return
	}
	log.Printf("[WORKER] Expired %d trial session(s) for %s", n, phone)
}

// ==============================================
// CRON WIRING
// ==============================================

// StartCron schedules the due-job sweep every minute and returns the
// running cron instance.
func (w *Worker) StartCron(ctx context.Context) *cron.Cron {
	c := cron.New()
	c.AddFunc("* * * * *", func() {
		w.RunDue(ctx)
	})
	c.Start()
	return c
}
