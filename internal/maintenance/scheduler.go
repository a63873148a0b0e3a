package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// jobTimeout bounds a single run.
const jobTimeout = 5 * time.Minute

// Job is a named housekeeping task run on a cron schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs housekeeping jobs in the background.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]Job
}

// NewScheduler registers jobs. It fails on an unparsable cron spec.
func NewScheduler(jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make(map[string]Job, len(jobs)),
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.Spec, func() { _ = s.run(context.Background(), job) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %s: %w", job.Spec, job.Name, err)
		}
		s.jobs[job.Name] = job
	}
	return s, nil
}

func (s *Scheduler) Start() {
	slog.Info("maintenance scheduler started", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		slog.Info("maintenance scheduler stopped")
	case <-ctx.Done():
		slog.Warn("maintenance scheduler stop timed out")
	}
}

// RunNow runs the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		slog.Error("maintenance job failed", "action", job.Name, "error", err.Error())
		return err
	}
	slog.Debug("maintenance job done", "action", job.Name, "duration", time.Since(start))
	return nil
}

// LogRetentionJob deletes system logs older than retention, once a day.
func LogRetentionJob(db *gorm.DB, retention time.Duration) Job {
	return Job{
		Name: "purge_system_logs",
		Spec: "@daily",
		Run: func(ctx context.Context) error {
			n, err := logging.PurgeBefore(ctx, db, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("old system logs purged", "count", n)
			}
			return nil
		},
	}
}

// ResetTokenJob clears expired password reset tokens every 15 minutes.
func ResetTokenJob(users store.UserStore) Job {
	return Job{
		Name: "purge_reset_tokens",
		Spec: "@every 15m",
		Run: func(ctx context.Context) error {
			n, err := users.PurgeExpiredResetTokens(ctx, time.Now())
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("expired reset tokens cleared", "count", n)
			}
			return nil
		},
	}
}
