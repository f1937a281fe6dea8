package notifications

import (
	"context"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionJob deletes read notifications older than a number of days.
// It satisfies cron.Job.
type RetentionJob struct {
	store   Store
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewRetentionJob returns a job that keeps read notifications for days days
func NewRetentionJob(store Store, days int) *RetentionJob {
	return &RetentionJob{
		store:   store,
		maxAge:  time.Duration(days) * 24 * time.Hour,
		timeout: 5 * time.Minute,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run implements cron.Job
func (j *RetentionJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.Purge(ctx); err != nil {
		logger.ErrorWithFields("Notification retention purge failed", err)
	}
}

// Purge deletes read notifications created before the retention cutoff
func (j *RetentionJob) Purge(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.maxAge)
	n, err := j.store.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	logger.InfoWithFields("Purged read notifications",
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff))
	return n, nil
}

// Scheduler runs the retention job, plus any added jobs, on one cron engine
type Scheduler struct {
	engine   *cron.Cron
	job      cron.Job
	schedule string
}

// NewScheduler creates a scheduler; schedule accepts cron descriptors such as "@daily"
func NewScheduler(job cron.Job, schedule string) *Scheduler {
	if schedule == "" {
		schedule = "@daily"
	}
	return &Scheduler{
		engine:   cron.New(cron.WithSeconds()),
		job:      job,
		schedule: schedule,
	}
}

// RegisterJobs adds the retention job to the engine
func (s *Scheduler) RegisterJobs() error {
	_, err := s.engine.AddJob(s.schedule, s.job)
	return err
}

// AddJob schedules another job on the same engine
func (s *Scheduler) AddJob(schedule string, job cron.Job) error {
	_, err := s.engine.AddJob(schedule, job)
	return err
}

func (s *Scheduler) Start() {
	logger.InfoWithFields("Scheduler started", zap.String("schedule", s.schedule))
	s.engine.Start()
}

// Stop halts the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	logger.InfoWithFields("Scheduler stopped")
}
