package search

import (
	"context"
	"sync"
	"time"

	"github.com/quillhub/backend/internal/logger"
	"go.uber.org/zap"
)

// ReconcileJob rebuilds the index on a schedule to pick up writes whose
// best-effort index call failed. It satisfies cron.Job and skips a tick
// while the previous run is still going.
type ReconcileJob struct {
	service *Service
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewReconcileJob creates a reconcile job for service
func NewReconcileJob(service *Service) *ReconcileJob {
	return &ReconcileJob{service: service, timeout: 30 * time.Minute}
}

// Run implements cron.Job
func (j *ReconcileJob) Run() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		logger.Log.Debug("Search reconcile still running, skipping tick")
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.service.Reindex(ctx)
	if err != nil {
		logger.Log.Error("Search reconcile failed", zap.Int("indexed", n), zap.Error(err))
		return
	}
	logger.InfoWithFields("Search reconcile completed",
		zap.Int("indexed", n),
		zap.Duration("duration", time.Since(start)))
}
