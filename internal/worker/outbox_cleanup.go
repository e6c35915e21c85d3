package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

// OutboxCleanupWorker deletes published outbox events once they are older
// than the retention window. View logs are not touched.
type OutboxCleanupWorker struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retention, interval time.Duration, log *logger.Logger, m *metrics.Metrics) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error(err, "outbox cleanup failed")
			}
		}
	}
}

func (w *OutboxCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		if w.metrics != nil {
			w.metrics.OutboxEventsCleaned.Add(float64(deleted))
		}
		w.logger.Info("outbox cleanup", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
