package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fivelearn-engagement/internal/config"
	"github.com/fivelearn-engagement/internal/postgres"
	"github.com/fivelearn-engagement/internal/redis"
)

// SnapshotWorker periodically copies the live leaderboard from Redis into
// the durable snapshot table, and restores it on startup. Redis stays the
// source of truth for rank queries; the snapshot exists so a flushed cache
// does not wipe everyone's scores.
type SnapshotWorker struct {
	store   *redis.Store
	repo    *postgres.Repository
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(
	store *redis.Store,
	repo *postgres.Repository,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SnapshotWorker {
	return &SnapshotWorker{
		store:  store,
		repo:   repo,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background snapshot process
func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("snapshot worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background snapshot process
func (w *SnapshotWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("snapshot worker stopped")
	return nil
}

// run is the main worker loop
func (w *SnapshotWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.SnapshotToDatabase(ctx); err != nil {
				w.logger.Error("snapshot cycle failed", "error", err)
			}
		}
	}
}

// SnapshotToDatabase copies all live scores into the snapshot table
func (w *SnapshotWorker) SnapshotToDatabase(ctx context.Context) error {
	startTime := time.Now()

	entries, err := w.store.GetAllScores(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		w.logger.Debug("no scores to snapshot")
		return nil
	}

	batchSize := w.config.BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	batch := make(map[string]int64, batchSize)
	for _, entry := range entries {
		batch[entry.UserID] = entry.Score

		if len(batch) >= batchSize {
			if err := w.repo.BatchUpsertSnapshots(ctx, batch); err != nil {
				return err
			}
			batch = make(map[string]int64, batchSize)
		}
	}

	if len(batch) > 0 {
		if err := w.repo.BatchUpsertSnapshots(ctx, batch); err != nil {
			return err
		}
	}

	w.logger.Info("snapshot cycle completed",
		"duration", time.Since(startTime),
		"users", len(entries),
	)
	return nil
}

// RestoreFromDatabase loads the snapshot back into Redis. Used on startup
// for recovery after a cache loss.
func (w *SnapshotWorker) RestoreFromDatabase(ctx context.Context) error {
	scores, err := w.repo.GetAllSnapshots(ctx)
	if err != nil {
		return err
	}

	if len(scores) == 0 {
		w.logger.Debug("no snapshot to restore")
		return nil
	}

	if err := w.store.BatchSetScores(ctx, scores); err != nil {
		return err
	}

	w.logger.Info("restored leaderboard from snapshot", "users", len(scores))
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SnapshotWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
