package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention drops items that could not be replayed within this window.
	Retention time.Duration
}

// DrainStats summarises one drain pass.
type DrainStats struct {
	Replayed int
	Retried  int
	Dropped  int
}

// BufferProcessor replays buffered activity entries into the activity store.
type BufferProcessor struct {
	store    *buffer.Store
	monitor  ConnectionHealth
	activity repository.ActivityRepository
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	activity repository.ActivityRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:    store,
		monitor:  monitor,
		activity: activity,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	}); err != nil {
		bp.logger.Error("invalid buffer drain schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) error {
	if bp == nil || bp.cron == nil {
		return nil
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	bp.logger.Info("buffer processor stopped")
	return nil
}

// Drain replays one batch. Items failing MaxRetries times, or older than the
// retention window, are dropped and logged.
func (bp *BufferProcessor) Drain(ctx context.Context) (DrainStats, error) {
	var stats DrainStats
	if bp == nil || bp.store == nil {
		return stats, nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return stats, nil
	}

	if pruned, err := bp.store.Prune(time.Now().Add(-bp.cfg.Retention)); err != nil {
		bp.logger.Warn("failed to prune buffer", zap.Error(err))
	} else if pruned > 0 {
		stats.Dropped += pruned
		bp.logger.Warn("dropped expired buffer items", zap.Int("count", pruned))
	}

	items, err := bp.store.Peek(bp.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := bp.processItem(ctx, item); err != nil {
			bp.logger.Error("failed to process buffer item",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffer item (max retries reached)", zap.String("item_id", item.ID))
				if err := bp.store.Remove(item); err != nil {
					bp.logger.Warn("failed to remove buffer item", zap.Error(err))
				}
				stats.Dropped++
				continue
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffer item", zap.Error(err))
			}
			stats.Retried++
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
		}
		stats.Replayed++
	}
	return stats, nil
}

// BufferOperation persists item for a later drain. Callers have already tried
// the primary store.
func (bp *BufferProcessor) BufferOperation(_ context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errors.New("buffer processor not configured")
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Len()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityActivity:
		if item.Operation != buffer.OperationAppend {
			return fmt.Errorf("unsupported operation %s", item.Operation)
		}
		var entry domain.ActivityLog
		if err := json.Unmarshal(item.Data, &entry); err != nil {
			return err
		}
		return bp.activity.Append(ctx, &entry)
	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}
