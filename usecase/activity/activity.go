// Package activity records the audit trail of task mutations. Recording is
// best effort: a failed write is handed to the outbox and never reaches the
// caller.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase"
)

const DefaultWriteTimeout = 3 * time.Second

type Recorder struct {
	logs    repository.ActivityRepository
	outbox  usecase.ActivityOutbox
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Recorder)

// WithTimeout bounds a single audit write.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Recorder) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func New(logs repository.ActivityRepository, outbox usecase.ActivityOutbox, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		logs:    logs,
		outbox:  outbox,
		logger:  logger,
		timeout: DefaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry for taskID. An empty taskID stores an entry that is
// not tied to a live task row.
func (r *Recorder) Record(ctx context.Context, taskID, userID string, action domain.Action, changes map[string]any) {
	if changes == nil {
		changes = map[string]any{}
	}
	entry := &domain.ActivityLog{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		Changes:   changes,
		CreatedAt: r.now().UTC(),
	}

	// The mutation already committed; the audit write must outlive a cancelled request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := r.logs.Append(writeCtx, entry)
	if err == nil {
		return
	}

	fields := []zap.Field{
		zap.String("entry_id", entry.ID),
		zap.String("task_id", taskID),
		zap.String("action", string(action)),
		zap.Error(err),
	}
	if r.outbox == nil {
		r.logger.Error("activity entry dropped", fields...)
		return
	}
	if bufErr := r.outbox.BufferActivity(writeCtx, entry); bufErr != nil {
		r.logger.Error("activity entry dropped", append(fields, zap.NamedError("outbox_error", bufErr))...)
		return
	}
	r.logger.Warn("activity write failed, entry buffered", fields...)
}

// ListForTask returns the entries of taskID, newest first.
func (r *Recorder) ListForTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error) {
	return r.logs.ListByTask(ctx, taskID)
}

func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return r.logs.ListRecent(ctx, limit)
}

var _ usecase.ActivityRecorder = (*Recorder)(nil)
