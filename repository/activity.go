package repository

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

type ActivityRepository interface {
	// Append stores entry. Appending an id that already exists is a no-op.
	Append(ctx context.Context, entry *domain.ActivityLog) error
	ListByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}
