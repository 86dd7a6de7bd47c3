package usecase

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

// ActivityOutbox keeps audit entries that could not be written directly so a
// background worker can replay them.
type ActivityOutbox interface {
	BufferActivity(ctx context.Context, entry *domain.ActivityLog) error
}

// ActivityRecorder appends audit entries without ever failing the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, taskID, userID string, action domain.Action, changes map[string]any)
	ListForTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(user *domain.User) (*domain.Session, error)
	Validate(token string) (domain.Actor, error)
}
