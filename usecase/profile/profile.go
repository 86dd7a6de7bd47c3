package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
	}
}

// GetProfile loads the actor's own account. A token for a deleted account
// resolves to ErrUserNotFound.
func (uc *UseCase) GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.users.GetByID(ctx, actor.ID)
}
