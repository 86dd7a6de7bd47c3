package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase"
)

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Result is returned by sign-up and sign-in.
type Result struct {
	User    *domain.User
	Session *domain.Session
}

type UseCase struct {
	users  repository.UserRepository
	hasher usecase.PasswordHasher
	tokens usecase.TokenIssuer
	logger *zap.Logger
}

func New(users repository.UserRepository, hasher usecase.PasswordHasher, tokens usecase.TokenIssuer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (uc *UseCase) SignUp(ctx context.Context, input SignUpInput) (*Result, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, domain.Invalid("name, email and password are required")
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	session, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &Result{User: user, Session: session}, nil
}

// SignIn never reveals whether the email or the password was wrong.
func (uc *UseCase) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email and password are required")
	}
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !uc.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Session: session}, nil
}

// Authenticate resolves a bearer token into the actor it was issued to.
func (uc *UseCase) Authenticate(_ context.Context, token string) (domain.Actor, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return uc.tokens.Validate(token)
}
