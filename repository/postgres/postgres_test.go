package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/config"
	pgInfra "github.com/fastygo/taskflow/internal/infrastructure/postgres"
	"github.com/fastygo/taskflow/repository"
)

// Integration tests run only if DATABASE_URL is set.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	if _, err := pgInfra.Migrate(config.DatabaseConfig{URL: dsn, Name: "taskflow"}, "../../assets/migrations", pgInfra.Up, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func createUser(t *testing.T, users repository.UserRepository, role domain.Role) *domain.User {
	t.Helper()
	user, err := users.Create(context.Background(), &domain.User{
		Name:         "it",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { _ = users.Delete(context.Background(), user.ID) })
	return user
}

func TestUserRepositoryIntegration(t *testing.T) {
	pool := openPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	user := createUser(t, users, domain.RoleManager)
	if _, err := users.Create(ctx, &domain.User{Name: "dup", Email: user.Email, PasswordHash: "x", Role: domain.RoleUser}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	got, err := users.GetByEmail(ctx, user.Email)
	if err != nil || got.ID != user.ID || got.Role != domain.RoleManager {
		t.Fatalf("GetByEmail() = %#v, %v", got, err)
	}
	if _, err := users.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("malformed id: %v", err)
	}
}

func TestTaskRepositoryIntegration(t *testing.T) {
	pool := openPool(t)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	logs := NewActivityRepository(pool)
	ctx := context.Background()

	creator := createUser(t, users, domain.RoleManager)
	assignee := createUser(t, users, domain.RoleUser)

	missing := uuid.NewString()
	if _, err := tasks.Create(ctx, &domain.Task{Title: "x", CreatedBy: creator.ID, AssignedTo: &missing}); !errors.Is(err, domain.ErrUnknownAssignee) {
		t.Fatalf("expected ErrUnknownAssignee, got %v", err)
	}

	task, err := tasks.Create(ctx, &domain.Task{Title: "Ship", CreatedBy: creator.ID, AssignedTo: &assignee.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.Status != domain.StatusPending || task.Priority != domain.PriorityMedium {
		t.Fatalf("defaults not applied: %#v", task)
	}

	updated, err := tasks.Update(ctx, task.ID, domain.TaskPatch{Status: domain.Some(domain.StatusCompleted), AssignedTo: domain.Null[string]()})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != domain.StatusCompleted || updated.AssignedTo != nil || updated.Title != "Ship" {
		t.Fatalf("unexpected update %#v", updated)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Fatalf("updated_at went backwards")
	}

	list, total, err := tasks.List(ctx, repository.TaskFilter{CreatedBy: creator.ID, Page: 1, Limit: 10})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("List() = %d tasks, total %d, err %v", len(list), total, err)
	}

	entry := &domain.ActivityLog{ID: uuid.NewString(), TaskID: task.ID, UserID: creator.ID, Action: domain.ActionCreated, Changes: map[string]any{"title": "Ship"}}
	if err := logs.Append(ctx, entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := logs.Append(ctx, entry); err != nil {
		t.Fatalf("replayed Append() error = %v", err)
	}
	history, err := logs.ListByTask(ctx, task.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("ListByTask() = %#v, %v", history, err)
	}

	if err := tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := tasks.GetByID(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	history, err = logs.ListByTask(ctx, task.ID)
	if err != nil || len(history) != 0 {
		t.Fatalf("logs should cascade, got %#v, %v", history, err)
	}
}

func TestUserDeleteReleasesAssignments(t *testing.T) {
	pool := openPool(t)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	ctx := context.Background()

	creator := createUser(t, users, domain.RoleManager)
	assignee := createUser(t, users, domain.RoleUser)
	task, err := tasks.Create(ctx, &domain.Task{Title: "Handover", CreatedBy: creator.ID, AssignedTo: &assignee.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := users.Delete(ctx, assignee.ID); err != nil {
		t.Fatalf("Delete(assignee) error = %v", err)
	}
	got, err := tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AssignedTo != nil {
		t.Fatalf("assignee should be cleared, got %q", *got.AssignedTo)
	}

	if err := users.Delete(ctx, creator.ID); err != nil {
		t.Fatalf("Delete(creator) error = %v", err)
	}
	if _, err := tasks.GetByID(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("tasks should cascade with their creator, got %v", err)
	}
}
