package repository

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

// TaskOrder selects the ordering of a task listing. Every ordering breaks ties
// on id so pages never overlap.
type TaskOrder int

const (
	// OrderCreatedDesc lists the newest tasks first.
	OrderCreatedDesc TaskOrder = iota
	// OrderDueDateAsc lists the earliest due dates first, tasks without a due date last.
	OrderDueDateAsc
)

type TaskFilter struct {
	Status     domain.Status
	AssignedTo string
	CreatedBy  string
	// VisibleTo keeps tasks the user created or is assigned to.
	VisibleTo string
	Order     TaskOrder
	Page      int
	Limit     int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// List returns one page of matching tasks and the total number of matches.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update writes only the fields present in patch and returns the stored task.
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
}
