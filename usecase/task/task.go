package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase"
	"github.com/fastygo/taskflow/usecase/policy"
)

// UseCase runs the task lifecycle. Every operation on an existing task loads
// it first, so a missing id is reported before any permission decision.
type UseCase struct {
	tasks    repository.TaskRepository
	activity usecase.ActivityRecorder
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, activity usecase.ActivityRecorder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:    tasks,
		activity: activity,
		logger:   logger,
	}
}

func (uc *UseCase) CreateTask(ctx context.Context, actor domain.Actor, input domain.TaskInput) (*domain.Task, error) {
	if !policy.CanCreateTask(actor.Role) {
		return nil, domain.ErrForbidden
	}
	task, err := domain.NewTask(input, actor.ID)
	if err != nil {
		return nil, err
	}
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, created.ID, actor.ID, domain.ActionCreated, input.Changes())
	uc.logger.Info("task created", zap.String("task_id", created.ID), zap.String("actor_id", actor.ID))
	return created, nil
}

func (uc *UseCase) GetTask(ctx context.Context, actor domain.Actor, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewTask(actor, task) {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

// ListTasks lists every task for admins and the tasks an actor created or is
// assigned to for everyone else.
func (uc *UseCase) ListTasks(ctx context.Context, actor domain.Actor, status domain.Status, page, limit int) (*domain.TaskList, error) {
	filter := repository.TaskFilter{Status: status, Page: page, Limit: limit}
	if !actor.IsAdmin() {
		filter.VisibleTo = actor.ID
	}
	return uc.list(ctx, filter)
}

// ListAssigned lists the actor's assignments, earliest due date first.
func (uc *UseCase) ListAssigned(ctx context.Context, actor domain.Actor, page, limit int) (*domain.TaskList, error) {
	return uc.list(ctx, repository.TaskFilter{
		AssignedTo: actor.ID,
		Order:      repository.OrderDueDateAsc,
		Page:       page,
		Limit:      limit,
	})
}

// ListCreated lists tasks the actor created, newest first.
func (uc *UseCase) ListCreated(ctx context.Context, actor domain.Actor, page, limit int) (*domain.TaskList, error) {
	return uc.list(ctx, repository.TaskFilter{
		CreatedBy: actor.ID,
		Page:      page,
		Limit:     limit,
	})
}

func (uc *UseCase) UpdateTask(ctx context.Context, actor domain.Actor, id string, patch domain.TaskPatch) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateTask(actor, task) {
		return nil, domain.ErrForbidden
	}
	patch, err = patch.Normalize()
	if err != nil {
		return nil, err
	}
	updated, err := uc.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	uc.activity.Record(ctx, id, actor.ID, domain.ActionUpdated, patch.Changes())
	return updated, nil
}

// DeleteTask removes the task. Its history is removed with it, so the deletion
// entry is stored detached and carries the task id in its changes.
func (uc *UseCase) DeleteTask(ctx context.Context, actor domain.Actor, id string) error {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(actor) {
		return domain.ErrForbidden
	}
	snapshot := map[string]any{"task_id": task.ID, "title": task.Title}
	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}

	uc.activity.Record(ctx, "", actor.ID, domain.ActionDeleted, snapshot)
	uc.logger.Info("task deleted", zap.String("task_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// ListLogs returns the task's history, newest first, to anyone who may view the task.
func (uc *UseCase) ListLogs(ctx context.Context, actor domain.Actor, id string) ([]domain.ActivityLog, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewActivity(actor, task) {
		return nil, domain.ErrForbidden
	}
	return uc.activity.ListForTask(ctx, id)
}

// ListActivity returns the most recent entries across all tasks.
func (uc *UseCase) ListActivity(ctx context.Context, actor domain.Actor, limit int) ([]domain.ActivityLog, error) {
	if !policy.CanListAllActivity(actor) {
		return nil, domain.ErrForbidden
	}
	return uc.activity.ListRecent(ctx, limit)
}

func (uc *UseCase) list(ctx context.Context, filter repository.TaskFilter) (*domain.TaskList, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	tasks, total, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return &domain.TaskList{
		Tasks:      tasks,
		Pagination: domain.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}
