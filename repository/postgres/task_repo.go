package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

const taskColumns = `id::text, title, description, status, priority, assigned_to::text, created_by::text, due_date, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	page, limit := domain.NormalizePage(filter.Page, filter.Limit)
	where, args := taskWhere(filter)

	// Count and page are read from one snapshot so pages agree with the total.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, domain.Offset(page, limit))
	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, taskOrder(filter.Order), len(args)-1, len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, tx.Commit(ctx)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(task.Title) == "" {
		return nil, domain.ErrTitleRequired
	}
	if !validID(task.CreatedBy) {
		return nil, domain.ErrUnknownCreator
	}
	if task.AssignedTo != nil && !validID(*task.AssignedTo) {
		return nil, domain.ErrUnknownAssignee
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}

	const query = `
	INSERT INTO tasks (id, title, description, status, priority, assigned_to, created_by, due_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		nullString(task.AssignedTo),
		task.CreatedBy,
		nullTime(task.DueDate),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, mapReferenceError(err)
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}
	if patch.AssignedTo.Value != nil && !validID(*patch.AssignedTo.Value) {
		return nil, domain.ErrUnknownAssignee
	}

	args := []any{id}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title.Set {
		set("title", *patch.Title.Value)
	}
	if patch.Description.Set {
		set("description", nullString(patch.Description.Value))
	}
	if patch.Status.Set {
		set("status", *patch.Status.Value)
	}
	if patch.Priority.Set {
		set("priority", *patch.Priority.Value)
	}
	if patch.AssignedTo.Set {
		set("assigned_to", nullString(patch.AssignedTo.Value))
	}
	if patch.DueDate.Set {
		set("due_date", nullTime(patch.DueDate.Value))
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), taskColumns)
	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapReferenceError(err)
	}
	return task, nil
}

// Delete removes the task; its activity entries go with it.
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrTaskNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func taskWhere(filter repository.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.AssignedTo != "" {
		add("assigned_to::text = $%d", filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		add("created_by::text = $%d", filter.CreatedBy)
	}
	if filter.VisibleTo != "" {
		args = append(args, filter.VisibleTo)
		conds = append(conds, fmt.Sprintf("(created_by::text = $%[1]d OR assigned_to::text = $%[1]d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func taskOrder(order repository.TaskOrder) string {
	if order == repository.OrderDueDateAsc {
		return "due_date ASC NULLS LAST, id ASC"
	}
	return "created_at DESC, id DESC"
}

func mapReferenceError(err error) error {
	pgErr := pgError(err)
	if pgErr == nil || pgErr.Code != codeForeignKeyViolation {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	switch pgErr.ConstraintName {
	case "tasks_assigned_to_fkey":
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrUnknownAssignee.Message, err)
	case "tasks_created_by_fkey":
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrUnknownCreator.Message, err)
	}
	return err
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.AssignedTo,
		&task.CreatedBy,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}
