package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

const taskColumns = `id, title, description, status, priority, assigned_to, created_by, due_date, created_at, updated_at`

type taskRepository struct {
	store *Store
}

// NewTaskRepository returns a SQLite-backed task repository.
func NewTaskRepository(store *Store) repository.TaskRepository {
	return &taskRepository{store: store}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	page, limit := domain.NormalizePage(filter.Page, filter.Limit)
	where, args := taskWhere(filter)

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT ? OFFSET ?`, taskColumns, where, taskOrder(filter.Order))
	rows, err := tx.QueryContext(ctx, query, append(args, limit, domain.Offset(page, limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
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
	return tasks, total, tx.Commit()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(task.Title) == "" {
		return nil, domain.ErrTitleRequired
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

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if ok, err := exists(ctx, tx, "users", task.CreatedBy); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrUnknownCreator
	}
	if task.AssignedTo != nil {
		if ok, err := exists(ctx, tx, "users", *task.AssignedTo); err != nil {
			return nil, err
		} else if !ok {
			return nil, domain.ErrUnknownAssignee
		}
	}

	now := r.store.timestamp()
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO tasks (id, title, description, status, priority, assigned_to, created_by, due_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		nullableString(task.Description),
		string(task.Status),
		string(task.Priority),
		nullableString(task.AssignedTo),
		task.CreatedBy,
		nullableTime(task.DueDate),
		formatTime(now),
		formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	task.CreatedAt = now
	task.UpdatedAt = now
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if ok, err := exists(ctx, tx, "tasks", id); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if patch.AssignedTo.Value != nil {
		if ok, err := exists(ctx, tx, "users", *patch.AssignedTo.Value); err != nil {
			return nil, err
		} else if !ok {
			return nil, domain.ErrUnknownAssignee
		}
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title.Set {
		set("title", *patch.Title.Value)
	}
	if patch.Description.Set {
		set("description", nullableString(patch.Description.Value))
	}
	if patch.Status.Set {
		set("status", string(*patch.Status.Value))
	}
	if patch.Priority.Set {
		set("priority", string(*patch.Priority.Value))
	}
	if patch.AssignedTo.Set {
		set("assigned_to", nullableString(patch.AssignedTo.Value))
	}
	if patch.DueDate.Set {
		set("due_date", nullableTime(patch.DueDate.Value))
	}
	set("updated_at", formatTime(r.store.timestamp()))

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = ? RETURNING %s`, strings.Join(sets, ", "), taskColumns)
	task, err := scanTask(tx.QueryRowContext(ctx, query, append(args, id)...))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task; its activity entries go with it.
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func taskWhere(filter repository.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		conds = append(conds, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.VisibleTo != "" {
		conds = append(conds, "(created_by = ? OR assigned_to = ?)")
		args = append(args, filter.VisibleTo, filter.VisibleTo)
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

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task                  domain.Task
		status, priority      string
		description, assignee sql.NullString
		dueDate               sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&status,
		&priority,
		&assignee,
		&task.CreatedBy,
		&dueDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.Status(status)
	task.Priority = domain.Priority(priority)
	task.Description = optionalString(description)
	task.AssignedTo = optionalString(assignee)

	var err error
	if task.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}
