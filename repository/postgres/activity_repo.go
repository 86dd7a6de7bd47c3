package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

const activityColumns = `id::text, COALESCE(task_id::text, ''), COALESCE(user_id::text, ''), action, changes, created_at`

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns the Postgres audit trail store.
func NewActivityRepository(pool *pgxpool.Pool) repository.ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	if entry == nil || !entry.Action.Valid() {
		return domain.ErrInvalidPayload
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO activity_logs (id, task_id, user_id, action, changes, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		optionalID(entry.TaskID),
		optionalID(entry.UserID),
		entry.Action,
		marshalChanges(entry.Changes),
		nullTime(&entry.CreatedAt),
	)
	return err
}

func (r *activityRepository) ListByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error) {
	if !validID(taskID) {
		return []domain.ActivityLog{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+`
	FROM activity_logs
	WHERE task_id = $1
	ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	return collectActivity(rows)
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	_, limit = domain.NormalizePage(1, limit)
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+`
	FROM activity_logs
	ORDER BY created_at DESC, id DESC
	LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectActivity(rows)
}

func collectActivity(rows pgx.Rows) ([]domain.ActivityLog, error) {
	defer rows.Close()
	entries := []domain.ActivityLog{}
	for rows.Next() {
		var (
			entry   domain.ActivityLog
			changes []byte
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.UserID, &entry.Action, &changes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			_ = json.Unmarshal(changes, &entry.Changes)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// optionalID maps empty or malformed references to NULL so a stale id never
// blocks the audit write.
func optionalID(id string) any {
	if !validID(id) {
		return nil
	}
	return id
}
