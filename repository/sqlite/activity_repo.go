package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

const activityColumns = `id, task_id, user_id, action, changes, created_at`

type activityRepository struct {
	store *Store
}

// NewActivityRepository returns the SQLite audit trail store.
func NewActivityRepository(store *Store) repository.ActivityRepository {
	return &activityRepository{store: store}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	if entry == nil || !entry.Action.Valid() {
		return domain.ErrInvalidPayload
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.store.timestamp()
	}
	changes, err := json.Marshal(entry.Changes)
	if err != nil || entry.Changes == nil {
		changes = []byte("{}")
	}

	_, err = r.store.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO activity_logs (id, task_id, user_id, action, changes, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		nullableID(entry.TaskID),
		nullableID(entry.UserID),
		string(entry.Action),
		string(changes),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT `+activityColumns+`
	FROM activity_logs
	WHERE task_id = ?
	ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return collectActivity(rows)
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	_, limit = domain.NormalizePage(1, limit)
	rows, err := r.store.db.QueryContext(ctx, `SELECT `+activityColumns+`
	FROM activity_logs
	ORDER BY created_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return collectActivity(rows)
}

func collectActivity(rows *sql.Rows) ([]domain.ActivityLog, error) {
	defer rows.Close()
	entries := []domain.ActivityLog{}
	for rows.Next() {
		var (
			entry          domain.ActivityLog
			taskID, userID sql.NullString
			action         string
			changes        string
			createdAt      string
		)
		if err := rows.Scan(&entry.ID, &taskID, &userID, &action, &changes, &createdAt); err != nil {
			return nil, err
		}
		entry.TaskID = taskID.String
		entry.UserID = userID.String
		entry.Action = domain.Action(action)
		if changes != "" {
			_ = json.Unmarshal([]byte(changes), &entry.Changes)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = t
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
