package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
)

type recordingActivity struct {
	mu      sync.Mutex
	err     error
	entries map[string]domain.ActivityLog
	calls   int
}

func (r *recordingActivity) Append(_ context.Context, entry *domain.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	if r.entries == nil {
		r.entries = make(map[string]domain.ActivityLog)
	}
	r.entries[entry.ID] = *entry
	return nil
}

func (r *recordingActivity) ListByTask(context.Context, string) ([]domain.ActivityLog, error) {
	return nil, nil
}

func (r *recordingActivity) ListRecent(context.Context, int) ([]domain.ActivityLog, error) {
	return nil, nil
}

type staticHealth bool

func (s staticHealth) IsOnline() bool { return bool(s) }

func newProcessor(t *testing.T, repo *recordingActivity, health ConnectionHealth, maxRetries int) *BufferProcessor {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), "")
	if err != nil {
		t.Fatalf("buffer.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewBufferProcessor(store, health, repo, nil, ProcessorConfig{Interval: time.Hour, MaxRetries: maxRetries})
}

func TestBridgeBuffersAndDrainReplays(t *testing.T) {
	repo := &recordingActivity{}
	processor := newProcessor(t, repo, nil, 3)
	bridge := NewBufferBridge(processor)
	ctx := context.Background()

	entry := &domain.ActivityLog{
		ID:        "entry-1",
		TaskID:    "task-1",
		UserID:    "user-1",
		Action:    domain.ActionUpdated,
		Changes:   map[string]any{"status": "completed"},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := bridge.BufferActivity(ctx, entry); err != nil {
		t.Fatalf("BufferActivity() error = %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("buffering must not write to the store")
	}
	if processor.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", processor.Size())
	}

	stats, err := processor.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Replayed != 1 || processor.Size() != 0 {
		t.Fatalf("stats = %#v, size = %d", stats, processor.Size())
	}
	got, ok := repo.entries["entry-1"]
	if !ok {
		t.Fatalf("entry not replayed")
	}
	if got.TaskID != "task-1" || got.Action != domain.ActionUpdated || got.Changes["status"] != "completed" || !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Fatalf("replayed entry differs: %#v", got)
	}
}

func TestDrainRetriesThenDrops(t *testing.T) {
	repo := &recordingActivity{err: errors.New("store down")}
	processor := newProcessor(t, repo, nil, 2)
	ctx := context.Background()

	if err := NewBufferBridge(processor).BufferActivity(ctx, &domain.ActivityLog{ID: "e", Action: domain.ActionCreated}); err != nil {
		t.Fatalf("BufferActivity() error = %v", err)
	}

	first, err := processor.Drain(ctx)
	if err != nil || first.Retried != 1 || processor.Size() != 1 {
		t.Fatalf("first drain = %#v, %v, size %d", first, err, processor.Size())
	}
	second, err := processor.Drain(ctx)
	if err != nil || second.Dropped != 1 || processor.Size() != 0 {
		t.Fatalf("second drain = %#v, %v, size %d", second, err, processor.Size())
	}
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	repo := &recordingActivity{}
	processor := newProcessor(t, repo, staticHealth(false), 3)
	ctx := context.Background()

	if err := NewBufferBridge(processor).BufferActivity(ctx, &domain.ActivityLog{ID: "e", Action: domain.ActionCreated}); err != nil {
		t.Fatalf("BufferActivity() error = %v", err)
	}
	if _, err := processor.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if repo.calls != 0 || processor.Size() != 1 {
		t.Fatalf("offline drain should not touch the store")
	}
}

func TestBridgeRejectsNilEntry(t *testing.T) {
	processor := newProcessor(t, &recordingActivity{}, nil, 3)
	if err := NewBufferBridge(processor).BufferActivity(context.Background(), nil); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
