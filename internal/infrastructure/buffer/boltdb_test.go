package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "outbox", "buffer.db"), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreOrdersByPriorityThenAge(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	items := []Item{
		{ID: "late", Priority: 3, Timestamp: base.Add(2 * time.Second)},
		{ID: "urgent", Priority: 1, Timestamp: base.Add(5 * time.Second)},
		{ID: "early", Priority: 3, Timestamp: base},
	}
	for _, item := range items {
		item.Entity = EntityActivity
		item.Data = json.RawMessage(`{}`)
		if err := store.Enqueue(item); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	batch, err := store.Peek(10)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	want := []string{"urgent", "early", "late"}
	if len(batch) != len(want) {
		t.Fatalf("got %d items", len(batch))
	}
	for i, id := range want {
		if batch[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, batch[i].ID, id)
		}
	}

	if err := store.Remove(batch[0]); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if n, _ := store.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2", n)
	}
}

func TestStoreRequeueMovesItemBack(t *testing.T) {
	store := openStore(t)
	for _, id := range []string{"a", "b"} {
		if err := store.Enqueue(Item{ID: id, Entity: EntityActivity}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	batch, _ := store.Peek(1)
	first := batch[0]
	first.Retries++
	if err := store.Requeue(first); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}

	batch, err := store.Peek(10)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if len(batch) != 2 || batch[0].ID != "b" || batch[1].ID != "a" || batch[1].Retries != 1 {
		t.Fatalf("unexpected order after requeue: %#v", batch)
	}
}

func TestStorePrune(t *testing.T) {
	store := openStore(t)
	now := time.Now()
	_ = store.Enqueue(Item{ID: "old", Timestamp: now.Add(-48 * time.Hour)})
	_ = store.Enqueue(Item{ID: "fresh", Timestamp: now})

	removed, err := store.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	batch, _ := store.Peek(10)
	if len(batch) != 1 || batch[0].ID != "fresh" {
		t.Fatalf("unexpected remaining items %#v", batch)
	}
	if err := store.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestStorePruneIgnoresRequeueTime(t *testing.T) {
	store := openStore(t)
	now := time.Now()
	if err := store.Enqueue(Item{ID: "retried", Timestamp: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	batch, _ := store.Peek(1)
	item := batch[0]
	item.Retries++
	if err := store.Requeue(item); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	batch, _ = store.Peek(1)
	if !batch[0].EnqueuedAt.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("enqueue time changed on requeue: %s", batch[0].EnqueuedAt)
	}

	removed, err := store.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
