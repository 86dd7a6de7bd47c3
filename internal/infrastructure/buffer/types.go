package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityActivity = "activity"

	OperationAppend = "append"
)

const defaultPriority = 3

// Item is a write that could not reach primary storage and waits for replay.
type Item struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`
	// EnqueuedAt is fixed at the first Enqueue; Timestamp moves on Requeue.
	EnqueuedAt time.Time `json:"enqueued_at"`

	key []byte
}

func (i *Item) enqueuedAt() time.Time {
	if i.EnqueuedAt.IsZero() {
		return i.Timestamp
	}
	return i.EnqueuedAt
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
	if i.EnqueuedAt.IsZero() {
		i.EnqueuedAt = i.Timestamp
	}
}
