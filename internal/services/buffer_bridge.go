package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/usecase"
)

// BufferBridge adapts the processor to the outbox port used by the activity recorder.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

// BufferActivity keeps the entry id so a replay after a partial write stays a no-op.
func (b *BufferBridge) BufferActivity(ctx context.Context, entry *domain.ActivityLog) error {
	if b.processor == nil || entry == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.processor.BufferOperation(ctx, buffer.Item{
		ID:        entry.ID,
		Entity:    buffer.EntityActivity,
		Operation: buffer.OperationAppend,
		Data:      payload,
		Priority:  3,
	})
}

var _ usecase.ActivityOutbox = (*BufferBridge)(nil)
