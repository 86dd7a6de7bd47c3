package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestCheckReportsDependencies(t *testing.T) {
	outbox, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), "")
	if err != nil {
		t.Fatalf("buffer.Open() error = %v", err)
	}
	defer outbox.Close()
	_ = outbox.Enqueue(buffer.Item{Entity: buffer.EntityActivity})

	storage := &fakePinger{}
	m := New(storage, nil, outbox, time.Hour, nil)

	status := m.Check(context.Background())
	if status.Storage != StateUp || status.Redis != StateDisabled || status.Outbox != StateUp || status.OutboxSize != 1 {
		t.Fatalf("unexpected status %#v", status)
	}
	if !m.IsOnline() {
		t.Fatalf("expected online")
	}

	storage.err = errors.New("connection refused")
	m.Check(context.Background())
	if m.IsOnline() || m.GetStatus().Storage != StateDown {
		t.Fatalf("expected storage down, got %#v", m.GetStatus())
	}
}

func TestStartStop(t *testing.T) {
	m := New(&fakePinger{}, nil, nil, 10*time.Millisecond, nil)
	m.Start()
	if m.GetStatus().LastCheck.IsZero() {
		t.Fatalf("Start should run an initial check")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
