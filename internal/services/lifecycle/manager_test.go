package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	for _, name := range []string{"store", "outbox", "http"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	want := []string{"http", "outbox", "store"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdownJoinsErrorsAndContinues(t *testing.T) {
	m := New(time.Second, nil)
	errA := errors.New("a failed")
	ran := false
	m.Register("last", func(context.Context) error { ran = true; return nil })
	m.Register("first", func(context.Context) error { return errA })

	err := m.Shutdown(context.Background())
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ran {
		t.Fatalf("a failing hook must not stop the others")
	}
}

func TestShutdownIsOnceAndBounded(t *testing.T) {
	m := New(50*time.Millisecond, nil)
	calls := 0
	m.Register("slow", func(ctx context.Context) error {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("hook context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Shutdown(parent); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("hook ran %d times", calls)
	}

	m.Register("late", func(context.Context) error { t.Fatal("late hook ran"); return nil })
	_ = m.Shutdown(context.Background())
}
