package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "app.db"),
	}}
	backend, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.Pinger.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	user, err := backend.Users.Create(ctx, &domain.User{Name: "a", Email: "a@example.com", PasswordHash: "h", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := backend.Users.GetByID(ctx, user.ID); err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "mongo"}}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
