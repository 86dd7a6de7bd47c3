package transport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fastygo/taskflow/domain"
)

func TestDecodeValidatesSignUp(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty body", ``, "invalid payload"},
		{"malformed", `{"name":`, "invalid payload"},
		{"missing email", `{"name":"a","password":"p"}`, "email is required"},
		{"bad email", `{"name":"a","email":"nope","password":"p"}`, "email must be a valid email address"},
		{"bad role", `{"name":"a","email":"a@b.io","password":"p","role":"root"}`, "role must be one of user, manager, admin"},
	}
	for _, tc := range cases {
		var req SignUpRequest
		err := Decode([]byte(tc.body), &req)
		if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
			t.Fatalf("%s: expected invalid error, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err.Error(), tc.wantMsg)
		}
	}

	var ok SignUpRequest
	if err := Decode([]byte(`{"name":"Ann","email":"ann@example.com","password":"secret"}`), &ok); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestCreateTaskInputParsesDueDate(t *testing.T) {
	input, err := CreateTaskRequest{Title: "t", DueDate: "2026-03-01"}.Input()
	if err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	if input.DueDate == nil || !input.DueDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("due date = %v", input.DueDate)
	}

	input, err = CreateTaskRequest{Title: "t", DueDate: "2026-03-01T10:00:00+02:00"}.Input()
	if err != nil || input.DueDate.Hour() != 8 {
		t.Fatalf("rfc3339 due date = %v, %v", input.DueDate, err)
	}

	if _, err := (CreateTaskRequest{Title: "t", DueDate: "tomorrow"}).Input(); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid due date, got %v", err)
	}
}

func TestUpdateTaskPatchKeepsAbsentAndNullApart(t *testing.T) {
	var req UpdateTaskRequest
	if err := Decode([]byte(`{"status":"completed","due_date":null,"assigned_to":""}`), &req); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	patch, err := req.Patch()
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if patch.Title.Set || patch.Description.Set || patch.Priority.Set {
		t.Fatalf("absent fields should stay unset: %#v", patch)
	}
	if !patch.Status.Set || *patch.Status.Value != domain.StatusCompleted {
		t.Fatalf("status = %#v", patch.Status)
	}
	if !patch.DueDate.IsNull() {
		t.Fatalf("due_date should clear, got %#v", patch.DueDate)
	}
	normalized, err := patch.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !normalized.AssignedTo.IsNull() {
		t.Fatalf("empty assigned_to should clear, got %#v", normalized.AssignedTo)
	}
}

func TestUpdateTaskEmptyBody(t *testing.T) {
	var req UpdateTaskRequest
	if err := Decode([]byte(`{}`), &req); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	patch, _ := req.Patch()
	if _, err := patch.Normalize(); !errors.Is(err, domain.ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
}
