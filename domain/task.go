package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task. Any status may follow any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus validates a status filter or payload value. Empty input is
// returned as the empty Status so callers can treat it as "any".
func ParseStatus(value string) (Status, error) {
	status := Status(strings.TrimSpace(value))
	if status == "" || status.Valid() {
		return status, nil
	}
	return "", Invalid("status must be one of pending, in-progress, completed")
}

// Priority ranks tasks for their assignees.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work created by a manager or admin and optionally assigned
// to another user.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsAssignedTo reports whether userID is the task's assignee.
func (t *Task) IsAssignedTo(userID string) bool {
	return t != nil && t.AssignedTo != nil && *t.AssignedTo == userID && userID != ""
}

// IsCreatedBy reports whether userID created the task.
func (t *Task) IsCreatedBy(userID string) bool {
	return t != nil && userID != "" && t.CreatedBy == userID
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	AssignedTo  string
	DueDate     *time.Time
}

// NewTask validates input and builds a task owned by createdBy with defaults applied.
func NewTask(input TaskInput, createdBy string) (*Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if createdBy == "" {
		return nil, ErrUnknownCreator
	}
	task := &Task{
		Title:       title,
		Description: optionalString(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		AssignedTo:  optionalString(input.AssignedTo),
		CreatedBy:   createdBy,
		DueDate:     input.DueDate,
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if !task.Status.Valid() {
		return nil, Invalid("status must be one of pending, in-progress, completed")
	}
	if !task.Priority.Valid() {
		return nil, Invalid("priority must be one of low, medium, high")
	}
	return task, nil
}

// Changes lists the submitted creation fields for the audit trail.
func (in TaskInput) Changes() map[string]any {
	changes := map[string]any{"title": strings.TrimSpace(in.Title)}
	if in.Description != "" {
		changes["description"] = in.Description
	}
	if in.Priority != "" {
		changes["priority"] = string(in.Priority)
	}
	if in.Status != "" {
		changes["status"] = string(in.Status)
	}
	if in.AssignedTo != "" {
		changes["assigned_to"] = in.AssignedTo
	}
	if in.DueDate != nil {
		changes["due_date"] = in.DueDate.UTC().Format(time.RFC3339)
	}
	return changes
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
