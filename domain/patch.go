package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Field is a tri-state JSON value: absent (Set == false), explicitly null
// (Set == true, Value == nil) or present with a value.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null returns a field that explicitly clears the value.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

// UnmarshalJSON is only invoked for keys present in the payload, which is what
// distinguishes "absent" from "null".
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// IsNull reports whether the field was submitted without a value.
func (f Field[T]) IsNull() bool {
	return f.Set && f.Value == nil
}

// TaskPatch is a sparse update: only set fields are applied. Clearing optional
// fields is done with null or an empty string.
type TaskPatch struct {
	Title       Field[string]
	Description Field[string]
	Status      Field[Status]
	Priority    Field[Priority]
	AssignedTo  Field[string]
	DueDate     Field[time.Time]
}

// Empty reports whether no field was submitted.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set &&
		!p.Priority.Set && !p.AssignedTo.Set && !p.DueDate.Set
}

// Normalize validates the patch and folds empty strings into explicit clears.
func (p TaskPatch) Normalize() (TaskPatch, error) {
	if p.Empty() {
		return p, ErrEmptyPatch
	}
	if p.Title.Set {
		if p.Title.Value == nil || strings.TrimSpace(*p.Title.Value) == "" {
			return p, ErrTitleRequired
		}
		p.Title = Some(strings.TrimSpace(*p.Title.Value))
	}
	if p.Status.Set && (p.Status.Value == nil || !p.Status.Value.Valid()) {
		return p, Invalid("status must be one of pending, in-progress, completed")
	}
	if p.Priority.Set && (p.Priority.Value == nil || !p.Priority.Value.Valid()) {
		return p, Invalid("priority must be one of low, medium, high")
	}
	p.Description = clearBlank(p.Description)
	p.AssignedTo = clearBlank(p.AssignedTo)
	return p, nil
}

// Changes renders the submitted fields for the audit trail. Cleared fields are
// recorded as nil.
func (p TaskPatch) Changes() map[string]any {
	changes := make(map[string]any)
	putField(changes, "title", p.Title, func(v string) any { return v })
	putField(changes, "description", p.Description, func(v string) any { return v })
	putField(changes, "status", p.Status, func(v Status) any { return string(v) })
	putField(changes, "priority", p.Priority, func(v Priority) any { return string(v) })
	putField(changes, "assigned_to", p.AssignedTo, func(v string) any { return v })
	putField(changes, "due_date", p.DueDate, func(v time.Time) any { return v.UTC().Format(time.RFC3339) })
	return changes
}

// Apply writes the patch onto a copy of task. The caller sets UpdatedAt.
func (p TaskPatch) Apply(task Task) Task {
	if p.Title.Set && p.Title.Value != nil {
		task.Title = *p.Title.Value
	}
	if p.Description.Set {
		task.Description = p.Description.Value
	}
	if p.Status.Set && p.Status.Value != nil {
		task.Status = *p.Status.Value
	}
	if p.Priority.Set && p.Priority.Value != nil {
		task.Priority = *p.Priority.Value
	}
	if p.AssignedTo.Set {
		task.AssignedTo = p.AssignedTo.Value
	}
	if p.DueDate.Set {
		task.DueDate = p.DueDate.Value
	}
	return task
}

// clearBlank trims a submitted string and turns a blank one into a clear.
func clearBlank(f Field[string]) Field[string] {
	if !f.Set || f.Value == nil {
		return f
	}
	value := strings.TrimSpace(*f.Value)
	if value == "" {
		return Null[string]()
	}
	return Some(value)
}

func putField[T any](changes map[string]any, key string, f Field[T], render func(T) any) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		changes[key] = nil
		return
	}
	changes[key] = render(*f.Value)
}
