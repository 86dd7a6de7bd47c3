package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/taskflow/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user manager admin"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
}

// Input converts the request into domain input.
func (r CreateTaskRequest) Input() (domain.TaskInput, error) {
	input := domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.Status(r.Status),
		Priority:    domain.Priority(r.Priority),
		AssignedTo:  r.AssignedTo,
	}
	if strings.TrimSpace(r.DueDate) != "" {
		due, err := ParseDueDate(r.DueDate)
		if err != nil {
			return input, err
		}
		input.DueDate = &due
	}
	return input, nil
}

// UpdateTaskRequest keeps absent and null apart so clears can be expressed.
type UpdateTaskRequest struct {
	Title       domain.Field[string] `json:"title"`
	Description domain.Field[string] `json:"description"`
	Status      domain.Field[string] `json:"status"`
	Priority    domain.Field[string] `json:"priority"`
	AssignedTo  domain.Field[string] `json:"assigned_to"`
	DueDate     domain.Field[string] `json:"due_date"`
}

// Patch converts the request into a sparse domain patch. An empty due_date
// string clears the date like null does.
func (r UpdateTaskRequest) Patch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      convertField(r.Status, func(v string) domain.Status { return domain.Status(v) }),
		Priority:    convertField(r.Priority, func(v string) domain.Priority { return domain.Priority(v) }),
		AssignedTo:  r.AssignedTo,
	}
	if r.DueDate.Set {
		switch {
		case r.DueDate.Value == nil || strings.TrimSpace(*r.DueDate.Value) == "":
			patch.DueDate = domain.Null[time.Time]()
		default:
			due, err := ParseDueDate(*r.DueDate.Value)
			if err != nil {
				return patch, err
			}
			patch.DueDate = domain.Some(due)
		}
	}
	return patch, nil
}

func convertField[From, To any](f domain.Field[From], conv func(From) To) domain.Field[To] {
	if !f.Set {
		return domain.Field[To]{}
	}
	if f.Value == nil {
		return domain.Null[To]()
	}
	return domain.Some(conv(*f.Value))
}

// ParseDueDate accepts RFC 3339 timestamps and plain dates.
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, domain.Invalid("due_date must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// Decode unmarshals body into dst and runs struct validation. All failures
// are INVALID domain errors.
func Decode(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.ErrInvalidPayload
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return domain.Invalid(strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
