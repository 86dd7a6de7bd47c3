package transport

import (
	"time"

	"github.com/fastygo/taskflow/domain"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewError(code domain.ErrorCode, message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: string(code)}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Message   string       `json:"message"`
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type TaskResponse struct {
	Message string       `json:"message"`
	Task    *domain.Task `json:"task"`
}

type ActivityResponse struct {
	Activity []domain.ActivityLog `json:"activity"`
}
