package monitor

import "time"

// State is the health of one dependency.
type State string

const (
	StateUp       State = "up"
	StateDown     State = "down"
	StateDisabled State = "disabled"
)

type Status struct {
	Storage    State     `json:"storage"`
	Redis      State     `json:"redis"`
	Outbox     State     `json:"outbox"`
	OutboxSize int       `json:"outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether requests can be served. Redis and the outbox only
// degrade rate limiting and audit durability.
func (s Status) Healthy() bool {
	return s.Storage == StateUp
}
