package dto

import "time"

// GateSubmitRequest carries the access key for validation.
type GateSubmitRequest struct {
	Key string `json:"key" validate:"required"`
}

// GateStatusResponse mirrors the server-held gate state so clients can
// render remaining attempts or lockout countdowns.
type GateStatusResponse struct {
	State             string     `json:"state"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	ValidatedUntil    *time.Time `json:"validated_until,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
}
