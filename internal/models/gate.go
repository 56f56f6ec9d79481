package models

import "time"

// GateState enumerates the server-held access gate states. There is no
// terminal state; the gate is a recurring guard.
type GateState string

const (
	GateUnvalidated GateState = "unvalidated"
	GateValidated   GateState = "validated"
	GateLockedOut   GateState = "locked_out"
)

// GateSession is the per-principal gate record. FailedAttempts resets
// when a lockout expires or a key is accepted.
type GateSession struct {
	PrincipalID    string     `json:"principal_id"`
	FailedAttempts int        `json:"failed_attempts"`
	LockoutExpiry  *time.Time `json:"lockout_expiry,omitempty"`
	ValidatedUntil *time.Time `json:"validated_until,omitempty"`
}

// State derives the current gate state at the given instant.
func (g GateSession) State(now time.Time) GateState {
	if g.LockoutExpiry != nil && now.Before(*g.LockoutExpiry) {
		return GateLockedOut
	}
	if g.ValidatedUntil != nil && now.Before(*g.ValidatedUntil) {
		return GateValidated
	}
	return GateUnvalidated
}
