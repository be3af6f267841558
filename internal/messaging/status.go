package messaging

import "strings"

// Status represents the delivery lifecycle of a single outbound message.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusSent        Status = "sent"
	StatusDelivered   Status = "delivered"
	StatusFailed      Status = "failed"
	StatusUndelivered Status = "undelivered"
)

// IsTerminal reports whether no further transitions are accepted from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusSent, StatusDelivered, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}

// ParseReportedStatus maps a provider status string onto the lifecycle enum.
// Unrecognized values collapse to sent: providers emit vendor-specific
// intermediate states, and treating them as anything stronger would let a
// garbled report terminate a message.
func ParseReportedStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return StatusSent
	}
	return s
}

// allowedPredecessors lists the statuses a message may hold immediately
// before transitioning to next. Providers may skip intermediate reports, so
// every terminal status is reachable straight from queued.
func allowedPredecessors(next Status) []Status {
	switch next {
	case StatusSent:
		return []Status{StatusQueued}
	case StatusDelivered, StatusFailed, StatusUndelivered:
		return []Status{StatusQueued, StatusSent}
	default:
		// queued is the initial state only; nothing transitions into it.
		return nil
	}
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, p := range allowedPredecessors(to) {
		if p == from {
			return true
		}
	}
	return false
}
