package webhook

import "fmt"

/* Status represents the current state of a delivery event
 * Follows the lifecycle: Received -> Routed -> Success/Failed
 * There are no backward transitions, a failed event is only recovered by a replay
 */
type Status int

const (
	Received Status = iota + 1
	Routed
	Success
	Failed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Received:
		return "RECEIVED"
	case Routed:
		return "ROUTED"
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "RECEIVED":
		return Received
	case "ROUTED":
		return Routed
	case "SUCCESS":
		return Success
	case "FAILED":
		return Failed
	default:
		return 0
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Received || s > Failed {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsFinal returns true if the status is a terminal state
func (s Status) IsFinal() bool {
	return s == Success || s == Failed
}

// CanTransitionTo reports whether moving from s to next respects the lifecycle
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case Received:
		return next == Routed
	case Routed:
		return next == Success || next == Failed
	default:
		return false
	}
}

// MarshalText stores the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name, rejecting unknown values
func (s *Status) UnmarshalText(text []byte) error {
	parsed := NewStatus(string(text))
	if err := parsed.Validate(); err != nil {
		return fmt.Errorf("parsing status %q: %w", string(text), err)
	}
	*s = parsed
	return nil
}
