package webhook

import "fmt"

/* RoutingType represents how a received event leaves the system
 * ForwardURL posts to an arbitrary URL
 * AutomationEngine posts to the automation engine webhook URL
 * Internal hands the event to the in-process workflow engine
 */
type RoutingType int

const (
	ForwardURLRouting RoutingType = iota + 1
	AutomationEngineRouting
	InternalRouting
)

// String returns the string representation of the routing type
func (r RoutingType) String() string {
	switch r {
	case ForwardURLRouting:
		return "FORWARD_URL"
	case AutomationEngineRouting:
		return "TRIGGER_AUTOMATION_ENGINE"
	case InternalRouting:
		return "TRIGGER_INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// NewRoutingType creates a RoutingType from a string
func NewRoutingType(s string) RoutingType {
	switch s {
	case "FORWARD_URL":
		return ForwardURLRouting
	case "TRIGGER_AUTOMATION_ENGINE":
		return AutomationEngineRouting
	case "TRIGGER_INTERNAL":
		return InternalRouting
	default:
		return 0
	}
}

// Validate checks if the routing type is valid
func (r RoutingType) Validate() error {
	if r < ForwardURLRouting || r > InternalRouting {
		return fmt.Errorf("invalid routing type: %d", r)
	}
	return nil
}

// MarshalText stores the routing type by name
func (r RoutingType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a routing type name, rejecting unknown values
func (r *RoutingType) UnmarshalText(text []byte) error {
	parsed := NewRoutingType(string(text))
	if err := parsed.Validate(); err != nil {
		return fmt.Errorf("parsing routing type %q: %w", string(text), err)
	}
	*r = parsed
	return nil
}

/* Route is the destination of an endpoint resolved from its routing type
 * The set of implementations is closed: ForwardURL, AutomationEngine and Internal
 */
type Route interface {
	route()
}

// ForwardURL delivers to a plain HTTP endpoint
type ForwardURL struct {
	URL string
}

// AutomationEngine delivers to the automation engine's webhook trigger
type AutomationEngine struct {
	URL string
}

// Internal triggers an in-process workflow
type Internal struct {
	WorkflowID string
}

func (ForwardURL) route()       {}
func (AutomationEngine) route() {}
func (Internal) route()         {}
