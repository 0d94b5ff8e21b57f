package webhook

import (
	"fmt"
	"regexp"
	"time"

	"github.com/marcelsud/webhook-router/webhook/transform"
)

var hookKeyPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Project is the tenant owning endpoints. It is managed outside this module.
type Project struct {
	ID  string
	Key string
}

/* Endpoint represents a configured webhook destination
 * Uses value semantics as it represents data, not behavior
 */
type Endpoint struct {
	ID             string
	ProjectID      string
	HookKey        string
	Description    string
	SecretHash     string
	Enabled        bool
	RoutingType    RoutingType
	TargetURL      string
	AutomationURL  string
	WorkflowID     string
	TransformRules *transform.Rules
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Route resolves the endpoint's routing type into its destination.
// Missing destinations are not checked here, the dispatcher reports them per event.
func (e Endpoint) Route() (Route, error) {
	switch e.RoutingType {
	case ForwardURLRouting:
		return ForwardURL{URL: e.TargetURL}, nil
	case AutomationEngineRouting:
		return AutomationEngine{URL: e.AutomationURL}, nil
	case InternalRouting:
		return Internal{WorkflowID: e.WorkflowID}, nil
	default:
		return nil, fmt.Errorf("unknown routing type: %s", e.RoutingType)
	}
}

// ValidateHookKey checks the URL-friendly format of a hook key
func ValidateHookKey(hookKey string) error {
	if len(hookKey) < 2 || len(hookKey) > 50 {
		return fmt.Errorf("%w: hook key must be between 2 and 50 characters", ErrInvalidEndpoint)
	}
	if !hookKeyPattern.MatchString(hookKey) {
		return fmt.Errorf("%w: hook key must be lowercase with hyphens only", ErrInvalidEndpoint)
	}
	return nil
}
