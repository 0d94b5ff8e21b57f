package endpoints

import (
	"fmt"

	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/marcelsud/webhook-router/webhook/transform"
)

/* Seed is an endpoint declared in endpoints.yaml
 * Only the secret hash is ever written in the file, never the plaintext
 */
type Seed struct {
	ProjectKey     string
	HookKey        string
	Description    string
	SecretHash     string
	Enabled        bool
	RoutingType    webhook.RoutingType
	TargetURL      string
	AutomationURL  string
	WorkflowID     string
	TransformRules *transform.Rules
}

// Validate checks if the seed can be stored as an endpoint
func (s *Seed) Validate() error {
	if s.ProjectKey == "" {
		return fmt.Errorf("project key cannot be empty for hook %s", s.HookKey)
	}
	if err := webhook.ValidateHookKey(s.HookKey); err != nil {
		return fmt.Errorf("invalid hook_key %q in project %s: %w", s.HookKey, s.ProjectKey, err)
	}
	if err := s.RoutingType.Validate(); err != nil {
		return fmt.Errorf("invalid routing_type for %s: %w", s.Key(), err)
	}
	// Destinations are checked here even though the router tolerates them missing:
	// a seed file is reviewed before it ships, an empty URL there is always a mistake
	switch s.RoutingType {
	case webhook.ForwardURLRouting:
		if s.TargetURL == "" {
			return fmt.Errorf("target_url cannot be empty for %s", s.Key())
		}
	case webhook.AutomationEngineRouting:
		if s.AutomationURL == "" {
			return fmt.Errorf("automation_url cannot be empty for %s", s.Key())
		}
	}
	if err := secret.ValidateHash(s.SecretHash); err != nil {
		return fmt.Errorf("invalid secret_hash for %s: %w", s.Key(), err)
	}
	if err := s.TransformRules.Validate(); err != nil {
		return fmt.Errorf("invalid transform_rules for %s: %w", s.Key(), err)
	}
	return nil
}

// Key identifies the seed the way realtime channels do, project:hook
func (s *Seed) Key() string {
	return webhook.HookChannel(s.ProjectKey, s.HookKey)
}
