package endpoints

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"gopkg.in/yaml.v3"
)

/* Loader reads endpoint definitions from endpoints.yaml
 * and seeds them into the store at startup
 */

// Config represents the structure of endpoints.yaml
type Config struct {
	Projects []ProjectConfig `yaml:"projects"`
}

// ProjectConfig groups the endpoints of one project
type ProjectConfig struct {
	Key       string           `yaml:"key"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig represents a single endpoint in the YAML file
type EndpointConfig struct {
	HookKey        string           `yaml:"hook_key"`
	Description    string           `yaml:"description"`
	SecretHash     string           `yaml:"secret_hash"`
	Enabled        *bool            `yaml:"enabled"` // Default: true
	RoutingType    string           `yaml:"routing_type"`
	TargetURL      string           `yaml:"target_url"`
	AutomationURL  string           `yaml:"automation_url"`
	WorkflowID     string           `yaml:"workflow_id"`
	TransformRules *transform.Rules `yaml:"transform_rules"`
}

// Store is what seeding needs from an event store
type Store interface {
	EnsureProject(ctx context.Context, projectKey string) (webhook.Project, error)
	UpsertEndpoint(ctx context.Context, endpoint webhook.Endpoint) error
}

// Loader holds the loaded seeds
type Loader struct {
	seeds map[string]*Seed
}

// NewLoader creates a new endpoint loader
func NewLoader() *Loader {
	return &Loader{
		seeds: make(map[string]*Seed),
	}
}

// Load reads and parses the endpoints file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading endpoints file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing endpoints YAML: %w", err)
	}

	for _, pc := range config.Projects {
		for _, ec := range pc.Endpoints {
			enabled := true
			if ec.Enabled != nil {
				enabled = *ec.Enabled
			}

			seed := &Seed{
				ProjectKey:     pc.Key,
				HookKey:        ec.HookKey,
				Description:    ec.Description,
				SecretHash:     ec.SecretHash,
				Enabled:        enabled,
				RoutingType:    webhook.NewRoutingType(ec.RoutingType),
				TargetURL:      ec.TargetURL,
				AutomationURL:  ec.AutomationURL,
				WorkflowID:     ec.WorkflowID,
				TransformRules: ec.TransformRules,
			}

			if err := seed.Validate(); err != nil {
				return fmt.Errorf("validating endpoint: %w", err)
			}
			if _, exists := l.seeds[seed.Key()]; exists {
				return fmt.Errorf("duplicate endpoint %s", seed.Key())
			}

			l.seeds[seed.Key()] = seed
		}
	}

	return nil
}

// Get retrieves a seed by project and hook key
func (l *Loader) Get(projectKey, hookKey string) (*Seed, error) {
	seed, exists := l.seeds[webhook.HookChannel(projectKey, hookKey)]
	if !exists {
		return nil, fmt.Errorf("endpoint not found: %s/%s", projectKey, hookKey)
	}
	return seed, nil
}

// List returns all loaded seeds ordered by project and hook key
func (l *Loader) List() []*Seed {
	seeds := make([]*Seed, 0, len(l.seeds))
	for _, seed := range l.seeds {
		seeds = append(seeds, seed)
	}
	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i].Key() < seeds[j].Key()
	})
	return seeds
}

// Seed writes every loaded endpoint, creating missing projects.
// Seeded endpoints are authoritative: a rotated secret is replaced by the file's hash on the next start.
func (l *Loader) Seed(ctx context.Context, store Store) (int, error) {
	projects := make(map[string]webhook.Project)
	now := time.Now().UTC()

	seeded := 0
	for _, seed := range l.List() {
		project, ok := projects[seed.ProjectKey]
		if !ok {
			var err error
			project, err = store.EnsureProject(ctx, seed.ProjectKey)
			if err != nil {
				return seeded, fmt.Errorf("ensuring project %s: %w", seed.ProjectKey, err)
			}
			projects[seed.ProjectKey] = project
		}

		err := store.UpsertEndpoint(ctx, webhook.Endpoint{
			ID:             uuid.New().String(),
			ProjectID:      project.ID,
			HookKey:        seed.HookKey,
			Description:    seed.Description,
			SecretHash:     seed.SecretHash,
			Enabled:        seed.Enabled,
			RoutingType:    seed.RoutingType,
			TargetURL:      seed.TargetURL,
			AutomationURL:  seed.AutomationURL,
			WorkflowID:     seed.WorkflowID,
			TransformRules: seed.TransformRules,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return seeded, fmt.Errorf("seeding endpoint %s: %w", seed.Key(), err)
		}
		seeded++
	}
	return seeded, nil
}
