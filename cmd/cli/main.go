package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/marcelsud/webhook-router/config"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/dispatch"
	"github.com/marcelsud/webhook-router/webhook/postgres"
	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/marcelsud/webhook-router/webhook/sqlite"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

/*
CLI - operator commands against the configured store

	webhook-cli hash-secret                       print a new secret and the hash for endpoints.yaml
	webhook-cli create-endpoint acme orders ...   create an endpoint, prints its secret once
	webhook-cli update-endpoint acme orders --disabled
	webhook-cli rotate-secret acme orders         replace the secret, prints the new one once
	webhook-cli events acme orders --status FAILED
	webhook-cli replay acme orders <event-id>     re-route an event and wait for the result

Uses the same .env / environment configuration as the API.
*/

// syncRunner routes inline, there is no request to answer early here
type syncRunner struct {
	logger zerolog.Logger
}

func (r syncRunner) Go(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		r.logger.Error().Err(err).Str("job", name).Msg("background job failed")
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var actor string

	root := &cobra.Command{
		Use:          "webhook-cli",
		Short:        "Manage webhook endpoints and events",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&actor, "actor", "cli", "actor recorded in the audit log")

	root.AddCommand(
		hashSecretCmd(),
		createEndpointCmd(&actor),
		updateEndpointCmd(&actor),
		rotateSecretCmd(&actor),
		eventsCmd(),
		replayCmd(&actor),
	)
	return root
}

func hashSecretCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-secret",
		Short: "Generate a secret and its bcrypt hash for endpoints.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			generated, err := secret.New(cost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "secret:      %s\nsecret_hash: %s\n", generated.Plain, generated.Hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", secret.DefaultCost, "bcrypt cost")
	return cmd
}

func createEndpointCmd(actor *string) *cobra.Command {
	var (
		description   string
		routingType   string
		targetURL     string
		automationURL string
		workflowID    string
		rulesJSON     string
		disabled      bool
	)
	cmd := &cobra.Command{
		Use:   "create-endpoint <project-key> <hook-key>",
		Short: "Create an endpoint and print its secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := webhook.EndpointInput{
				HookKey:       args[1],
				Description:   description,
				RoutingType:   webhook.NewRoutingType(routingType),
				TargetURL:     targetURL,
				AutomationURL: automationURL,
				WorkflowID:    workflowID,
			}
			if rulesJSON != "" {
				var rules transform.Rules
				if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
					return fmt.Errorf("parsing --transform-rules: %w", err)
				}
				input.TransformRules = &rules
			}
			enabled := !disabled
			input.Enabled = &enabled

			return withService(cmd.Context(), func(s *webhook.Service) error {
				endpoint, plain, err := s.CreateEndpoint(cmd.Context(), args[0], input, *actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\nsecret: %s\n", endpoint.HookKey, endpoint.ID, plain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "endpoint description")
	cmd.Flags().StringVar(&routingType, "routing-type", webhook.ForwardURLRouting.String(), "FORWARD_URL, TRIGGER_AUTOMATION_ENGINE or TRIGGER_INTERNAL")
	cmd.Flags().StringVar(&targetURL, "target-url", "", "destination for FORWARD_URL")
	cmd.Flags().StringVar(&automationURL, "automation-url", "", "destination for TRIGGER_AUTOMATION_ENGINE")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "workflow for TRIGGER_INTERNAL")
	cmd.Flags().StringVar(&rulesJSON, "transform-rules", "", `transform rules as JSON, e.g. {"bodyMappings":[{"source":"$.id","target":"id"}]}`)
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the endpoint disabled")
	return cmd
}

func updateEndpointCmd(actor *string) *cobra.Command {
	var (
		description   string
		routingType   string
		targetURL     string
		automationURL string
		workflowID    string
		rulesJSON     string
		enable        bool
		disable       bool
	)
	cmd := &cobra.Command{
		Use:   "update-endpoint <project-key> <hook-key>",
		Short: "Change the configuration of an endpoint, unset flags are kept",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var update webhook.EndpointUpdate
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("routing-type") {
				rt := webhook.NewRoutingType(routingType)
				update.RoutingType = &rt
			}
			if flags.Changed("target-url") {
				update.TargetURL = &targetURL
			}
			if flags.Changed("automation-url") {
				update.AutomationURL = &automationURL
			}
			if flags.Changed("workflow-id") {
				update.WorkflowID = &workflowID
			}
			if flags.Changed("transform-rules") {
				var rules transform.Rules
				if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
					return fmt.Errorf("parsing --transform-rules: %w", err)
				}
				update.TransformRules = &rules
			}
			if flags.Changed("enabled") {
				update.Enabled = &enable
			}
			if flags.Changed("disabled") {
				enabled := !disable
				update.Enabled = &enabled
			}

			return withService(cmd.Context(), func(s *webhook.Service) error {
				endpoint, err := s.UpdateEndpoint(cmd.Context(), args[0], args[1], update, *actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s) routing=%s enabled=%t\n",
					endpoint.HookKey, endpoint.ID, endpoint.RoutingType, endpoint.Enabled)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "endpoint description")
	cmd.Flags().StringVar(&routingType, "routing-type", "", "FORWARD_URL, TRIGGER_AUTOMATION_ENGINE or TRIGGER_INTERNAL")
	cmd.Flags().StringVar(&targetURL, "target-url", "", "destination for FORWARD_URL")
	cmd.Flags().StringVar(&automationURL, "automation-url", "", "destination for TRIGGER_AUTOMATION_ENGINE")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "workflow for TRIGGER_INTERNAL")
	cmd.Flags().StringVar(&rulesJSON, "transform-rules", "", "replacement transform rules as JSON, {} turns them off")
	cmd.Flags().BoolVar(&enable, "enabled", false, "accept calls again")
	cmd.Flags().BoolVar(&disable, "disabled", false, "reject calls with 403")
	cmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	return cmd
}

func rotateSecretCmd(actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-secret <project-key> <hook-key>",
		Short: "Replace an endpoint secret and print the new one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *webhook.Service) error {
				plain, err := s.RotateSecret(cmd.Context(), args[0], args[1], *actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "secret: %s\n", plain)
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	var filter webhook.EventFilter
	var status string
	cmd := &cobra.Command{
		Use:   "events <project-key> <hook-key>",
		Short: "List events of an endpoint, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				filter.Status = webhook.NewStatus(status)
				if err := filter.Status.Validate(); err != nil {
					return err
				}
			}
			return withService(cmd.Context(), func(s *webhook.Service) error {
				events, total, err := s.ListEvents(cmd.Context(), args[0], args[1], filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d event(s)\n", total)
				for _, e := range events {
					fmt.Fprintf(out, "%s  %-8s  %s  %s\n", e.ID, e.Status, e.ReceivedAt.Format("2006-01-02 15:04:05"), e.RequestOrigin)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "RECEIVED, ROUTED, SUCCESS or FAILED")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "page size (default 50)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}

func replayCmd(actor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <project-key> <hook-key> <event-id>",
		Short: "Re-route an event and print the resolved replay",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *webhook.Service) error {
				event, err := s.Replay(cmd.Context(), args[0], args[1], args[2], *actor)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(event)
			})
		},
	}
}

// withService opens the configured store, runs fn and closes the store
func withService(ctx context.Context, fn func(s *webhook.Service) error) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	var repo webhook.Repository
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		pg, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		repo = pg
	default:
		lite, err := sqlite.NewRepository(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		repo = lite
	}
	defer repo.Close(ctx)

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	s := webhook.NewService(repo, dispatch.NewClient(cfg.GetOutboundTimeout()), nil, syncRunner{logger: logger}, logger)
	s.SecretCost = cfg.GetBcryptCost()
	return fn(s)
}
