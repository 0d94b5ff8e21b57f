package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-router/endpoints"
	"github.com/marcelsud/webhook-router/webhook"
)

/* validate-endpoints - Standalone CLI tool to validate endpoints.yaml
 * Usage: go run cmd/validate-endpoints/main.go [endpoints.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	endpointsFile := "endpoints.yaml"
	if len(os.Args) > 1 {
		endpointsFile = os.Args[1]
	}

	fmt.Printf("Validating endpoints file: %s\n", endpointsFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := endpoints.NewLoader()
	if err := loader.Load(endpointsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	seeds := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d endpoint(s):\n", len(seeds))

	for i, seed := range seeds {
		fmt.Printf("\n%d. Endpoint: %s\n", i+1, seed.Key())
		fmt.Printf("   Routing:     %s\n", seed.RoutingType)
		switch seed.RoutingType {
		case webhook.ForwardURLRouting:
			fmt.Printf("   Target URL:  %s\n", seed.TargetURL)
		case webhook.AutomationEngineRouting:
			fmt.Printf("   Automation:  %s\n", seed.AutomationURL)
		case webhook.InternalRouting:
			fmt.Printf("   Workflow:    %s\n", seed.WorkflowID)
		}
		fmt.Printf("   Enabled:     %t\n", seed.Enabled)

		if rules := seed.TransformRules; rules != nil {
			fmt.Printf("   Transform:   %d header rewrite(s), %d additional header(s), %d body mapping(s)\n",
				len(rules.HeaderRewrites), len(rules.AdditionalHeaders), len(rules.BodyMappings))
		}
	}

	fmt.Printf("\n✓ All endpoints are valid!\n")
	os.Exit(0)
}
