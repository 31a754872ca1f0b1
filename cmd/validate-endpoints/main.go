package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-relay/endpoint"
)

/* validate-endpoints - Standalone CLI tool to validate endpoints.yaml
 * Usage: go run cmd/validate-endpoints/main.go [endpoints.yaml] [allowed,domains]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	endpointsFile := "endpoints.yaml"
	if len(os.Args) > 1 {
		endpointsFile = os.Args[1]
	}
	var allowed []string
	if len(os.Args) > 2 {
		allowed = strings.Split(os.Args[2], ",")
	}

	fmt.Printf("Validating endpoints file: %s\n", endpointsFile)
	fmt.Println(strings.Repeat("-", 50))

	validator := endpoint.NewValidator(allowed)
	registry := endpoint.NewRegistry(validator)
	if err := registry.Load(endpointsFile); err != nil {
		fmt.Fprintf(os.Stderr, "VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := registry.List()
	fmt.Printf("VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d endpoint(s):\n", len(loaded))

	for i, ep := range loaded {
		fmt.Printf("\n%d. Endpoint: %s\n", i+1, ep.ID)
		fmt.Printf("   Name:   %s\n", ep.Name)
		fmt.Printf("   URL:    %s\n", ep.URL)
		fmt.Printf("   Secret: %t\n", ep.HasSecret())
		// operator URLs skip the allow-list, flag the ones a caller could not reach
		if len(allowed) > 0 {
			if _, err := validator.ValidateUserSupplied(ep.URL); err != nil {
				fmt.Printf("   Note:   %v\n", err)
			}
		}
	}

	fmt.Printf("\nAll endpoints are valid!\n")
}
