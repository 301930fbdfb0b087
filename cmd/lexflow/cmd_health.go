package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check workflow API liveness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	srv, err := buildService(cmd.Context())
	if err != nil {
		return err
	}
	health, err := srv.Health(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:  %s\n", health.Status)
	fmt.Fprintf(out, "Service: %s\n", health.Service)
	fmt.Fprintf(out, "Version: %s\n", health.Version)
	if len(health.Agents) > 0 {
		fmt.Fprintf(out, "Agents:  %s\n", strings.Join(health.Agents, ", "))
	}
	return nil
}
