package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	sessionID string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server-side state of a workflow session",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.sessionID, "session", "", "Session identifier (required)")
	_ = statusCmd.MarkFlagRequired("session")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	srv, err := buildService(cmd.Context())
	if err != nil {
		return err
	}
	status, err := srv.Status(cmd.Context(), statusFlags.sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", status.SessionID)
	fmt.Fprintf(out, "Stage:   %s\n", status.Stage)
	if status.Data.CreatedAt != "" {
		fmt.Fprintf(out, "Created: %s\n", status.Data.CreatedAt)
	}
	if status.Data.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated: %s\n", status.Data.UpdatedAt)
	}
	return nil
}
