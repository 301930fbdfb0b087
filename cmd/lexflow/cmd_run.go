package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyayaflow/lexflow/runtime/orchestrator"
	"github.com/nyayaflow/lexflow/service/approval"
	"github.com/nyayaflow/lexflow/service/run"
	"github.com/nyayaflow/lexflow/service/transport"
)

var runFlags struct {
	grievance string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a workflow run, reviewing each checkpoint interactively",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.grievance, "grievance", "", "Grievance text to start the workflow with (required)")
	_ = runCmd.MarkFlagRequired("grievance")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	srv, err := buildService(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if rootFlags.auto {
		result, err := srv.Run(ctx, runFlags.grievance)
		if err != nil {
			return err
		}
		printResult(out, result.SessionID, result.Document, result.Iterations, result.ArtifactURL)
		return nil
	}

	flow := srv.NewRun()
	reviewCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reviewLoop(reviewCtx, cmd.InOrStdin(), out, flow)

	document, err := flow.Run(ctx, runFlags.grievance)
	if err != nil {
		return err
	}

	iterations, _, _ := flow.Iterations()
	record := &run.Record{
		SessionID:     flow.SessionID(),
		Domain:        srv.Registry().Domain(),
		Grievance:     runFlags.grievance,
		FinalDocument: document,
		Iterations:    iterations,
		Status:        run.StatusCompleted,
	}
	if err := srv.Runs().Save(ctx, record); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", err)
	}

	artifactURL := ""
	if srv.Artifacts() != nil {
		if URL, err := srv.Artifacts().Save(ctx, flow.SessionID(), document); err == nil {
			artifactURL = URL
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to store artifact: %v\n", err)
		}
	}
	printResult(out, flow.SessionID(), document, iterations, artifactURL)
	return nil
}

// reviewLoop consumes gate events and prompts the reviewer for a decision at
// every checkpoint.
func reviewLoop(ctx context.Context, in io.Reader, out io.Writer, flow *orchestrator.Orchestrator) {
	reader := bufio.NewReader(in)
	gate := flow.Gate()
	for {
		msg, err := gate.Queue().Consume(ctx)
		if err != nil {
			return
		}
		event := msg.T()
		_ = msg.Ack()
		if event.Topic != approval.TopicAwaitCreated {
			continue
		}

		printCheckpoint(out, flow, event.StageID)
		approved, feedback := promptDecision(reader, out, event.StageID)
		gate.Resolve(event.StageID, approved, feedback)
	}
}

func printCheckpoint(out io.Writer, flow *orchestrator.Orchestrator, stageID string) {
	fmt.Fprintf(out, "\n=== Checkpoint: %s ===\n", stageID)
	output, ok := flow.Projection().Output(stageID)
	if !ok {
		return
	}
	switch actual := output.(type) {
	case *transport.ResearchFindings:
		printFindings(out, actual)
	case string:
		fmt.Fprintln(out, actual)
		printRevisionDiff(out, flow)
	default:
		fmt.Fprintf(out, "%v\n", actual)
	}
	if history := flow.History(); history != nil && history.Len() > 0 {
		iteration, max, remaining := flow.Iterations()
		if max > 0 {
			fmt.Fprintf(out, "[iteration %d/%d, %d refinement(s) left]\n", iteration, max, remaining)
		}
	}
}

func printFindings(out io.Writer, findings *transport.ResearchFindings) {
	if findings == nil {
		return
	}
	if len(findings.Facts) > 0 {
		fmt.Fprintln(out, "Facts:")
		for _, fact := range findings.Facts {
			fmt.Fprintf(out, "  - %s\n", fact)
		}
	}
	if len(findings.LegalProvisions) > 0 {
		fmt.Fprintln(out, "Legal provisions:")
		for _, provision := range findings.LegalProvisions {
			fmt.Fprintf(out, "  - %s\n", provision)
		}
	}
	if findings.MeritsScore > 0 {
		fmt.Fprintf(out, "Merits score: %.1f\n", findings.MeritsScore)
	}
	if findings.Reasoning != "" {
		fmt.Fprintf(out, "Reasoning: %s\n", findings.Reasoning)
	}
	if findings.JurisdictionNotes != "" {
		fmt.Fprintf(out, "Jurisdiction: %s\n", findings.JurisdictionNotes)
	}
}

func printRevisionDiff(out io.Writer, flow *orchestrator.Orchestrator) {
	history := flow.History()
	if history == nil {
		return
	}
	patch, stats, err := history.LatestDiff()
	if err != nil || patch == "" {
		return
	}
	fmt.Fprintf(out, "\nChanges since previous draft (+%d/-%d):\n%s", stats.Added, stats.Removed, patch)
}

func promptDecision(reader *bufio.Reader, out io.Writer, stageID string) (bool, string) {
	for {
		fmt.Fprintf(out, "\nApprove %s? [y]es / [n]o: ", stageID)
		line, err := reader.ReadString('\n')
		if err != nil {
			// stdin closed: approve so the run can finish rather than hang
			return true, ""
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, ""
		case "n", "no":
			fmt.Fprint(out, "Feedback (empty for default): ")
			feedback, _ := reader.ReadString('\n')
			return false, strings.TrimSpace(feedback)
		default:
			fmt.Fprintln(out, "Please answer y or n.")
		}
	}
}

func printResult(out io.Writer, sessionID, document string, iterations int, artifactURL string) {
	fmt.Fprintf(out, "\nSession:    %s\n", sessionID)
	fmt.Fprintf(out, "Iterations: %d\n", iterations)
	if artifactURL != "" {
		fmt.Fprintf(out, "Artifact:   %s\n", artifactURL)
	}
	fmt.Fprintf(out, "\n%s\n", document)
}
