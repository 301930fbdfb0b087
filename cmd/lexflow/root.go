package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	baseURL     string
	domain      string
	timeout     time.Duration
	registryURL string
	token       string
	tokenURL    string
	tokenKey    string
	artifactURL string
	traceFile   string
	auto        bool
	verbose     bool
}

var rootCmd = &cobra.Command{
	Use:   "lexflow",
	Short: "Human-in-the-loop client for AI document-generation workflows",
	Long: "Lexflow drives a multi-stage AI document pipeline (research, draft,\n" +
		"finalize) against a workflow API server, pausing at approval\n" +
		"checkpoints for human review.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.baseURL, "base-url", "http://localhost:8000", "Workflow API base URL")
	f.StringVar(&rootFlags.domain, "domain", "legal_ai", "Workflow domain (legal_ai, product_comparison)")
	f.DurationVar(&rootFlags.timeout, "timeout", 120*time.Second, "HTTP timeout per request")
	f.StringVar(&rootFlags.registryURL, "registry", "", "URL of a custom pipeline definition (YAML)")
	f.StringVar(&rootFlags.token, "token", "", "Bearer token for the workflow API")
	f.StringVar(&rootFlags.tokenURL, "token-url", "", "URL of an encrypted secret holding the bearer token")
	f.StringVar(&rootFlags.tokenKey, "token-key", "blowfish://default", "Decryption key for --token-url")
	f.StringVar(&rootFlags.artifactURL, "artifact-url", "", "Base URL for storing finalized documents")
	f.StringVar(&rootFlags.traceFile, "trace-file", "", "Write OpenTelemetry traces to this file")
	f.BoolVar(&rootFlags.auto, "auto", false, "Approve every checkpoint automatically (no human in the loop)")
	f.BoolVar(&rootFlags.verbose, "verbose", false, "Log API requests to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
