package lexflow

import (
	"fmt"
	"time"
)

// Config is a serialisable representation of the client configuration.  It
// can be populated from JSON, YAML, environment variables, etc.
type Config struct {
	// BaseURL locates the workflow API server.
	BaseURL string `json:"baseURL" yaml:"baseURL"`

	// Domain selects the server-side agent prompts (legal_ai,
	// product_comparison).
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// Timeout bounds each HTTP exchange; zero means no timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// HITL controls whether gated stages block on a human decision.  When
	// false every checkpoint is approved automatically; both modes share the
	// same state machine.
	HITL bool `json:"hitl" yaml:"hitl"`

	// ArtifactURL, when set, is where finalized documents are stored (file,
	// mem, s3, gs schemes are supported).
	ArtifactURL string `json:"artifactURL,omitempty" yaml:"artifactURL,omitempty"`

	// RegistryURL, when set, loads a custom pipeline definition instead of
	// the built-in registry for Domain.
	RegistryURL string `json:"registryURL,omitempty" yaml:"registryURL,omitempty"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors previously hard-coded.  Callers may modify the returned
// struct before passing it to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8000",
		Domain:  "legal_ai",
		Timeout: 120 * time.Second,
		HITL:    true,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("baseURL is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}
