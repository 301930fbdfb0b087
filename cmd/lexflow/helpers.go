package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/viant/scy"

	"github.com/nyayaflow/lexflow"
)

// buildService assembles the façade from the persistent flags.
func buildService(ctx context.Context) (*lexflow.Service, error) {
	config := &lexflow.Config{
		BaseURL:     rootFlags.baseURL,
		Domain:      rootFlags.domain,
		Timeout:     rootFlags.timeout,
		HITL:        !rootFlags.auto,
		ArtifactURL: rootFlags.artifactURL,
		RegistryURL: rootFlags.registryURL,
	}
	options := []lexflow.Option{lexflow.WithConfig(config)}

	token := rootFlags.token
	if token == "" && rootFlags.tokenURL != "" {
		loaded, err := loadToken(ctx)
		if err != nil {
			return nil, err
		}
		token = loaded
	}
	if token != "" {
		options = append(options, lexflow.WithBearerToken(token))
	}
	if rootFlags.verbose {
		options = append(options, lexflow.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	if rootFlags.traceFile != "" {
		options = append(options, lexflow.WithTracing("lexflow", version, rootFlags.traceFile))
	}
	return lexflow.New(options...)
}

// loadToken decrypts the bearer token from the secret store.
func loadToken(ctx context.Context) (string, error) {
	resource := scy.NewResource(nil, rootFlags.tokenURL, rootFlags.tokenKey)
	secret, err := scy.New().Load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load token from %s: %w", rootFlags.tokenURL, err)
	}
	return secret.String(), nil
}
