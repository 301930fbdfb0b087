package tracing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nyayaflow/lexflow/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanLifecycle(t *testing.T) {
	output := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, tracing.Init("lexflow-test", "0.0.1", output))

	ctx, span := tracing.StartSpan(context.Background(), "workflow.start", "CLIENT")
	require.NotNil(t, ctx)
	span.WithAttributes(map[string]string{"session.id": "s-1"})
	tracing.EndSpan(span, nil)

	_, failed := tracing.StartSpan(ctx, "workflow.refine", "INTERNAL")
	tracing.EndSpan(failed, errors.New("iteration limit reached"))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workflow.start")
	assert.Contains(t, string(data), "workflow.refine")
	assert.Contains(t, string(data), "session.id")
}

func TestEndSpanNil(t *testing.T) {
	assert.NotPanics(t, func() {
		tracing.EndSpan(nil, nil)
		var sp *tracing.Span
		sp.SetStatus(errors.New("ignored"))
		sp.WithAttributes(map[string]string{"k": "v"})
	})
}
