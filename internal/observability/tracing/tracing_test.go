package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(""))
	assert.Equal(t, 0.25, sampleRatio("0.25"))
	assert.Equal(t, 0.0, sampleRatio("0"))
	assert.Equal(t, 1.0, sampleRatio("1.5"))
	assert.Equal(t, 1.0, sampleRatio("-0.1"))
	assert.Equal(t, 1.0, sampleRatio("half"))
}

func TestInit_WithoutEndpointInstallsPropagator(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), nil, "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}
