package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
)

func TestSetupTracing_DeshabilitadoSoloPropagador(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
	assert.NoError(t, shutdown(context.Background()))
}
