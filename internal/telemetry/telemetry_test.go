package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesToRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closer, err := InitLogger(dir, true)
	require.NoError(t, err)

	logger.Debug("loaded session", "key", "value")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "routedesk.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"loaded session"`)
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestInitLogger_InfoLevelDropsDebug(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := InitLogger(dir, false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "routedesk.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestInitTelemetry_CreatesProviders(t *testing.T) {
	dir := t.TempDir()

	tracer, meter, cleanup, err := InitTelemetry(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, meter)

	_, span := tracer.Start(context.Background(), "pipeline.ask")
	span.End()
	RequestDuration(context.Background(), meter, time.Now(), "/pipeline")

	cleanup()

	traces, err := os.ReadFile(filepath.Join(dir, "routedesk_traces.log"))
	require.NoError(t, err)
	assert.Contains(t, string(traces), "pipeline.ask", "shutdown flushes batched spans")

	metrics, err := os.ReadFile(filepath.Join(dir, "routedesk_metrics.log"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "http.client.request.duration", "shutdown flushes the periodic reader")
}

func TestRequestDuration_Noop(t *testing.T) {
	assert.NotPanics(t, func() {
		inst := NoopInstruments()
		_, span := inst.Tracer.Start(context.Background(), "noop")
		span.End()
		RequestDuration(context.Background(), inst.Meter, time.Now(), "/x")
	})
}
