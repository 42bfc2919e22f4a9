package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutStdoutMetrics(t *testing.T) {
	providers, err := Setup(context.Background(), "searchcore-test", "info", false)
	require.NoError(t, err)
	require.NotNil(t, providers)
	defer providers.Shutdown(context.Background())

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
}

func TestSetupWithStdoutMetrics(t *testing.T) {
	providers, err := Setup(context.Background(), "searchcore-test", "debug", true)
	require.NoError(t, err)
	require.NotNil(t, providers)
	defer providers.Shutdown(context.Background())
}

func TestStdoutMetricReaderBuildsReader(t *testing.T) {
	reader, err := StdoutMetricReader()
	require.NoError(t, err)
	assert.NotNil(t, reader)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("unknown").String())
}
