package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw  string
		want otlpTarget
	}{
		{"http://collector:4318", otlpTarget{hostport: "collector:4318", urlPath: "/v1/traces", insecure: true}},
		{"https://collector:4318/custom", otlpTarget{hostport: "collector:4318", urlPath: "/custom", insecure: false}},
		{"collector:4318", otlpTarget{hostport: "collector:4318", urlPath: "/v1/traces", insecure: true}},
	}

	for _, tc := range cases {
		got, err := parseOTLPEndpoint(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"", "grpc://collector:4317", "collector:4318/v1/traces", "http://"} {
		_, err := parseOTLPEndpoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestTracingSettingsFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("APP_ENV", "Staging")

	s := tracingSettingsFromEnv()

	assert.Equal(t, "submission-history", s.serviceName)
	assert.Equal(t, defaultOTLPEndpoint, s.endpoint)
	assert.Equal(t, 0.25, s.sampleRatio)
	assert.Equal(t, "staging", s.environment)

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "7")
	assert.Equal(t, 1.0, tracingSettingsFromEnv().sampleRatio)
}

func TestSetupTracing_DisabledReturnsNil(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(quietLogger())

	assert.NoError(t, err)
	assert.Nil(t, shutdown)
}
