package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ingest/internal/config"
)

func TestNewSampler(t *testing.T) {
	tests := []struct {
		typ  string
		want sdktrace.Sampler
	}{
		{"always_on", sdktrace.AlwaysSample()},
		{"always_off", sdktrace.NeverSample()},
		{"traceidratio", sdktrace.TraceIDRatioBased(0.25)},
		{"parentbased_traceidratio", sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25))},
		{"parentbased_always_on", sdktrace.ParentBased(sdktrace.AlwaysSample())},
		{"unknown", sdktrace.ParentBased(sdktrace.AlwaysSample())},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got := newSampler(config.SamplerConfig{Type: tt.typ, Param: 0.25})
			assert.Equal(t, tt.want.Description(), got.Description())
		})
	}
}

func TestInitDisabledStillPropagates(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()

	sc := span.SpanContext()
	assert.True(t, sc.HasTraceID())
	assert.False(t, sc.IsSampled())

	headers := InjectTraceContext(ctx, nil)
	require.Len(t, headers, 1)
	assert.Equal(t, "traceparent", headers[0].Key)
}
