package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordAction(ctx, "process_v1", OutcomeOK)
		m.RecordExtraction(ctx, "VERSION_1", 250*time.Millisecond, nil)
		m.RecordRender(ctx, "pdf", errors.New("chrome missing"))
	})
	assert.NotNil(t, NewDefaultMetrics())
	assert.NotNil(t, Tracer())
}
