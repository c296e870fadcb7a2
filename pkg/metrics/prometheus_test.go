package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordUnit("ok")
	r.RecordUnit("ok")
	r.RecordUnit("failed")
	r.RecordTicks(3, 5)
	r.RecordBars("file", 240)
	r.RecordError("unsupported_instrument")
	r.RecordLatency("convert", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.units.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ticksRevised.WithLabelValues("snapped")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.ticksRevised.WithLabelValues("dropped")))
	assert.Equal(t, 240.0, testutil.ToFloat64(r.barsSaved.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("unsupported_instrument")))
}
