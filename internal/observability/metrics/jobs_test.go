package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	name string
	tags map[string]string
}

type captureSink struct {
	counts  []recordedMetric
	timings []recordedMetric
}

func (s *captureSink) Count(name string, _ int64, tags map[string]string) {
	s.counts = append(s.counts, recordedMetric{name, tags})
}

func (s *captureSink) Gauge(string, float64, map[string]string) {}

func (s *captureSink) Timing(name string, _ time.Duration, tags map[string]string) {
	s.timings = append(s.timings, recordedMetric{name, tags})
}

func TestEmitJobLifecycle(t *testing.T) {
	sink := &captureSink{}

	EmitJobLifecycle(sink, JobMetric{
		Transition: "failed",
		Duration:   3 * time.Second,
		ErrorClass: "artifact",
	})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "job.transition", sink.counts[0].name)
	assert.Equal(t, map[string]string{"transition": "failed", "error_class": "artifact"}, sink.counts[0].tags)

	require.Len(t, sink.timings, 1)
	assert.Equal(t, "job.duration", sink.timings[0].name)
	assert.Equal(t, sink.counts[0].tags, sink.timings[0].tags)
}

func TestEmitJobLifecycleSkipsZeroDuration(t *testing.T) {
	sink := &captureSink{}

	EmitJobLifecycle(sink, JobMetric{Transition: "cancelled"})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, map[string]string{"transition": "cancelled"}, sink.counts[0].tags)
	assert.Empty(t, sink.timings)
}

func TestEmitJobLifecycleNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitJobLifecycle(nil, JobMetric{Transition: "completed"})
	})
}
