// Package metrics standardises the metric names and tags emitted for
// job lifecycle events.
package metrics

import (
	"time"

	"github.com/photomesh/photomesh/internal/observability/statsd"
)

// JobMetric captures one lifecycle event for emission.
type JobMetric struct {
	Transition string
	Duration   time.Duration
	ErrorClass string
}

// EmitJobLifecycle emits a transition counter plus a duration timing for
// terminal transitions that carried one.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
	}
	if in.ErrorClass != "" {
		tags["error_class"] = in.ErrorClass
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, cloneTags(tags))
	}
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
