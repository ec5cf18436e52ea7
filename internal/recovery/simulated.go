package recovery

import (
	"context"
	"math/rand/v2"
)

// SimulatedMetrics is the default NodeMetricsProvider: it returns
// plausible placeholder figures instead of real host signal. Values stay
// below the alert thresholds so simulation noise never fabricates
// issues; swap in a real collector to diagnose resource problems.
type SimulatedMetrics struct{}

func (SimulatedMetrics) Collect(_ context.Context, _ string) (*Metrics, error) {
	memTotal := 16384.0
	diskTotal := 500.0
	return &Metrics{
		CPUPercent:  10 + rand.Float64()*60,
		MemoryUsed:  memTotal * (0.2 + rand.Float64()*0.5),
		MemoryTotal: memTotal,
		DiskUsed:    diskTotal * (0.1 + rand.Float64()*0.6),
		DiskTotal:   diskTotal,
	}, nil
}
