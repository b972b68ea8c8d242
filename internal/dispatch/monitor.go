package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/deskline/deskline-dispatch/internal/metrics"
)

// Monitor is the liveness loop: every tick it refreshes shift-derived
// agent flags and runs the timeout scan.
type Monitor struct {
	shifts   *ShiftManager
	timeouts *SessionTimeoutService
	interval time.Duration
}

// NewMonitor wires the monitor; a non-positive interval keeps the
// default.
func NewMonitor(shifts *ShiftManager, timeouts *SessionTimeoutService, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{shifts: shifts, timeouts: timeouts, interval: interval}
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	log.Printf("[INFO] Monitor: started (interval=%v)", m.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Monitor: shutting down")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one monitor pass. Exported for tests.
func (m *Monitor) Tick(ctx context.Context) {
	start := time.Now()
	m.shifts.UpdateStatuses()
	m.timeouts.ProcessTimeouts(ctx)
	metrics.TickDuration.WithLabelValues("monitor").Observe(time.Since(start).Seconds())
}
