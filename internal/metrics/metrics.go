// Package metrics collects fire-and-forget counters for the payment flow.
package metrics

import (
	"sync/atomic"
	"time"
)

// Recorder accumulates gateway call outcomes. All methods are safe for
// concurrent use and never block the caller.
type Recorder struct {
	GatewayCalls     uint64
	GatewaySucceeded uint64
	GatewayFailed    uint64
	GatewayNanos     uint64
}

// ObserveGatewayCall records one gateway round trip tagged by outcome.
func (r *Recorder) ObserveGatewayCall(d time.Duration, succeeded bool) {
	atomic.AddUint64(&r.GatewayCalls, 1)
	atomic.AddUint64(&r.GatewayNanos, uint64(d.Nanoseconds()))
	if succeeded {
		atomic.AddUint64(&r.GatewaySucceeded, 1)
	} else {
		atomic.AddUint64(&r.GatewayFailed, 1)
	}
}

// Snapshot returns a consistent-enough copy for reporting.
func (r *Recorder) Snapshot() Recorder {
	return Recorder{
		GatewayCalls:     atomic.LoadUint64(&r.GatewayCalls),
		GatewaySucceeded: atomic.LoadUint64(&r.GatewaySucceeded),
		GatewayFailed:    atomic.LoadUint64(&r.GatewayFailed),
		GatewayNanos:     atomic.LoadUint64(&r.GatewayNanos),
	}
}
