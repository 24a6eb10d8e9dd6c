// Package noop implements a metrics collector that discards everything,
// for tests and single-run mode.
package noop

import "time"

// Collector discards all metrics.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (*Collector) RecordRunStarted()                               {}
func (*Collector) RecordRunFinished(string, time.Duration)         {}
func (*Collector) RecordNodeExecuted(_, _ string, _ time.Duration) {}
func (*Collector) RecordGenerativeRetry(string)                    {}
func (*Collector) SetActiveRuns(int)                               {}
func (*Collector) SetBudgetInUse(int)                              {}
