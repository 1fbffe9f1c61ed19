package telemetry

import (
	"context"
	"time"
)

// Collector records acquisition-loop statistics
type Collector interface {
	Record(ctx context.Context, snapshot *CycleSnapshot) error
	Close() error
}

// CycleSnapshot captures one polling cycle of the acquisition loop
type CycleSnapshot struct {
	Timestamp time.Time
	CycleTime time.Duration
	Ready     bool
	// Rows holds the sample count appended per signal group this cycle
	Rows map[string]int
}
