// Package ingest drives all selected connectors concurrently and gathers
// their raw records into a single batch, recording per-source health in
// the registry as it goes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"newscollector/internal/connector"
	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// HealthRecorder receives per-source fetch outcomes. The registry
// implements it.
type HealthRecorder interface {
	RecordSuccess(id string)
	RecordFailure(id string)
}

// Orchestrator fans out across connectors and collects their output.
type Orchestrator struct {
	health         HealthRecorder
	maxConcurrency int
}

// New creates an orchestrator. maxConcurrency bounds how many connectors
// run at once; zero or negative means 5.
func New(health HealthRecorder, maxConcurrency int) *Orchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Orchestrator{health: health, maxConcurrency: maxConcurrency}
}

// Result aggregates the outcome of one gather run.
type Result struct {
	Records   []core.RawRecord
	Succeeded int
	Failed    int
	Exhausted int // Connectors that hit their daily quota mid-gather
	Errors    []error
}

// Gather runs every connector concurrently and merges their records. A
// connector that returns without error counts as a success even with zero
// records; an error (including cancellation at deadline expiry) counts as
// a failure. Rate-limit exhaustion with partial records is a success. One
// connector's failure never fails another; no retries happen here.
func (o *Orchestrator) Gather(ctx context.Context, connectors []connector.Connector, keywords []string, limit int, window *connector.TimeWindow) *Result {
	result := &Result{}
	if len(connectors) == 0 {
		return result
	}

	logger.Info("Starting ingestion", "connectors", len(connectors), "max_concurrency", o.maxConcurrency)

	sem := make(chan struct{}, o.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, conn := range connectors {
		wg.Add(1)
		sem <- struct{}{}

		go func(conn connector.Connector) {
			defer wg.Done()
			defer func() { <-sem }()

			records, err := conn.Fetch(ctx, keywords, limit, window)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				result.Succeeded++
				result.Records = append(result.Records, records...)
				o.health.RecordSuccess(conn.SourceID())
			case errors.Is(err, connector.ErrRateLimited):
				// Partial results with an exhaustion signal still count as
				// a healthy source.
				result.Succeeded++
				result.Exhausted++
				result.Records = append(result.Records, records...)
				o.health.RecordSuccess(conn.SourceID())
			default:
				result.Failed++
				result.Errors = append(result.Errors, fmt.Errorf("source %s: %w", conn.SourceID(), err))
				o.health.RecordFailure(conn.SourceID())
				logger.Warn("Connector failed", "source_id", conn.SourceID(), "error", err.Error())
			}
		}(conn)
	}

	wg.Wait()

	logger.Info("Ingestion completed",
		"records", len(result.Records),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"exhausted", result.Exhausted,
	)
	return result
}
