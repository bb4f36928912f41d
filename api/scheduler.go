/*
scheduler.go - Automated apply scheduler

PURPOSE:
  Periodically finds time cards that have never been run through the
  pipeline and applies the rules to them, so punches imported in bulk
  get their derived lines without an operator pressing the button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Drains the store's stale-card list in batches
  - Per-card failures are stamped on the card by the engine; retry is
    NOT automatic: a failed card keeps its last_run_at stamp and
    needs an explicit ApplyRules call after the punches are fixed

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - BatchSize: Max cards per sweep (default: 100)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewApplyScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ApplyRules endpoint (manual runs)
  - pipeline/runner.go: the engine the sweep delegates to
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/crewbill/timecard-engine/store/sqlite"
)

// ApplyScheduler sweeps never-run time cards through the pipeline.
type ApplyScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	BatchSize     int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewApplyScheduler creates a new scheduler.
func NewApplyScheduler(store *sqlite.Store, handler *Handler) *ApplyScheduler {
	return &ApplyScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		BatchSize:     100,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *ApplyScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *ApplyScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *ApplyScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.sweep()

	for {
		select {
		case <-as.ticker.C:
			as.sweep()
		case <-as.stop:
			return
		}
	}
}

func (as *ApplyScheduler) sweep() {
	ctx := context.Background()

	ids, err := as.Store.StaleCards(ctx, as.BatchSize)
	if err != nil {
		log.Printf("[Scheduler] Error listing stale cards: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	// StaleCards orders by (worker, date), which satisfies the engine's
	// chronological-order requirement per worker.
	res, err := as.Handler.Engine.ApplyRules(ctx, ids, nil)
	if err != nil {
		log.Printf("[Scheduler] Sweep failed: %v", err)
		return
	}

	log.Printf("[Scheduler] Swept %d cards: %d succeeded, %d failed",
		len(ids), len(res.SuccessIDs), len(res.Failures))
	for id, msg := range res.Failures {
		log.Printf("[Scheduler] Card %s failed: %s", id, msg)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (as *ApplyScheduler) RunNow() {
	as.sweep()
}
