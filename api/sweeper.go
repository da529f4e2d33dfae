/*
sweeper.go - Scheduled expiry sweep

PURPOSE:
  Periodically demotes past-due CONFIRMED bookings to EXPIRED and frees
  their properties, by driving booking.Service.Sweep on a timer.

DESIGN:
  - Owned by the service lifecycle: Start on boot, Stop on shutdown
  - Initial delay before the first run so a fleet restart doesn't
    thundering-herd the database
  - Single-flight guard: a run that overlaps itself is skipped, and the
    sweep itself only acts on rows still CONFIRMED, so overlap would be
    harmless anyway
  - RunNow() for admin endpoints and tests

CONFIGURATION:
  - Interval:     how often to sweep (default: 1 hour)
  - InitialDelay: wait after Start before the first sweep

SEE ALSO:
  - booking/service.go: Sweep itself (idempotent)
  - cmd/server/main.go: lifecycle wiring
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// Sweeper drives the recurring expiry sweep.
type Sweeper struct {
	Service      *booking.Service
	Interval     time.Duration
	InitialDelay time.Duration

	mu      sync.Mutex
	running sync.Mutex // single-flight guard for sweep runs
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSweeper creates a sweeper with the default hourly cadence.
func NewSweeper(svc *booking.Service) *Sweeper {
	return &Sweeper{
		Service:      svc,
		Interval:     1 * time.Hour,
		InitialDelay: 2 * time.Minute,
	}
}

// Start launches the background loop. Calling Start twice without Stop is
// a no-op.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.stop != nil {
		return
	}
	sw.stop = make(chan struct{})
	sw.wg.Add(1)

	go sw.run(sw.stop)

	log.Printf("[Sweeper] Started: interval=%v, initial delay=%v", sw.Interval, sw.InitialDelay)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.stop == nil {
		return
	}
	close(sw.stop)
	sw.wg.Wait()
	sw.stop = nil
	log.Println("[Sweeper] Stopped")
}

func (sw *Sweeper) run(stop chan struct{}) {
	defer sw.wg.Done()

	// Initial delay instead of sweeping immediately on boot.
	select {
	case <-time.After(sw.InitialDelay):
	case <-stop:
		return
	}

	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	sw.sweep()
	for {
		select {
		case <-ticker.C:
			sw.sweep()
		case <-stop:
			return
		}
	}
}

func (sw *Sweeper) sweep() {
	if !sw.running.TryLock() {
		log.Println("[Sweeper] Previous run still in flight, skipping")
		return
	}
	defer sw.running.Unlock()

	expired, err := sw.Service.Sweep(context.Background())
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[Sweeper] Expired %d booking(s)", expired)
	}
}

// RunNow triggers an immediate sweep (for admin endpoints and tests).
func (sw *Sweeper) RunNow() {
	sw.sweep()
}
