// island/scheduler/generation_scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/skyward-mc/skyblock-services/island/realm"
)

// Assigner decides which live islands this instance processes. In production it
// is the cluster's consistent-hash assignment manager; tests inject a fake.
type Assigner interface {
	IsResponsible(entityID string) (bool, error)
}

// GenerationScheduler drives the per-island generation tick: every interval it
// walks the islands assigned to this instance, processes their due devices and
// sweeps expired promotions. A failure on one island is logged and skipped;
// generation is best-effort and self-corrects on the next tick because due-time
// checks are pure timestamp comparisons.
type GenerationScheduler struct {
	tickInterval time.Duration
	realm        *realm.Realm
	sink         realm.ItemSink
	assigner     Assigner
	now          func() time.Time
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewGenerationScheduler creates a scheduler over the given realm. The sink
// receives deposit box output; the assigner scopes the tick to islands this
// instance owns.
func NewGenerationScheduler(tickInterval time.Duration, rlm *realm.Realm, itemSink realm.ItemSink, assigner Assigner) *GenerationScheduler {
	log.Println("GenerationScheduler: Initialized.")
	ctx, cancel := context.WithCancel(context.Background())

	return &GenerationScheduler{
		tickInterval: tickInterval,
		realm:        rlm,
		sink:         itemSink,
		assigner:     assigner,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start initiates the generation tick loop. This should be run in a goroutine.
func (gs *GenerationScheduler) Start() {
	log.Printf("Generation Scheduler starting with tick interval: %v", gs.tickInterval)
	ticker := time.NewTicker(gs.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gs.ctx.Done():
			log.Println("Generation Scheduler shutting down.")
			return
		case <-ticker.C:
			gs.Tick()
		}
	}
}

// Stop gracefully stops the tick loop.
func (gs *GenerationScheduler) Stop() {
	gs.cancel()
}

// SetClock overrides the scheduler's time source. Tests drive ticks against a
// simulated clock instead of waiting on wall time.
func (gs *GenerationScheduler) SetClock(now func() time.Time) {
	gs.now = now
}

// Tick executes the logic for a single generation pass.
func (gs *GenerationScheduler) Tick() {
	now := gs.now()

	gs.realm.ForEach(func(il *realm.Island) {
		responsible, err := gs.assigner.IsResponsible(il.ID())
		if err != nil {
			log.Printf("WARNING: GenerationScheduler: Failed to check responsibility for island %s: %v", il.ID(), err)
			return
		}
		if !responsible {
			return
		}
		gs.tickIsland(il, now)
	})
}

// tickIsland processes a single island, isolating any panic so one malformed
// island never aborts the tick for the others.
func (gs *GenerationScheduler) tickIsland(il *realm.Island, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: GenerationScheduler: Recovered from panic while processing island %s: %v", il.ID(), r)
		}
	}()

	res := il.ProcessDueDevices(now, gs.sink)
	if res.ItemsDropped > 0 {
		log.Printf("WARN: GenerationScheduler: Dropped %d items for island %s, collection queue full.", res.ItemsDropped, il.ID())
	}

	if il.ClearExpiredPromotion(now) {
		log.Printf("INFO: GenerationScheduler: Promotion expired for island %s.", il.ID())
	}
}
