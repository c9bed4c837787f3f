// island/syncer/island_syncer.go
package syncer

import (
	"context"
	"log"
	"time"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/store"
	"github.com/skyward-mc/skyblock-services/shared/cluster"
	"github.com/skyward-mc/skyblock-services/shared/config"
)

// IslandSyncer handles the periodic flush of dirty island state to MongoDB and
// the refresh of the Redis level leaderboard. Every instance flushes the
// islands it holds live; only the cluster leader (elected through the
// assignment manager on a fixed task key) rebuilds the global leaderboard.
type IslandSyncer struct {
	config            *config.IslandServiceConfig
	realm             *realm.Realm
	islandStore       *store.IslandStore
	leaderboardStore  *store.LeaderboardStore
	assignmentManager *cluster.ServiceAssignmentManager
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewIslandSyncer creates a new IslandSyncer instance.
func NewIslandSyncer(
	cfg *config.IslandServiceConfig,
	rlm *realm.Realm,
	islandStore *store.IslandStore,
	leaderboardStore *store.LeaderboardStore,
	assignmentManager *cluster.ServiceAssignmentManager,
) *IslandSyncer {
	log.Println("IslandSyncer: Initializing.")
	ctx, cancel := context.WithCancel(context.Background())

	return &IslandSyncer{
		config:            cfg,
		realm:             rlm,
		islandStore:       islandStore,
		leaderboardStore:  leaderboardStore,
		assignmentManager: assignmentManager,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start initiates the persistence loop. This should be run in a goroutine.
func (is *IslandSyncer) Start() {
	log.Printf("Island Syncer starting with persistence interval: %v", is.config.PersistenceInterval)
	ticker := time.NewTicker(is.config.PersistenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-is.ctx.Done():
			log.Println("Island Syncer shutting down.")
			return
		case <-ticker.C:
			is.performSync()
		}
	}
}

// Stop gracefully stops the persistence loop. A final flush runs before
// returning so graceful shutdown never abandons dirty state.
func (is *IslandSyncer) Stop() {
	is.cancel()
	is.FlushAll()
}

// performSync flushes dirty islands and, on the leader, refreshes the
// leaderboard.
func (is *IslandSyncer) performSync() {
	is.FlushAll()
	is.syncLeaderboard()
}

// FlushAll persists every island with unsaved changes. Snapshots are taken
// under each island's lock; the MongoDB writes happen outside it. A failed save
// re-marks the island dirty so the next pass retries.
func (is *IslandSyncer) FlushAll() {
	flushCtx, cancel := context.WithTimeout(context.Background(), is.config.PersistTimeout)
	defer cancel()

	flushed := 0
	is.realm.ForEach(func(il *realm.Island) {
		snapshot, dirty := il.SnapshotIfDirty()
		if !dirty {
			return
		}
		if err := is.islandStore.SaveIsland(flushCtx, snapshot); err != nil {
			log.Printf("ERROR: Syncer: Failed to save island %s: %v", il.ID(), err)
			il.MarkDirty()
			return
		}
		flushed++
	})
	if flushed > 0 {
		log.Printf("INFO: Syncer: Flushed %d dirty islands to MongoDB.", flushed)
	}
}

// syncLeaderboard rebuilds the Redis level leaderboard from MongoDB. Scoped to
// one instance cluster-wide so concurrent rebuilds never fight.
func (is *IslandSyncer) syncLeaderboard() {
	const leaderboardSyncTaskKey = "global_island_leaderboard_sync_task"

	isLeader, err := is.assignmentManager.IsResponsible(leaderboardSyncTaskKey)
	if err != nil {
		log.Printf("ERROR: Syncer: Failed to check leadership for task '%s': %v", leaderboardSyncTaskKey, err)
		return
	}
	if !isLeader {
		return
	}

	syncCtx, cancel := context.WithTimeout(context.Background(), is.config.PersistTimeout)
	defer cancel()

	topIslands, err := is.islandStore.GetTopIslandsByLevel(syncCtx, is.config.LeaderboardSize)
	if err != nil {
		log.Printf("ERROR: Syncer: Failed to query top islands for leaderboard refresh: %v", err)
		return
	}

	for _, island := range topIslands {
		select {
		case <-syncCtx.Done():
			log.Printf("WARNING: Syncer: Leaderboard refresh canceled: %v", syncCtx.Err())
			return
		default:
		}

		if err := is.leaderboardStore.SetIslandLevel(syncCtx, island.UUID, island.Level); err != nil {
			log.Printf("ERROR: Syncer: Failed to update leaderboard for island %s: %v", island.UUID, err)
		}
	}
	log.Printf("INFO: Syncer: Refreshed level leaderboard with %d islands.", len(topIslands))
}
