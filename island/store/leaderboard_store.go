// island/store/leaderboard_store.go
package store

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	sharedredis "github.com/skyward-mc/skyblock-services/shared/redis"
)

// LeaderboardEntry is one ranked island on the level leaderboard.
type LeaderboardEntry struct {
	IslandID string
	Level    int64
}

// LeaderboardStore maintains the island level leaderboard in a Redis sorted
// set. The syncer's leader instance refreshes scores; any instance can read the
// ranking.
type LeaderboardStore struct {
	redisClient *goredis.ClusterClient
}

// NewLeaderboardStore creates a new LeaderboardStore instance.
func NewLeaderboardStore(redisClient *goredis.ClusterClient) *LeaderboardStore {
	return &LeaderboardStore{
		redisClient: redisClient,
	}
}

// SetIslandLevel records an island's level on the leaderboard.
func (ls *LeaderboardStore) SetIslandLevel(ctx context.Context, islandID string, level int64) error {
	err := ls.redisClient.ZAdd(ctx, sharedredis.IslandLevelLeaderboardKey, goredis.Z{
		Score:  float64(level),
		Member: islandID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to set leaderboard level for island %s: %w", islandID, err)
	}
	return nil
}

// RemoveIsland drops an island from the leaderboard, used on island deletion.
func (ls *LeaderboardStore) RemoveIsland(ctx context.Context, islandID string) error {
	err := ls.redisClient.ZRem(ctx, sharedredis.IslandLevelLeaderboardKey, islandID).Err()
	if err != nil {
		return fmt.Errorf("failed to remove island %s from leaderboard: %w", islandID, err)
	}
	return nil
}

// GetTopIslands returns the n highest-level islands in descending order.
func (ls *LeaderboardStore) GetTopIslands(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	results, err := ls.redisClient.ZRevRangeWithScores(ctx, sharedredis.IslandLevelLeaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read island level leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			IslandID: member,
			Level:    int64(z.Score),
		})
	}
	return entries, nil
}
