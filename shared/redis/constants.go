// shared/redis/constants.go
package redis

import "fmt"

const (
	// NotifyChannelPrefix is the pub/sub channel for player-facing notifications: notify:{uuid}
	NotifyChannelPrefix = "notify:{%s}:"
	// IslandLevelLeaderboardKey is the sorted set holding island levels for ranking.
	IslandLevelLeaderboardKey = "island_levels"
)

// ErrRedisKeyNotFound signals a missing key looked up by a store.
var ErrRedisKeyNotFound = fmt.Errorf("redis key not found")
