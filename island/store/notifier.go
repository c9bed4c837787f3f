// island/store/notifier.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"

	sharedredis "github.com/skyward-mc/skyblock-services/shared/redis"
)

// RedisNotifier publishes player-facing messages on per-player pub/sub
// channels. The game proxy subscribed to a player's channel relays the message
// if they are online; offline delivery is a silent no-op. Publishing is
// fire-and-forget: failures are logged, never surfaced to the caller.
type RedisNotifier struct {
	redisClient *goredis.ClusterClient
}

// NewRedisNotifier creates a new RedisNotifier instance.
func NewRedisNotifier(redisClient *goredis.ClusterClient) *RedisNotifier {
	return &RedisNotifier{
		redisClient: redisClient,
	}
}

// Notify delivers a message to the player's notification channel without
// blocking the caller on the publish.
func (rn *RedisNotifier) Notify(playerUUID, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		channel := fmt.Sprintf(sharedredis.NotifyChannelPrefix, playerUUID)
		if err := rn.redisClient.Publish(ctx, channel, message).Err(); err != nil {
			log.Printf("WARN: Notifier: Failed to publish notification for player %s: %v", playerUUID, err)
		}
	}()
}
