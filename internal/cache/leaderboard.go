package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"game-night/internal/stats"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardTTL    = 5 * time.Minute
	overallKeyPrefix  = "gamenight:leaderboard:overall"
	overallKeyPattern = overallKeyPrefix + ":*"
)

// LeaderboardCache caches computed leaderboards in Redis. A nil client
// disables the cache: Get always misses and Set/Invalidate are no-ops,
// so callers never need to branch on whether Redis is configured.
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// Connect dials Redis and verifies it responds. Returns nil when addr
// is empty, which leaves the cache disabled.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Printf("[Cache] Connected to Redis at %s", addr)
	return client, nil
}

func overallKey(limit int) string {
	return fmt.Sprintf("%s:%d", overallKeyPrefix, limit)
}

// GetOverall returns the cached overall leaderboard, or nil on a miss.
func (c *LeaderboardCache) GetOverall(ctx context.Context, limit int) []stats.RankedPlayer {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, overallKey(limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Cache] Leaderboard read failed: %v", err)
		}
		return nil
	}

	var entries []stats.RankedPlayer
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[Cache] Corrupt leaderboard entry, dropping: %v", err)
		c.client.Del(ctx, overallKey(limit))
		return nil
	}
	return entries
}

// SetOverall stores the overall leaderboard with a short TTL.
func (c *LeaderboardCache) SetOverall(ctx context.Context, limit int, entries []stats.RankedPlayer) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("[Cache] Failed to marshal leaderboard: %v", err)
		return
	}
	if err := c.client.Set(ctx, overallKey(limit), data, leaderboardTTL).Err(); err != nil {
		log.Printf("[Cache] Leaderboard write failed: %v", err)
	}
}

// Invalidate drops all cached leaderboards. Called after a stats
// recompute so readers never see standings older than the last session.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, overallKeyPattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[Cache] Failed to delete %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Cache] Invalidation scan failed: %v", err)
	}
}
