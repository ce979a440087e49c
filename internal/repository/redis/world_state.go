package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for live world state.
func worldKey(gameID string) string        { return "game:" + gameID + ":world" }
func availabilityKey(gameID string) string { return "game:" + gameID + ":loads" }
func turnLockKey(gameID string) string     { return "game:" + gameID + ":turn_lock" }

// turnLockTTL bounds how long a crashed turn runner can hold a game's
// turn lock before it self-releases.
const turnLockTTL = 30 * time.Second

// SetWorldState stores the shared world document: map points, terrain,
// and the current turn number.
func (c *Client) SetWorldState(ctx context.Context, gameID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, worldKey(gameID), []byte(state), 0).Err()
}

// GetWorldState retrieves the shared world document, or nil when the
// game has no cached state.
func (c *Client) GetWorldState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, worldKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get world state: %w", err)
	}
	return json.RawMessage(data), nil
}

// SetLoadAvailability seeds the live availability hash for a game.
func (c *Client) SetLoadAvailability(ctx context.Context, gameID string, availability map[string]int) error {
	fields := make(map[string]any, len(availability))
	for load, count := range availability {
		fields[load] = count
	}
	return c.rdb.HSet(ctx, availabilityKey(gameID), fields).Err()
}

// GetLoadAvailability returns the live availability for every load.
func (c *Client) GetLoadAvailability(ctx context.Context, gameID string) (map[string]int, error) {
	raw, err := c.rdb.HGetAll(ctx, availabilityKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get load availability: %w", err)
	}
	availability := make(map[string]int, len(raw))
	for load, count := range raw {
		var n int
		if _, err := fmt.Sscanf(count, "%d", &n); err != nil {
			return nil, fmt.Errorf("parse availability for %s: %w", load, err)
		}
		availability[load] = n
	}
	return availability, nil
}

// AcquireTurnLock takes the game's turn lock for one player. Returns
// false without error when another turn is already in flight.
func (c *Client) AcquireTurnLock(ctx context.Context, gameID, playerID string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, turnLockKey(gameID), playerID, turnLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire turn lock: %w", err)
	}
	return ok, nil
}

// ReleaseTurnLock drops the turn lock if this player still holds it.
// A lock taken over by TTL expiry is left alone.
func (c *Client) ReleaseTurnLock(ctx context.Context, gameID, playerID string) error {
	holder, err := c.rdb.Get(ctx, turnLockKey(gameID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release turn lock: %w", err)
	}
	if holder != playerID {
		return nil
	}
	return c.rdb.Del(ctx, turnLockKey(gameID)).Err()
}

// DeleteGameData removes all Redis data for a game (on game end).
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, worldKey(gameID), availabilityKey(gameID), turnLockKey(gameID)).Err()
}
