// Package cache keeps short-lived copies of taken-seat listings in Redis.
// The listing is display data only; bookings never consult the cache.
package cache

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// SeatCache stores the taken seat numbers of a screening under
// seats:<screeningID>.  A nil client turns every method into a no-op, which
// is how the service runs without Redis.
type SeatCache struct {
    client *redis.Client
    ttl    time.Duration
}

// NewSeatCache returns a SeatCache.  client may be nil.
func NewSeatCache(client *redis.Client, ttl time.Duration) *SeatCache {
    return &SeatCache{client: client, ttl: ttl}
}

func seatsKey(screeningID uint64) string { return fmt.Sprintf("seats:%d", screeningID) }

// Get returns the cached listing.  ok is false on a miss, when the cache is
// disabled, or when the stored value cannot be decoded.
func (c *SeatCache) Get(ctx context.Context, screeningID uint64) (seats []int, ok bool, err error) {
    if c == nil || c.client == nil {
        return nil, false, nil
    }
    raw, err := c.client.Get(ctx, seatsKey(screeningID)).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, err
    }
    if err := json.Unmarshal(raw, &seats); err != nil {
        return nil, false, nil
    }
    return seats, true, nil
}

// Set stores the listing with the configured TTL.
func (c *SeatCache) Set(ctx context.Context, screeningID uint64, seats []int) error {
    if c == nil || c.client == nil {
        return nil
    }
    if seats == nil {
        seats = []int{}
    }
    raw, err := json.Marshal(seats)
    if err != nil {
        return err
    }
    return c.client.Set(ctx, seatsKey(screeningID), raw, c.ttl).Err()
}

// Invalidate drops the listing after a booking or deletion on the screening.
func (c *SeatCache) Invalidate(ctx context.Context, screeningID uint64) error {
    if c == nil || c.client == nil {
        return nil
    }
    return c.client.Del(ctx, seatsKey(screeningID)).Err()
}
