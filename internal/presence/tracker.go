// Package presence tracks whether a user's client is currently connected,
// keyed off periodic heartbeats.  The occupancy monitor consults it before
// escalating an idle seat: a user whose app is still pinging is treated as
// present even when they have not interacted with a reservation.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// heartbeatTTL is how long a single heartbeat keeps a user online.  Clients
// ping every minute; triple that tolerates a couple of dropped requests.
const heartbeatTTL = 3 * time.Minute

// Tracker records heartbeats in Redis with a sliding TTL.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker { return &Tracker{rdb: rdb} }

func key(userID uint64) string { return fmt.Sprintf("presence:user:%d", userID) }

// Heartbeat refreshes the user's online marker.
func (t *Tracker) Heartbeat(ctx context.Context, userID uint64) error {
	return t.rdb.Set(ctx, key(userID), "1", heartbeatTTL).Err()
}

// IsOnline reports whether the user heartbeated recently.  Errors degrade to
// offline so a Redis outage cannot suppress occupancy enforcement forever.
func (t *Tracker) IsOnline(ctx context.Context, userID uint64) bool {
	n, err := t.rdb.Exists(ctx, key(userID)).Result()
	return err == nil && n > 0
}

// Offline drops the marker immediately, used on logout.
func (t *Tracker) Offline(ctx context.Context, userID uint64) error {
	return t.rdb.Del(ctx, key(userID)).Err()
}
