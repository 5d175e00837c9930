// Package lock serialises booking attempts per seat with a short Redis
// lease.  The lease only narrows the race window; the guarded SQL updates
// remain the source of truth for conflicts.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed booking attempt can keep a seat
// locked.
const DefaultTTL = 10 * time.Second

// releaseScript deletes the lock only when the caller still owns it, so a
// slow holder cannot delete a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SeatLock hands out per-seat leases backed by Redis SET NX.
type SeatLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSeatLock(rdb *redis.Client) *SeatLock {
	return &SeatLock{rdb: rdb, ttl: DefaultTTL}
}

func key(seatID uint64) string { return fmt.Sprintf("lock:seat:%d", seatID) }

// TryAcquire attempts to take the seat's lease.  On success it returns a
// release func bound to this holder's token; on contention it returns
// ok=false with a nil release.
func (l *SeatLock) TryAcquire(ctx context.Context, seatID uint64) (release func(), ok bool, err error) {
	token := uuid.NewString()
	k := key(seatID)
	ok, err = l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release = func() {
		// Best effort; the TTL reclaims the lease if this fails.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{k}, token).Err()
	}
	return release, true, nil
}
