package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dispatchKeyPrefix = "dispatch:booking:"
	escalationSetKey  = "escalations:bookings"
)

// DispatchGuard keeps contractor fan-out exactly-once per booking across
// concurrent callers and tracks bookings surfaced for manual escalation.
type DispatchGuard interface {
	TryAcquire(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, bookingID string) error
	MarkEscalated(ctx context.Context, bookingID string) error
	ClearEscalated(ctx context.Context, bookingID string) error
	ListEscalated(ctx context.Context) ([]string, error)
}

type dispatchGuard struct {
	redis *redis.Client
}

func NewDispatchGuard(redisClient *redis.Client) DispatchGuard {
	return &dispatchGuard{redis: redisClient}
}

// TryAcquire takes the per-booking dispatch slot. The TTL bounds the hold
// so a crashed dispatcher cannot wedge a booking forever.
func (g *dispatchGuard) TryAcquire(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return g.redis.SetNX(ctx, dispatchKeyPrefix+bookingID, time.Now().Unix(), ttl).Result()
}

func (g *dispatchGuard) Release(ctx context.Context, bookingID string) error {
	return g.redis.Del(ctx, dispatchKeyPrefix+bookingID).Err()
}

func (g *dispatchGuard) MarkEscalated(ctx context.Context, bookingID string) error {
	return g.redis.SAdd(ctx, escalationSetKey, bookingID).Err()
}

func (g *dispatchGuard) ClearEscalated(ctx context.Context, bookingID string) error {
	return g.redis.SRem(ctx, escalationSetKey, bookingID).Err()
}

func (g *dispatchGuard) ListEscalated(ctx context.Context) ([]string, error) {
	return g.redis.SMembers(ctx, escalationSetKey).Result()
}
