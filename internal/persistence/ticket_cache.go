package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TicketCache caches serialized ticket detail views in Redis. It is best
// effort: every failure is logged at debug level and treated as a miss, and
// a nil cache (no redis configured) is a valid no-op instance.
type TicketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTicketCache builds a cache over a Redis connection. Returns nil when
// the connection or TTL is absent, which disables caching.
func NewTicketCache(r *Redis, ttl time.Duration, logger *zap.Logger) *TicketCache {
	if r == nil || r.Client == nil || ttl <= 0 {
		return nil
	}
	return &TicketCache{client: r.Client, ttl: ttl, logger: logger}
}

// Get returns the cached payload for a ticket, if present.
func (c *TicketCache) Get(ctx context.Context, ticketID int64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, ticketKey(ticketID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("ticket cache get failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores the payload for a ticket.
func (c *TicketCache) Set(ctx context.Context, ticketID int64, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, ticketKey(ticketID), payload, c.ttl).Err(); err != nil {
		c.logger.Debug("ticket cache set failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
}

// Invalidate drops the cached view after a mutation.
func (c *TicketCache) Invalidate(ctx context.Context, ticketID int64) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, ticketKey(ticketID)).Err(); err != nil {
		c.logger.Debug("ticket cache invalidate failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
}

func ticketKey(ticketID int64) string {
	return fmt.Sprintf("ticket:detail:%d", ticketID)
}
