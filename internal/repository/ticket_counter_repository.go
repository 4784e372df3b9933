package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const ticketKeyPrefix = "authz:tickets"

type incrClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// TicketCounterRepository hands out per-tenant, per-prefix sequence numbers
// from Redis.
type TicketCounterRepository struct {
	client incrClient
}

// NewTicketCounterRepository constructs a counter over a Redis client.
func NewTicketCounterRepository(client incrClient) *TicketCounterRepository {
	return &TicketCounterRepository{client: client}
}

// Next increments and returns the counter for scope and prefix.
func (r *TicketCounterRepository) Next(ctx context.Context, scope, prefix string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("ticket counter: redis not configured")
	}
	key := TicketKey(scope, prefix)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return n, nil
}

// TicketKey builds the Redis key; platform-level tickets use scope "platform".
func TicketKey(scope, prefix string) string {
	if scope == "" {
		scope = "platform"
	}
	return fmt.Sprintf("%s:%s:%s", ticketKeyPrefix, scope, prefix)
}
