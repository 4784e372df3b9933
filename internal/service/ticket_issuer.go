package service

import (
	"context"
	"fmt"
	"sync"

	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

// Ticket prefixes.
const (
	ProtocolPrefix = "REQ"
	ApprovalPrefix = "APR"
)

type ticketCounter interface {
	Next(ctx context.Context, scope, prefix string) (int64, error)
}

// TicketIssuer formats per-tenant sequence numbers as PREFIX-NNNNN.
type TicketIssuer struct {
	counter ticketCounter
}

// NewTicketIssuer wraps a counter.
func NewTicketIssuer(counter ticketCounter) *TicketIssuer {
	return &TicketIssuer{counter: counter}
}

// Issue returns the next ticket for tenant and prefix.
func (t *TicketIssuer) Issue(ctx context.Context, tenant, prefix string) (string, error) {
	n, err := t.counter.Next(ctx, tenant, prefix)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrTicketExhausted.Code, appErrors.ErrTicketExhausted.Status, "failed to issue ticket")
	}
	return FormatTicket(prefix, n), nil
}

// FormatTicket renders prefix and sequence, zero-padded to five digits.
func FormatTicket(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// MemoryTicketCounter is a process-local counter for single-instance
// deployments and tests.
type MemoryTicketCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryTicketCounter constructs an empty counter.
func NewMemoryTicketCounter() *MemoryTicketCounter {
	return &MemoryTicketCounter{counts: make(map[string]int64)}
}

// Next implements ticketCounter.
func (c *MemoryTicketCounter) Next(_ context.Context, scope, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := scope + "|" + prefix
	c.counts[key]++
	return c.counts[key], nil
}
