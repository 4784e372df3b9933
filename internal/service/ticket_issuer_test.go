package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type failingCounter struct{}

func (failingCounter) Next(ctx context.Context, scope, prefix string) (int64, error) {
	return 0, errors.New("redis unavailable")
}

func TestTicketIssuerSequencesPerTenantAndPrefix(t *testing.T) {
	issuer := NewTicketIssuer(NewMemoryTicketCounter())
	ctx := context.Background()

	next := func(tenant, prefix string) string {
		ticket, err := issuer.Issue(ctx, tenant, prefix)
		require.NoError(t, err)
		return ticket
	}

	assert.Equal(t, "REQ-00001", next("company-1", ProtocolPrefix))
	assert.Equal(t, "REQ-00002", next("company-1", ProtocolPrefix))
	assert.Equal(t, "REQ-00001", next("company-2", ProtocolPrefix))
	assert.Equal(t, "APR-00001", next("company-1", ApprovalPrefix))
	assert.Equal(t, "REQ-00001", next("", ProtocolPrefix))
}

func TestFormatTicketWidensPastFiveDigits(t *testing.T) {
	assert.Equal(t, "REQ-00042", FormatTicket("REQ", 42))
	assert.Equal(t, "APR-123456", FormatTicket("APR", 123456))
}

func TestTicketIssuerWrapsCounterFailure(t *testing.T) {
	_, err := NewTicketIssuer(failingCounter{}).Issue(context.Background(), "company-1", ProtocolPrefix)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTicketExhausted))
}
