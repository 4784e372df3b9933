package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

func TestManagerAttachIsPerOperator(t *testing.T) {
	tally := &outcomeTally{}
	m := NewManager(Config{PollInterval: time.Hour}, &requestFeed{}, NewRegistry(), tally, nil)

	started, err := m.Attach(&models.Operator{ID: "clerk"})
	require.NoError(t, err)
	assert.True(t, started)

	started, err = m.Attach(&models.Operator{ID: "clerk"})
	require.NoError(t, err)
	assert.False(t, started)

	_, err = m.Attach(&models.Operator{ID: "cashier"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, tally.current())
	assert.True(t, m.Active("clerk"))

	assert.True(t, m.Detach("clerk"))
	assert.False(t, m.Detach("clerk"))
	assert.False(t, m.Active("clerk"))
	assert.Equal(t, 1, tally.current())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Zero(t, m.Len())
	assert.Zero(t, tally.current())

	_, err = m.Attach(&models.Operator{ID: "clerk"})
	assert.Error(t, err)
}

func TestManagerTriggerDeliversPromptly(t *testing.T) {
	feed := &requestFeed{}
	counter := newCallCounter()
	registry := NewRegistry()
	registry.Register(testAction, counter.handler())
	m := NewManager(Config{PollInterval: time.Hour}, feed, registry, nil, nil)
	defer m.Shutdown(context.Background())

	_, err := m.Attach(&models.Operator{ID: "clerk"})
	require.NoError(t, err)
	assert.False(t, m.Trigger("nobody"))

	feed.add(approved("r1"))
	assert.Eventually(t, func() bool {
		m.Trigger("clerk")
		return counter.count("r1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}
