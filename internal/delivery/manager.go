package delivery

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

type loopMetrics interface {
	deliveryMetrics
	LoopAttached(delta int)
}

type runningLoop struct {
	loop   *Loop
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns one delivery loop per signed-in operator.
type Manager struct {
	cfg      Config
	requests requestService
	registry *Registry
	metrics  loopMetrics
	logger   *zap.Logger

	mu     sync.Mutex
	loops  map[string]*runningLoop
	closed bool
}

// NewManager constructs a manager. metrics may be nil.
func NewManager(cfg Config, requests requestService, registry *Registry, metrics loopMetrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.RunOnce = false
	return &Manager{
		cfg:      cfg,
		requests: requests,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		loops:    make(map[string]*runningLoop),
	}
}

// Attach starts a loop for op unless one is already running.
func (m *Manager) Attach(op *models.Operator) (bool, error) {
	if op == nil {
		return false, errors.New("operator is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, errors.New("delivery manager is shut down")
	}
	if _, ok := m.loops[op.ID]; ok {
		return false, nil
	}

	var opts []LoopOption
	if m.metrics != nil {
		opts = append(opts, WithLoopMetrics(m.metrics))
	}
	loop, err := NewLoop(m.cfg, op, m.requests, m.registry, m.logger, opts...)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	running := &runningLoop{loop: loop, cancel: cancel, done: make(chan struct{})}
	m.loops[op.ID] = running
	if m.metrics != nil {
		m.metrics.LoopAttached(1)
	}
	go func() {
		defer close(running.done)
		_ = loop.Run(ctx)
	}()
	return true, nil
}

// Detach stops the loop of operatorID and waits for it to exit.
func (m *Manager) Detach(operatorID string) bool {
	m.mu.Lock()
	running, ok := m.loops[operatorID]
	if ok {
		delete(m.loops, operatorID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	running.cancel()
	<-running.done
	if m.metrics != nil {
		m.metrics.LoopAttached(-1)
	}
	return true
}

// Trigger asks the loop of operatorID for an early pass.
func (m *Manager) Trigger(operatorID string) bool {
	m.mu.Lock()
	running, ok := m.loops[operatorID]
	m.mu.Unlock()
	if ok {
		running.loop.Trigger()
	}
	return ok
}

// Active reports whether operatorID has a running loop.
func (m *Manager) Active(operatorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[operatorID]
	return ok
}

// Len is the number of running loops.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

// Shutdown stops every loop, giving up when ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	loops := m.loops
	m.loops = make(map[string]*runningLoop)
	m.mu.Unlock()

	for _, running := range loops {
		running.cancel()
	}
	for _, running := range loops {
		select {
		case <-running.done:
			if m.metrics != nil {
				m.metrics.LoopAttached(-1)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
