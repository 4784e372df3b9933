package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/service"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultSeenCacheSize = 1024
)

type requestService interface {
	ListDeliverable(ctx context.Context, actor *models.Operator) ([]models.AuthorizationRequest, error)
	MarkProcessed(ctx context.Context, requestID string, actor *models.Operator) (*models.AuthorizationRequest, error)
}

type deliveryMetrics interface {
	DeliveryObserved(actionKey, outcome string)
}

// Config tunes a delivery loop.
type Config struct {
	PollInterval  time.Duration
	SeenCacheSize int
	RunOnce       bool
}

// Report summarises one pass over the requester's approved requests.
type Report struct {
	Examined  int
	Applied   int
	Failed    int
	Unhandled int
	Skipped   int
	Err       error
}

// Loop applies the approved requests of one operator and marks them
// PROCESSED. A request id enters the seen set before its handler runs so
// overlapping passes never apply it twice.
type Loop struct {
	cfg      Config
	operator *models.Operator
	requests requestService
	registry *Registry
	seen     *lru.Cache[string, struct{}]
	trigger  chan struct{}
	mu       sync.Mutex
	metrics  deliveryMetrics
	logger   *zap.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopMetrics records per-request outcomes.
func WithLoopMetrics(m deliveryMetrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop constructs a loop for operator.
func NewLoop(cfg Config, operator *models.Operator, requests requestService, registry *Registry, logger *zap.Logger, opts ...LoopOption) (*Loop, error) {
	if operator == nil {
		return nil, errors.New("delivery loop requires an operator")
	}
	if requests == nil {
		return nil, errors.New("delivery loop requires a request service")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.SeenCacheSize <= 0 {
		cfg.SeenCacheSize = defaultSeenCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seen, err := lru.New[string, struct{}](cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}
	l := &Loop{
		cfg:      cfg,
		operator: operator,
		requests: requests,
		registry: registry,
		seen:     seen,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With(zap.String("operator_id", operator.ID)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Operator returns the requester this loop delivers for.
func (l *Loop) Operator() *models.Operator {
	return l.operator
}

// Run ticks immediately, then on every poll interval or trigger, until ctx
// is cancelled. Failures are logged and never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	l.logger.Info("delivery loop started", zap.Duration("poll_interval", l.cfg.PollInterval))
	defer l.logger.Info("delivery loop stopped")

	for {
		report := l.Tick(ctx)
		if report.Err != nil && !errors.Is(report.Err, context.Canceled) {
			l.logger.Warn("delivery pass failed", zap.Error(report.Err))
		}
		if l.cfg.RunOnce {
			return report.Err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.trigger:
		}
	}
}

// Trigger requests an early pass. Extra triggers coalesce.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Tick runs a single pass.
func (l *Loop) Tick(ctx context.Context) (report Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("delivery pass panicked: %v", r)
			l.logger.Error("delivery pass panicked", zap.Any("panic", r))
		}
	}()

	items, err := l.requests.ListDeliverable(ctx, l.operator)
	if err != nil {
		report.Err = err
		return report
	}
	for _, req := range items {
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			return report
		}
		if req.Status != models.AuthorizationApproved {
			continue
		}
		report.Examined++
		outcome := l.deliver(ctx, req)
		switch outcome {
		case service.DeliveryApplied:
			report.Applied++
		case service.DeliveryFailed:
			report.Failed++
		case service.DeliveryUnhandled:
			report.Unhandled++
		default:
			report.Skipped++
		}
		if l.metrics != nil {
			l.metrics.DeliveryObserved(req.ActionKey, outcome)
		}
	}
	return report
}

func (l *Loop) deliver(ctx context.Context, req models.AuthorizationRequest) string {
	if l.seen.Contains(req.ID) {
		return service.DeliverySkipped
	}
	l.seen.Add(req.ID, struct{}{})

	log := l.logger.With(
		zap.String("request_id", req.ID),
		zap.String("protocol_id", req.ProtocolID),
		zap.String("action_key", req.ActionKey),
	)

	handler, ok := l.registry.Lookup(req.ActionKey)
	if !ok {
		log.Warn("no handler registered for approved request")
		return service.DeliveryUnhandled
	}

	fields := descriptor.Decode(req.ActionLabel)
	if err := handler.Handle(ctx, Delivery{Request: req, Fields: fields}); err != nil {
		if permanent(err) {
			log.Error("approved request cannot be applied", zap.Error(err))
		} else {
			l.seen.Remove(req.ID)
			log.Warn("approved request will be retried", zap.Error(err))
		}
		return service.DeliveryFailed
	}

	if _, err := l.requests.MarkProcessed(ctx, req.ID, l.operator); err != nil {
		if appErrors.HasCode(err, appErrors.ErrAlreadyResolved.Code) || appErrors.HasCode(err, appErrors.ErrForbidden.Code) {
			log.Info("request already settled elsewhere", zap.Error(err))
			return service.DeliverySkipped
		}
		l.seen.Remove(req.ID)
		log.Warn("failed to mark request processed", zap.Error(err))
		return service.DeliveryFailed
	}
	log.Info("approved request delivered")
	return service.DeliveryApplied
}

// permanent reports errors that will not heal by retrying the same label.
func permanent(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrNotFound.Code) ||
		appErrors.HasCode(err, appErrors.ErrValidation.Code)
}
