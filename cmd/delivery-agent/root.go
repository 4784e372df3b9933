package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/delivery"
	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/repository"
	"github.com/noah-isme/backoffice-authz/internal/service"
	"github.com/noah-isme/backoffice-authz/pkg/cache"
	"github.com/noah-isme/backoffice-authz/pkg/config"
	"github.com/noah-isme/backoffice-authz/pkg/database"
	"github.com/noah-isme/backoffice-authz/pkg/logger"
)

func main() {
	if err := newRootCmd(newAgent).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// agentBuilder loads the runtime for an operator. An empty id falls back to
// the configured one.
type agentBuilder func(ctx context.Context, operatorID string) (*agent, error)

func newRootCmd(build agentBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delivery-agent",
		Short:         "Applies an operator's approved authorization requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCmd(build))
	cmd.AddCommand(newTickCmd(build))
	return cmd
}

type deliveryFeed interface {
	ListDeliverable(ctx context.Context, actor *models.Operator) ([]models.AuthorizationRequest, error)
	MarkProcessed(ctx context.Context, requestID string, actor *models.Operator) (*models.AuthorizationRequest, error)
}

// agent bundles what a delivery loop needs outside the API process.
type agent struct {
	cfg      *config.Config
	logger   *zap.Logger
	operator *models.Operator
	requests deliveryFeed
	registry *delivery.Registry
	closers  []func() error
}

func newAgent(ctx context.Context, operatorID string) (*agent, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if operatorID == "" {
		operatorID = cfg.Agent.OperatorID
	}
	if operatorID == "" {
		return nil, fmt.Errorf("an operator id is required (--operator or AGENT_OPERATOR_ID)")
	}

	logr, err := logger.New(cfg, "delivery-agent")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var counter interface {
		Next(ctx context.Context, scope, prefix string) (int64, error)
	} = service.NewMemoryTicketCounter()
	var redisClient *redis.Client
	if cfg.Authorizations.TicketBackend == config.TicketBackendRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		counter = repository.NewTicketCounterRepository(redisClient)
	}

	credentials := service.NewCredentialService(repository.NewUserRepository(db), service.SuperUserConfig{
		Email:        cfg.Authorizations.SuperUserEmail,
		PasswordHash: cfg.Authorizations.SuperUserPasswordHash,
		Name:         cfg.Authorizations.SuperUserName,
	}, logger.Component(logr, "credentials"))
	op, err := credentials.Operator(ctx, operatorID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load operator %s: %w", operatorID, err)
	}

	audit := service.NewAuditService(repository.NewAuditRepository(db), logger.Component(logr, "audit"))
	gate := service.NewApprovalGate(credentials, logger.Component(logr, "approval-gate"),
		service.WithRequiredPermission(cfg.Authorizations.ApprovalPermission))
	requests := service.NewAuthorizationService(repository.NewAuthorizationRequestRepository(db), service.NewTicketIssuer(counter), gate,
		logger.Component(logr, "authorizations"), service.WithAuthorizationAudit(audit))

	registry, err := delivery.RegistryFromCatalog(repository.NewDocumentRepository(db), logger.Component(logr, "delivery"))
	if err != nil {
		db.Close()
		return nil, err
	}

	closers := []func() error{db.Close}
	if redisClient != nil {
		closers = append(closers, redisClient.Close)
	}
	return &agent{cfg: cfg, logger: logr, operator: op, requests: requests, registry: registry, closers: closers}, nil
}

// loopConfig layers the command-line flags over the loaded settings. A
// positive interval replaces the configured one; --once and AGENT_RUN_ONCE
// each force a single pass.
func loopConfig(cfg *config.Config, once bool, interval time.Duration) delivery.Config {
	out := delivery.Config{
		PollInterval:  cfg.Authorizations.PollInterval,
		SeenCacheSize: cfg.Authorizations.SeenCacheSize,
		RunOnce:       once || cfg.Agent.RunOnce,
	}
	if interval > 0 {
		out.PollInterval = interval
	}
	return out
}

func (a *agent) loop(cfg delivery.Config) (*delivery.Loop, error) {
	return delivery.NewLoop(cfg, a.operator, a.requests, a.registry, logger.Component(a.logger, "delivery"))
}

func (a *agent) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	for _, closeFn := range a.closers {
		_ = closeFn()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
