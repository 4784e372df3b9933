package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/backoffice-authz/api/swagger"
	"github.com/noah-isme/backoffice-authz/internal/delivery"
	"github.com/noah-isme/backoffice-authz/internal/handler"
	"github.com/noah-isme/backoffice-authz/internal/middleware"
	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/internal/repository"
	"github.com/noah-isme/backoffice-authz/internal/service"
	"github.com/noah-isme/backoffice-authz/pkg/cache"
	"github.com/noah-isme/backoffice-authz/pkg/config"
	"github.com/noah-isme/backoffice-authz/pkg/database"
	"github.com/noah-isme/backoffice-authz/pkg/jobs"
	"github.com/noah-isme/backoffice-authz/pkg/logger"
	corsmiddleware "github.com/noah-isme/backoffice-authz/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/backoffice-authz/pkg/middleware/requestid"
)

// @title Backoffice Authorization API
// @version 1.0.0
// @description Dual-control authorization workflow for sensitive back-office mutations
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "api-gateway")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Authorizations.TicketBackend == config.TicketBackendRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	app := wire(cfg, db, redisClient, logr)

	auditQueue := jobs.NewQueue("audit", app.audit.Handle, jobs.QueueConfig{
		Workers:    cfg.Authorizations.AuditWorkers,
		MaxRetries: cfg.Authorizations.AuditRetries,
		Logger:     logger.Component(logr, "audit-queue"),
	})
	auditQueue.Start(ctx)
	app.audit.AttachQueue(auditQueue)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down", zap.Int("delivery_loops", app.deliveries.Len()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := app.deliveries.Shutdown(shutdownCtx); err != nil {
		logr.Warn("delivery loops did not stop in time", zap.Error(err))
	}
	auditQueue.Stop()
}

type application struct {
	router     *gin.Engine
	audit      *service.AuditService
	deliveries *delivery.Manager
}

func wire(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	authzCfg := cfg.Authorizations

	users := repository.NewUserRepository(db)
	requests := repository.NewAuthorizationRequestRepository(db)
	documents := repository.NewDocumentRepository(db)

	var counter interface {
		Next(ctx context.Context, scope, prefix string) (int64, error)
	} = service.NewMemoryTicketCounter()
	if redisClient != nil {
		counter = repository.NewTicketCounterRepository(redisClient)
	}

	metrics := service.NewMetricsService()
	auditRepo := repository.NewAuditRepository(db)
	audit := service.NewAuditService(auditRepo, logger.Component(logr, "audit"), service.WithAuditReader(auditRepo))

	credentials := service.NewCredentialService(users, service.SuperUserConfig{
		Email:        authzCfg.SuperUserEmail,
		PasswordHash: authzCfg.SuperUserPasswordHash,
		Name:         authzCfg.SuperUserName,
	}, logger.Component(logr, "credentials"))

	authSvc := service.NewAuthService(credentials, audit, validator.New(), logger.Component(logr, "auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	gate := service.NewApprovalGate(credentials, logger.Component(logr, "approval-gate"),
		service.WithRequiredPermission(authzCfg.ApprovalPermission),
		service.WithGateMetrics(metrics),
	)
	logr.Info("approval gate ready", zap.String("required_permission", gate.RequiredPermission()),
		zap.Bool("admin_bypass", authzCfg.AdminBypass))
	authzSvc := service.NewAuthorizationService(requests, service.NewTicketIssuer(counter), gate, logger.Component(logr, "authorizations"),
		service.WithAuthorizationAudit(audit),
		service.WithAuthorizationMetrics(metrics),
	)

	policy := permissions.Policy{AdminBypass: authzCfg.AdminBypass, SuperUserEmail: authzCfg.SuperUserEmail}
	mutationSvc := service.NewMutationService(policy, documents, authzSvc, logger.Component(logr, "mutations"),
		service.WithMutationAudit(audit),
		service.WithMutationMetrics(metrics),
	)

	operatorSvc := service.NewOperatorService(users, audit, validator.New(), logger.Component(logr, "operators"))
	documentSvc := service.NewDocumentService(documents, logger.Component(logr, "documents"))

	registry, err := delivery.RegistryFromCatalog(documents, logger.Component(logr, "delivery"))
	if err != nil {
		logr.Fatal("failed to build delivery registry", zap.Error(err))
	}
	manager := delivery.NewManager(delivery.Config{
		PollInterval:  authzCfg.PollInterval,
		SeenCacheSize: authzCfg.SeenCacheSize,
	}, authzSvc, registry, metrics, logger.Component(logr, "delivery"))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		},
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	permissionHandler := handler.NewPermissionHandler(policy)
	mutationHandler := handler.NewMutationHandler(mutationSvc)
	authorizationHandler := handler.NewAuthorizationHandler(authzSvc, manager)
	deliveryHandler := handler.NewDeliveryHandler(manager)
	operatorHandler := handler.NewOperatorHandler(operatorSvc)
	auditHandler := handler.NewAuditHandler(audit)
	documentHandler := handler.NewDocumentHandler(documentSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc, credentials))
	secured.GET("/auth/me", authHandler.Me)

	secured.GET("/permissions/resolve", permissionHandler.Resolve)
	secured.GET("/permissions/me", permissionHandler.Me)
	secured.GET("/permissions/actions", permissionHandler.Catalog)

	secured.POST("/mutations", mutationHandler.Execute)
	secured.GET("/documents/:collection", documentHandler.List)

	authz := secured.Group("/authorizations")
	authz.POST("", authorizationHandler.Submit)
	authz.GET("", authorizationHandler.ListPending)
	authz.GET("/mine", authorizationHandler.ListMine)
	authz.GET("/:id", authorizationHandler.Get)
	authz.POST("/:id/approve", authorizationHandler.Approve)
	authz.POST("/:id/deny", authorizationHandler.Deny)
	authz.POST("/:id/processed", authorizationHandler.MarkProcessed)

	deliveries := secured.Group("/deliveries")
	deliveries.GET("", deliveryHandler.Status)
	deliveries.POST("", middleware.Audit(audit, models.AuditActionDeliveryAttached), deliveryHandler.Attach)
	deliveries.DELETE("", middleware.Audit(audit, models.AuditActionDeliveryDetached), deliveryHandler.Detach)
	deliveries.POST("/trigger", deliveryHandler.Trigger)

	operators := secured.Group("/operators", middleware.RequireRoles(models.RoleCompanyAdmin))
	operators.GET("", operatorHandler.List)
	operators.POST("", operatorHandler.Create)
	operators.PUT("/:id/grants", operatorHandler.UpdateGrants)

	secured.GET("/audit-logs", middleware.RequirePermission(permissions.ReportsAudit), auditHandler.Recent)
	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleCompanyAdmin), metricsHandler.Summary)

	return &application{router: r, audit: audit, deliveries: manager}
}
