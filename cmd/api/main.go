package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/revocation-service/internal/api/http"
	"github.com/spec-kit/revocation-service/internal/api/http/handlers"
	"github.com/spec-kit/revocation-service/internal/audit"
	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/authn"
	"github.com/spec-kit/revocation-service/internal/config"
	"github.com/spec-kit/revocation-service/internal/events"
	"github.com/spec-kit/revocation-service/internal/grant"
	"github.com/spec-kit/revocation-service/internal/liveness"
	"github.com/spec-kit/revocation-service/internal/observability"
	"github.com/spec-kit/revocation-service/internal/persistence"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/service"
	"github.com/spec-kit/revocation-service/internal/session"
	"github.com/spec-kit/revocation-service/internal/tokenstore"
	"github.com/spec-kit/revocation-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Configured() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		userRepo   repository.UserRepository
		clientRepo repository.ClientRepository
	)
	if pg.Configured() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		clientRepo = repository.NewClientRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory user and client repositories")
		userRepo = repository.NewMemoryUsers()
		clientRepo = repository.NewMemoryClients()
	}

	dependencies := map[string]handlers.Pinger{}
	if pg.Configured() {
		dependencies["postgres"] = pg
	}

	var redis *persistence.Redis
	if cfg.TokenStore.Backend == config.TokenBackendRedis || cfg.Audit.RedisStream != "" {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		dependencies["redis"] = redis
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartTokenEventWorker(service.NewTokenEventService(dispatcher, logger))

	oracle := liveness.New(userRepo, clientRepo,
		liveness.WithTimeout(cfg.Liveness.LookupTimeout()),
		liveness.WithLogger(logger),
		liveness.WithMetrics(metrics),
	)

	var records tokenstore.Records = tokenstore.NewMemoryRecords()
	if cfg.TokenStore.Backend == config.TokenBackendRedis {
		records = tokenstore.NewRedisRecords(redis.Client, cfg.TokenStore.RedisPrefix)
	}
	store := tokenstore.New(records, oracle,
		tokenstore.WithDispatcher(dispatcher),
		tokenstore.WithLogger(logger),
		tokenstore.WithMetrics(metrics),
	)
	sweeperDone := worker.StartSweeper(ctx, store, cfg.TokenStore.SweepInterval(), logger)

	auditLogger, closeAudit := buildAuditLogger(cfg, redis, logger)
	defer closeAudit()

	credentials := grant.NewRepositoryCredentials(userRepo)
	grantValidator := audit.WithGrantAudit(
		grant.NewValidator(cfg.Grant.GrantType, userRepo, oracle, credentials,
			grant.WithLookupTimeout(cfg.Liveness.LookupTimeout()),
			grant.WithLogger(logger),
		),
		auditLogger,
	)
	userService := authn.NewService(userRepo, clientRepo, oracle, credentials, store,
		authn.WithLookupTimeout(cfg.Liveness.LookupTimeout()),
	)

	jwtManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	accessValidator := auth.NewAccessTokenValidator(jwtManager, oracle)
	tokenService := service.NewTokenService(*cfg, service.TokenDependencies{
		Clients: clientRepo,
		Grant:   grantValidator,
		Store:   store,
		JWT:     jwtManager,
		Access:  accessValidator,
	})
	adminService := service.NewAdminService(*cfg, userRepo, clientRepo, store)
	if cfg.Auth.AdminKey == "" {
		logger.Warn("ADMIN_API_KEY not set; admin routes reject every request")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Tokens: handlers.NewTokenHandler(tokenService),
		Account: handlers.NewAccountHandler(handlers.AccountDependencies{
			Users:     audit.WithUserServiceAudit(userService, auditLogger),
			Redirects: userService,
			Sessions:  session.NewValidator(oracle),
			Tokens:    tokenService,
			Clients:   clientRepo,
		}),
		Admin:          handlers.NewAdminHandler(adminService),
		AuthMiddleware: auth.NewAuthMiddleware(accessValidator, store),
		AdminKey:       cfg.Auth.AdminKey,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-sweeperDone
	_ = app.Shutdown()
}

// buildAuditLogger combines the configured sinks. The returned func closes them.
func buildAuditLogger(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) (audit.Logger, func()) {
	var sinks []audit.Sink
	closeFn := func() {}

	if cfg.Audit.FilePath != "" {
		fileSink, err := audit.NewFileSink(cfg.Audit.FilePath)
		if err != nil {
			logger.Fatal("failed to open audit file", zap.String("path", cfg.Audit.FilePath), zap.Error(err))
		}
		sinks = append(sinks, fileSink)
		closeFn = func() { _ = fileSink.Close() }
	}
	if cfg.Audit.RedisStream != "" && redis != nil {
		sinks = append(sinks, audit.NewRedisStreamSink(redis.Client, cfg.Audit.RedisStream, 0))
	}
	if len(sinks) == 0 {
		logger.Warn("no audit sink configured")
	}
	return audit.NewSinkLogger(audit.MultiSink(sinks...), logger), closeFn
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
