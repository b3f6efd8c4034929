package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/member-portal/internal/api/http"
	"github.com/spec-kit/member-portal/internal/api/http/handlers"
	"github.com/spec-kit/member-portal/internal/auth"
	"github.com/spec-kit/member-portal/internal/config"
	"github.com/spec-kit/member-portal/internal/events"
	"github.com/spec-kit/member-portal/internal/observability"
	"github.com/spec-kit/member-portal/internal/persistence"
	"github.com/spec-kit/member-portal/internal/ratelimit"
	"github.com/spec-kit/member-portal/internal/repository"
	"github.com/spec-kit/member-portal/internal/service"
	"github.com/spec-kit/member-portal/internal/web"
	"github.com/spec-kit/member-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics(metricsNamespace(cfg.App.Name))
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	directory := service.NewAccountDirectory(userRepo, roleRepo)
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret)
	refresher := auth.NewRefresher(codec, directory, auth.TokenTTLs{
		Access:  cfg.Auth.AccessTokenTTL(),
		Refresh: cfg.Auth.RefreshTokenTTL(),
	})
	gate := auth.NewGate(auth.NewSessionVerifier(codec), refresher, directory, auth.GateConfig{
		LoginPath:       "/login",
		CookieSecure:    cfg.Auth.CookieSecure,
		RefreshRedirect: cfg.Auth.RefreshRedirect,
	}, logger, metrics)

	limiter := ratelimit.NewLoginLimiter(redis.Client, ratelimit.LoginConfig{
		MaxAttempts: cfg.Auth.LoginMaxAttempts,
		Cooldown:    cfg.Auth.LoginCooldown(),
	})

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Refresher:         refresher,
		Limiter:           limiter,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Metrics:           metrics,
	})
	orgService := service.NewOrganizationService(orgRepo, roleRepo, userRepo, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification, cfg.App.BaseURL)
	notifications := worker.StartNotificationWorker(ctx, dispatcher, notificationService, logger, 0)

	renderer, err := web.NewRenderer(cfg.App.Name)
	if err != nil {
		logger.Fatal("failed to load views", zap.Error(err))
	}

	app := httptransport.NewApp(cfg.App.Name, renderer, !cfg.App.IsDevelopment())
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Pages:         handlers.NewPagesHandler(orgService),
		Auth:          handlers.NewAuthHandler(authService, gate),
		Account:       handlers.NewAccountHandler(authService, gate),
		Organizations: handlers.NewOrganizationsHandler(orgService),
		Gate:          gate,
		Roles:         roleRepo,
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	notifications.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

// metricsNamespace turns the app name into a valid Prometheus namespace.
func metricsNamespace(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9' && len(out) > 0:
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
