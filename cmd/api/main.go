package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/userbridge-backend/api/routes"
	"github.com/angelmondragon/userbridge-backend/internal/auth"
	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	"github.com/angelmondragon/userbridge-backend/internal/roles"
	"github.com/angelmondragon/userbridge-backend/internal/users"
	pkgAuth "github.com/angelmondragon/userbridge-backend/pkg/auth"
	"github.com/angelmondragon/userbridge-backend/pkg/config"
	"github.com/angelmondragon/userbridge-backend/pkg/db"
	"github.com/angelmondragon/userbridge-backend/pkg/env"
	"github.com/angelmondragon/userbridge-backend/pkg/instance"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
	"github.com/angelmondragon/userbridge-backend/pkg/metrics"
	"github.com/angelmondragon/userbridge-backend/pkg/migrate"
	"github.com/angelmondragon/userbridge-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 15 * time.Second
	tokenLeeway     = 30 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": instance.GetID()},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	kc, err := keycloak.NewClient(cfg.Keycloak, keycloak.WithMetrics(metrics.NewIdentityProviderMetrics(registry)))
	if err != nil {
		return err
	}
	verifier := pkgAuth.NewVerifier(pkgAuth.WithLeeway(tokenLeeway))
	userRepo := users.NewRepository(dbClient.DB())

	userService, err := users.NewService(users.ServiceParams{
		Repo:                    userRepo,
		IdentityProvider:        kc,
		Logger:                  logg,
		VerificationRedirectURL: cfg.Keycloak.VerificationRedirectURL,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		IdentityProvider: kc,
		Verifier:         verifier,
		UserRepo:         userRepo,
		Logger:           logg,
	})
	if err != nil {
		return err
	}

	rolesService, err := roles.NewService(roles.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"addr":  addr,
		"realm": cfg.Keycloak.Realm,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			RateLimiter:  redisClient,
			SigningKeys:  kc,
			Verifier:     verifier,
			Gatherer:     registry,
			HTTPMetrics:  metrics.NewHTTPMetrics(registry),
			AuthService:  authService,
			UserService:  userService,
			RolesService: rolesService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
