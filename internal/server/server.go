// Package server wires the hyperauth components together and runs the HTTP
// server.
//
// NewServer builds everything in dependency order: database and migrations,
// optional redis, repositories, token machinery, services, handlers and
// finally the router. Start blocks until the process is signalled or the
// listener fails and then shuts the components down in reverse order.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/handlers"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/notify"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/repository"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/service"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils/ratelimit"
	"github.com/mdmuhtasimfuadfahim/hyperauth/migrations"
	"github.com/mdmuhtasimfuadfahim/hyperauth/scripts"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	SystemHandler *handlers.SystemHandler
}

// repositories holds the SQL-backed stores.
type repositories struct {
	users       repository.UserRepository
	tokens      repository.TokenRepository
	requestLogs repository.RequestLogRepository
}

// Server represents the hyperauth API server.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides database access
	Db *database.Pool

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	build          handlers.BuildInfo
	trustedProxies []*net.IPNet
	redis          *redis.Client
	repos          repositories
	metrics        *metrics.Metrics
	verifier       *auth.Verifier
	authService    *service.AuthService
	limiter        ratelimit.Store
	reaper         *service.Reaper
	router         chi.Router
	httpServer     *http.Server
}

// NewServer creates a server with every component initialised. It connects
// to the database and runs pending migrations, so it fails fast on a bad
// configuration.
func NewServer(cfg *config.AppConfig, build handlers.BuildInfo) (*Server, error) {
	if build.Version == "" {
		build.Version = cfg.App.Version
	}
	if build.Environment == "" {
		build.Environment = cfg.App.Environment
	}

	s := &Server{
		Config:  cfg,
		build:   build,
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}

	for _, proxy := range cfg.Server.TrustedProxies {
		network, err := config.ParseTrustedProxy(proxy)
		if err != nil {
			return nil, err
		}
		s.trustedProxies = append(s.trustedProxies, network)
	}

	if err := s.setupDatabase(); err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	if err := s.setupRedis(); err != nil {
		s.Db.Close()
		return nil, fmt.Errorf("failed to set up redis: %w", err)
	}

	if err := s.setupServices(); err != nil {
		s.closeClients()
		return nil, fmt.Errorf("failed to set up services: %w", err)
	}

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// setupDatabase connects to the configured database and migrates it.
func (s *Server) setupDatabase() error {
	db, err := database.Connect(s.Config)
	if err != nil {
		return err
	}
	s.Db = db

	ctx, cancel := context.WithTimeout(context.Background(), constants.MigrationTimeout)
	defer cancel()

	if err := migrations.NewMigrator(db).RunMigrations(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// setupRedis connects to redis when a configured backend needs it.
func (s *Server) setupRedis() error {
	needed := (s.Config.RateLimit.Enabled && s.Config.RateLimit.Backend == constants.RateLimitBackendRedis) ||
		s.Config.Notify.Backend == constants.NotifyBackendRedis
	if !needed {
		return nil
	}

	client, err := database.NewRedisClient(context.Background(), s.Config.Redis.URL)
	if err != nil {
		return err
	}
	s.redis = client
	return nil
}

// setupServices builds repositories, token machinery, services and
// handlers, and seeds the bootstrap administrator.
func (s *Server) setupServices() error {
	cfg := s.Config

	s.repos = repositories{
		users:       repository.NewUserRepository(s.Db),
		tokens:      repository.NewTokenRepository(s.Db),
		requestLogs: repository.NewRequestLogRepository(s.Db),
	}

	codec := auth.NewCodec(cfg.Tokens.Secret, cfg.Tokens.Issuer)
	issuer := auth.NewIssuer(codec, s.repos.tokens, &cfg.Tokens, auth.WithMetrics(s.metrics))
	s.verifier = auth.NewVerifier(codec, s.repos.tokens, auth.WithMetrics(s.metrics))
	hasher := auth.NewPasswordHasher(auth.ConfigFromAppConfig(cfg))

	seedCtx, cancel := context.WithTimeout(context.Background(), constants.MigrationTimeout)
	defer cancel()
	if err := scripts.NewSeeder(s.Db, hasher, cfg.Bootstrap).SeedDatabase(seedCtx); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	notifier, err := s.newNotifier()
	if err != nil {
		return err
	}

	if cfg.RateLimit.Enabled {
		if s.limiter, err = s.newLimiter(); err != nil {
			return err
		}
	}

	s.authService = service.NewAuthService(s.repos.users, s.repos.tokens, hasher, issuer, s.verifier, notifier, s.metrics)
	userService := service.NewUserService(s.repos.users, s.repos.tokens, hasher)
	s.reaper = service.NewReaper(s.repos.tokens, s.repos.requestLogs, cfg.Maintenance, s.metrics)

	s.Handlers = &Handlers{
		AuthHandler:   handlers.NewAuthHandler(s.authService),
		UserHandler:   handlers.NewUserHandler(userService),
		SystemHandler: handlers.NewSystemHandler(s.Db, s.build),
	}
	return nil
}

// newNotifier returns the configured delivery channel for reset and
// verification tokens.
func (s *Server) newNotifier() (notify.Notifier, error) {
	n := s.Config.Notify
	switch n.Backend {
	case constants.NotifyBackendRedis:
		return notify.NewRedisNotifier(s.redis, n.Channel), nil
	case constants.NotifyBackendSendGrid:
		return notify.NewSendGridNotifier(notify.SendGridConfig{
			APIKey:    n.SendGridAPIKey,
			Host:      n.SendGridHost,
			FromEmail: n.FromEmail,
			FromName:  n.FromName,
			ResetURL:  n.ResetURL,
			VerifyURL: n.VerifyURL,
		}), nil
	case constants.NotifyBackendLog, "":
		return notify.NewLogNotifier(), nil
	}
	return nil, fmt.Errorf("unsupported notify backend: %s", n.Backend)
}

// newLimiter returns the failure counter store for the auth routes.
func (s *Server) newLimiter() (ratelimit.Store, error) {
	rl := s.Config.RateLimit
	rate := ratelimit.Rate{Max: rl.MaxFailures, Window: rl.Window}

	if rl.Backend == constants.RateLimitBackendRedis {
		return ratelimit.NewRedisStore(s.redis, rate, constants.RateLimitRedisKeyPrefix), nil
	}
	store, err := ratelimit.NewMemoryStore(rate, rl.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return store, nil
}

// Start runs the HTTP server and the housekeeping schedule until ctx is
// cancelled, SIGINT or SIGTERM arrives, or the listener fails. It then shuts
// everything down within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.reaper.Start(s.Config.Maintenance.Schedule); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("address", s.httpServer.Addr).
			Str("version", s.build.Version).
			Msg("Starting server")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests, waits for in-flight ones, pending
// notifications and a running housekeeping pass, then releases the redis and
// database clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		err = fmt.Errorf("server shutdown error: %w", err)
	} else {
		log.Info().Msg("Server stopped gracefully")
	}

	if waitErr := s.authService.Wait(ctx); waitErr != nil {
		log.Warn().Err(waitErr).Msg("Notifications still pending at shutdown")
	}
	s.reaper.Stop(ctx)
	s.closeClients()
	return err
}

func (s *Server) closeClients() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	s.Db.Close()
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Reaper returns the housekeeping job.
func (s *Server) Reaper() *service.Reaper {
	return s.reaper
}
