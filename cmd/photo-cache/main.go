package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/photo-cache/internal/config"
	"github.com/Sternrassler/photo-cache/pkg/cache"
	"github.com/Sternrassler/photo-cache/pkg/logging"
	"github.com/Sternrassler/photo-cache/pkg/metrics"
	"github.com/Sternrassler/photo-cache/pkg/origin"
	"github.com/Sternrassler/photo-cache/pkg/photos"
	"github.com/Sternrassler/photo-cache/pkg/warmup"
)

const (
	redisConnectTimeout = 5 * time.Second
	readyTimeout        = 2 * time.Second
	shutdownTimeout     = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("photo-cache failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.LoggingConfig()).With().Str("component", "server").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storePinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Runs before closeStore: a running warmup is cancelled and awaited.
	var warmupDone sync.WaitGroup
	defer func() {
		stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if !waitWithContext(waitCtx, &warmupDone) {
			logger.Warn().Msg("Cache warmup still running at shutdown")
		}
	}()

	aside := cache.NewAside(store,
		cache.WithLogger(logging.NewLogger("cache")),
		cache.WithPolicy(cfg.CachePolicy()),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithWriteTimeout(cfg.Cache.WriteTimeout),
		cache.WithSingleFlight(cfg.Cache.SingleFlight),
	)

	originClient, err := origin.New(cfg.OriginClientConfig())
	if err != nil {
		return fmt.Errorf("create origin client: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(logger, aside, originClient, storePinger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Cache.Backend).
			Str("origin", cfg.Origin.BaseURL).
			Str("user_agent", cfg.Origin.UserAgent).
			Msg("Starting photo cache server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.Warmup.Albums > 0 {
		warmupDone.Add(1)
		go func() {
			defer warmupDone.Done()
			wcfg := warmup.DefaultConfig()
			wcfg.Concurrency = cfg.Warmup.Concurrency
			report := warmup.New(aside, originClient, wcfg).WarmAlbums(ctx, cfg.Warmup.Albums)
			if err := report.Err(); err != nil {
				logger.Warn().Err(err).Msg("Cache warmup incomplete")
			}
		}()
	}

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// waitWithContext waits for wg until ctx ends. It reports whether wg finished.
func waitWithContext(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// pinger reports whether the store is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

// openStore creates the configured store. Redis is a hard dependency: an
// unreachable server at startup is an error.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, pinger, func(), error) {
	if cfg.Cache.Backend == config.BackendMemory {
		return cache.NewMemoryStore(), nil, func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Connected to Redis")

	store := cache.NewRedisStore(redisClient)
	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	return store, store, closeFn, nil
}

func newRouter(logger zerolog.Logger, aside *cache.Aside, o photos.Origin, p pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(p))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	photos.NewHandler(aside, o, photos.WithLogger(logging.NewLogger("photos"))).Register(r)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the store is unreachable. A nil pinger is
// always ready.
func readyHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()

			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("Readiness check failed")
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}
