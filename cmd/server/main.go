package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/decept/internal/adapter/httpserver"
	"github.com/pscheid92/decept/internal/adapter/memory"
	"github.com/pscheid92/decept/internal/adapter/metrics"
	"github.com/pscheid92/decept/internal/adapter/moderation"
	"github.com/pscheid92/decept/internal/adapter/platform"
	"github.com/pscheid92/decept/internal/adapter/redis"
	"github.com/pscheid92/decept/internal/app"
	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/config"
	"github.com/pscheid92/decept/internal/platform/logging"
	"github.com/pscheid92/decept/internal/platform/version"
)

const (
	shutdownTimeout   = 10 * time.Second
	publisherTimeout  = 10 * time.Second
	sweepLeaderName   = "reveal-sweep"
	localPostURLRoute = "/api/post/"
)

// backend is the storage side of the service: either Redis or the in-memory store.
type backend struct {
	stores       app.Stores
	events       *redis.EventPublisher
	leader       app.Leader
	healthChecks []httpserver.HealthCheck
	close        func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, clock clockwork.Clock, reg prometheus.Registerer) backend {
	redisMetrics := metrics.NewRedisMetrics(reg)
	breaker := redis.NewCircuitBreakerHook(redisMetrics)

	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(redisMetrics), breaker)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	var leader app.Leader
	if cfg.SweepInterval > 0 {
		instanceID := uuid.NewString()
		leader = redis.NewLeaderElection(client, instanceID, sweepLeaderName, 2*cfg.SweepInterval)
		slog.Info("Sweep leader election enabled", "instance_id", instanceID)
	}

	return backend{
		stores: app.Stores{
			Posts:  redis.NewPostStore(client),
			Votes:  redis.NewVoteLedger(client, clock),
			Limits: redis.NewRateLimiter(client, clock),
			Stats:  redis.NewStatsStore(client),
		},
		events: redis.NewEventPublisher(client),
		leader: leader,
		healthChecks: []httpserver.HealthCheck{
			{Name: "redis", Check: func(ctx context.Context) error { return client.Ping(ctx).Err() }},
			{Name: "redis_circuit", Check: func(context.Context) error {
				if breaker.State() == circuitbreaker.OpenState {
					return errors.New("redis circuit breaker is open")
				}
				return nil
			}},
		},
		close: func() { _ = client.Close() },
	}
}

func setupMemory(clock clockwork.Clock) backend {
	slog.Warn("Using the in-memory store; state is lost on restart and not shared between instances")
	store := memory.NewStore(clock)
	return backend{
		stores: app.Stores{Posts: store, Votes: store, Limits: store, Stats: store},
		close:  func() {},
	}
}

func setupPublisher(cfg *config.Config) domain.PostPublisher {
	if cfg.PlatformAPIURL == "" {
		slog.Info("PLATFORM_API_URL not set, minting post IDs locally")
		return platform.NewLocalPublisher("http://localhost:" + cfg.Port + localPostURLRoute)
	}
	return platform.NewClient(cfg.PlatformAPIURL, cfg.PlatformAPIToken, publisherTimeout)
}

func rulesFromConfig(cfg *config.Config) app.Rules {
	return app.Rules{
		VoteThreshold:   int64(cfg.VoteThreshold),
		RevealAfter:     cfg.RevealAfter,
		MaxPostsPerDay:  cfg.MaxPostsPerDay,
		MaxVotesPerDay:  cfg.MaxVotesPerDay,
		StatementMinLen: cfg.StatementMinLen,
		StatementMaxLen: cfg.StatementMaxLen,
		PostTitle:       cfg.PostTitle,
	}
}

// logRevealedPosts follows the reveal event channel so every instance's log
// shows reveals, including the ones another instance performed.
func logRevealedPosts(ctx context.Context, events *redis.EventPublisher) error {
	revealed, err := events.SubscribeRevealed(ctx)
	if err != nil {
		return err
	}
	for event := range revealed {
		slog.Info("Reveal event received",
			"post_id", event.PostID,
			"trigger", event.Trigger,
			"total_votes", event.TotalVotes,
			"liar_score", event.LiarScore,
		)
	}
	return nil
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreBackend, "version", version.Get().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	var be backend
	if cfg.StoreBackend == config.StoreBackendMemory {
		be = setupMemory(clock)
	} else {
		be = setupRedis(ctx, cfg, clock, reg)
	}
	defer be.close()

	gameMetrics := metrics.NewGameMetrics(reg)
	rules := rulesFromConfig(cfg)

	// Pass nil explicitly to avoid a typed-nil interface
	var events domain.EventPublisher
	if be.events != nil {
		events = be.events
	}
	revealer := app.NewRevealer(be.stores, events, clock, gameMetrics)
	game := app.NewGame(be.stores, moderation.NewFilter(), setupPublisher(cfg), revealer, clock, rules, gameMetrics)
	sweeper := app.NewSweeper(be.stores.Posts, revealer, be.leader, clock, app.SweepConfig{
		RevealAfter: cfg.RevealAfter,
		BatchSize:   cfg.SweepBatchSize,
		Timeout:     cfg.SweepTimeout,
		Interval:    cfg.SweepInterval,
	}, gameMetrics)

	srv := httpserver.NewServer(cfg, game, sweeper, httpserver.Observability{
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
	}, be.healthChecks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SweepInterval > 0 {
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	} else {
		slog.Info("In-process sweeper disabled, relying on /internal/jobs/reveal-expired")
	}

	if be.events != nil {
		g.Go(func() error {
			if err := logRevealedPosts(gctx, be.events); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Reveal event subscription ended", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
