package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olyamironova/limitbook/internal/adapter/breaker"
	"github.com/olyamironova/limitbook/internal/adapter/cache"
	"github.com/olyamironova/limitbook/internal/adapter/in_memory"
	"github.com/olyamironova/limitbook/internal/adapter/pg"
	grpcapi "github.com/olyamironova/limitbook/internal/api/grpc"
	httpapi "github.com/olyamironova/limitbook/internal/api/http"
	"github.com/olyamironova/limitbook/internal/config"
	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/loadgen"
	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/olyamironova/limitbook/internal/metrics"
	"github.com/olyamironova/limitbook/internal/middleware"
	"github.com/olyamironova/limitbook/internal/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	// executions kept when no database is configured
	memoryJournalSize = 10_000
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "limitbook:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load("limitbook")
	if err != nil {
		return err
	}
	logger.Init(cfg.Name, cfg.Log.Level)
	defer logger.Sync()
	metrics.MustRegister()

	config.Watch(v, func(next *config.Config) {
		if err := logger.SetLevel(next.Log.Level); err != nil {
			logger.Warn(ctx, "ignoring log level", zap.String("level", next.Log.Level), zap.Error(err))
			return
		}
		logger.Info(ctx, "config reloaded", zap.String("log_level", logger.Level()))
	}, func(err error) {
		logger.Warn(ctx, "config reload rejected", zap.Error(err))
	})

	rule := breaker.Rule{Failures: cfg.Breaker.Failures, Timeout: cfg.Breaker.Timeout}

	journal, closeJournal, err := newJournal(ctx, cfg, rule)
	if err != nil {
		return err
	}
	defer closeJournal()

	publisher, closePublisher, err := newPublisher(ctx, cfg, rule)
	if err != nil {
		return err
	}
	defer closePublisher()

	eng := core.NewEngine(journal, publisher,
		core.WithPublishDepth(cfg.Book.Depth),
		core.WithSinkTimeout(cfg.Sink.Timeout),
	)
	if cfg.Book.SeedDemo {
		if err := eng.Seed(ctx, core.DemoBook); err != nil {
			return fmt.Errorf("seed demo book: %w", err)
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
		limiter.StartJanitor(ctx, time.Minute)
	}

	httpSrv := httpapi.NewHTTPServer(eng, httpapi.Options{
		Depth:     cfg.Book.Depth,
		MaxDepth:  cfg.Book.MaxDepth,
		Limiter:   limiter,
		Generator: loadgen.NewRandom(),
	})
	grpcSrv := grpcapi.NewServer(grpcapi.NewGRPCServer(eng, cfg.Book.Depth, cfg.Book.MaxDepth), limiter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(cfg.HTTP.Addr) })
	if cfg.GRPC.Addr != "" {
		g.Go(func() error { return grpcSrv.Run(cfg.GRPC.Addr) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.Shutdown(sctx)
		return httpSrv.Shutdown(sctx)
	})

	logger.Info(ctx, "limitbook started",
		zap.String("http", cfg.HTTP.Addr),
		zap.String("grpc", cfg.GRPC.Addr),
		zap.Bool("journal_pg", cfg.Postgres.DSN != ""),
		zap.Bool("publisher_redis", cfg.Redis.Addr != ""),
	)
	return g.Wait()
}

// newJournal returns the PostgreSQL journal behind a breaker when a DSN is
// configured, otherwise an in-memory one.
func newJournal(ctx context.Context, cfg *config.Config, rule breaker.Rule) (port.Journal, func(), error) {
	if cfg.Postgres.DSN == "" {
		return in_memory.NewBoundedJournal(memoryJournalSize), func() {}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	j, err := pg.NewJournal(cctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := j.EnsureSchema(cctx); err != nil {
		j.Close()
		return nil, nil, err
	}
	logger.Info(ctx, "postgres journal ready")
	return breaker.NewJournal(j, rule), j.Close, nil
}

// newPublisher returns the Redis publisher behind a breaker when an address
// is configured. Without one the book is not published.
func newPublisher(ctx context.Context, cfg *config.Config, rule breaker.Rule) (port.Publisher, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pub := cache.NewRedisPublisher(client, cfg.Redis.Channel, cfg.Redis.TTL)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pub.Ping(cctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info(ctx, "redis publisher ready", zap.String("channel", cfg.Redis.Channel))
	return breaker.NewPublisher(pub, rule), func() { _ = client.Close() }, nil
}
