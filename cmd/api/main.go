package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"classsight/internal/api"
	"classsight/internal/attendance"
	"classsight/internal/auth"
	"classsight/internal/config"
	"classsight/internal/httpmiddleware"
	"classsight/internal/logger"
	"classsight/internal/queue"
	"classsight/internal/schedule"
	"classsight/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg config.App) error {
	log := logger.Get()
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	resolver := schedule.NewResolver(schedule.SystemClock, loc)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	events, queueHealth, closeQueue, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	var issuer *auth.Issuer
	if cfg.JWTSigningKey != "" {
		issuer = auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.CamAuthRequired && issuer == nil {
		return errors.New("CAM_AUTH_REQUIRED needs JWT_SIGNING_KEY")
	}

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep(sweepCtx, limiter)

	svc := attendance.NewService(st, resolver, events)
	h := api.NewHandler(svc, issuer, cfg.CamEnrollKey, queueHealth, log)
	r := api.NewRouter(h, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		CamAuth:     cfg.CamAuthRequired,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("db_driver", cfg.DBDriver).Str("queue", cfg.QueueBackend).
			Str("timezone", loc.String()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

// openStore picks the attendance store for DB_DRIVER. An unreachable
// database is logged and left for /healthz to report.
func openStore(ctx context.Context, cfg config.App) (attendance.Store, func(), error) {
	log := logger.Get()
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return attendance.NewMemoryStore(), func() {}, nil
	}

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL, store.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if db == nil {
		return nil, nil, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("db not reachable")
	} else if cfg.DBAutoMigrate {
		if err := store.CreateSchema(ctx, db); err != nil {
			return nil, nil, err
		}
		log.Info().Msg("schema ensured")
	}
	return attendance.NewRepository(db.Client, db.Dialect), func() { _ = db.Close() }, nil
}

// openQueue picks the camera event publisher for QUEUE_BACKEND.
func openQueue(cfg config.App) (queue.Publisher, api.HealthCheck, func(), error) {
	switch cfg.QueueBackend {
	case "redis":
		rdb, err := store.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		return queue.NewRedisQueue(rdb.Client, cfg.CamEventsKey), rdb.Ping, func() { _ = rdb.Close() }, nil
	case "memory":
		q := queue.NewInMemory(256)
		go drain(q)
		return q, nil, func() {}, nil
	case "none", "":
		return queue.Discard{}, nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
}

// drain logs events from the in-process queue so it never fills up.
func drain(q *queue.InMemory) {
	log := logger.Get()
	for msg := range q.Messages() {
		log.Debug().Str("type", msg.Type).RawJSON("body", msg.Body).Msg("cam event")
	}
}

func sweep(ctx context.Context, limiter *httpmiddleware.TokenBucket) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			limiter.Sweep(10 * time.Minute)
		}
	}
}
