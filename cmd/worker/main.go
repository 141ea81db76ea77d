package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"classattend/internal/attendance"
	"classattend/internal/cache"
	"classattend/internal/config"
	"classattend/internal/logging"
	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/store"
	"classattend/internal/worker"
)

// Worker consumes commit events and keeps the read cache warm.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	if cfg.StoreBackend == "memory" || cfg.QueueBackend == "memory" {
		logger.Fatal().Msg("worker needs the sql store and the redis queue")
	}

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
	}

	repo := attendance.NewRepository(db.Client)
	cached := cache.New(repo, redisClient.Client, cfg.CacheTTL, logger)
	svc := attendance.NewService(cached, roster.NewRepository(db.Client), logger)
	w := worker.NewWarmer(svc, repo, logger)

	sched, err := w.Schedule(ctx, cfg.WarmSchedule)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if err := w.Run(ctx, queue.NewRedisQueue(redisClient.Client, "")); err != nil {
		logger.Error().Err(err).Msg("worker failed")
	}
}
