package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(zerolog.NewConsoleWriter())
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.DigestInterval).Msg("reminder-worker starting up")

	if !cfg.RedisEnabled {
		logger.Fatal().Msg("reminder-worker needs REDIS_ENABLED=true")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	loc := calendar.Location(cfg.Timezone)
	d := newDigest(func() time.Time { return time.Now().In(loc) }, logger)

	go func() {
		err := redisclient.SubscribeReminders(rootCtx, rdb, d.update, func(err error) {
			logger.Warn().Err(err).Msg("skipping reminder message")
		})
		if err != nil {
			logger.Error().Err(err).Msg("reminder subscription ended")
			stop()
		}
	}()

	ticker := time.NewTicker(cfg.DigestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reminder-worker")
			return
		case <-ticker.C:
			d.runOnce()
		}
	}
}
