package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
	"github.com/hackgods/clinic-scheduling/internal/stats"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(zerolog.NewConsoleWriter())
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build scheduling service")
	}

	var checks []api.Check
	var snaps snapshotStore

	if cfg.PersistenceEnabled() {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
			MaxConns:        cfg.PostgresMaxConns,
			ApplicationName: "clinic-api-server",
		})
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		logger.Info().Msg("connected to Postgres")

		repo := storage.NewPgRepository(pgPool)
		if err := repo.EnsureSchema(rootCtx); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
		if err := loadLatest(rootCtx, repo, svc); err != nil {
			logger.Fatal().Err(err).Msg("restore latest snapshot")
		}
		svc.SetJournal(repo)
		snaps = repo
		checks = append(checks, api.Check{Name: "postgres", Critical: true, Ping: pgPool.Ping})
	} else {
		logger.Warn().Msg("POSTGRES_DSN not set, state lives in memory only")
	}

	var locker redisclient.Locker = redisclient.LocalLocker{}
	if cfg.RedisEnabled {
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
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		logger.Info().Msg("connected to Redis")

		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		views := reminderViews(svc)
		go publishReminders(rootCtx, views, redisclient.NewReminderPublisher(rdb), logger)
		checks = append(checks, api.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	svc.ShowCurrentWeek(rootCtx)

	snapshotter := &snapshotter{svc: svc, store: snaps, locker: locker, log: logger, keep: 20}
	if snaps != nil {
		go snapshotter.run(rootCtx, cfg.SnapshotInterval)
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service: svc,
			Logger:  logger,
			Checks:  checks,
			Env:     cfg.Env,
			Version: version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if snaps != nil {
		snapshotter.saveOnce(shutdownCtx)
	}
}

func newService(cfg config.Config, logger zerolog.Logger) (*scheduling.Service, error) {
	open, err := calendar.ParseClock(cfg.BusinessOpen)
	if err != nil {
		return nil, err
	}
	closing, err := calendar.ParseClock(cfg.BusinessClose)
	if err != nil {
		return nil, err
	}
	epoch, err := stats.ParseMonth(cfg.StatsEpoch)
	if err != nil {
		return nil, err
	}

	return scheduling.NewService(scheduling.Options{
		Hours:           appointment.BusinessHours{Open: open, Close: closing},
		Location:        calendar.Location(cfg.Timezone),
		Epoch:           epoch,
		ConsultationFee: cfg.ConsultationFee,
		Logger:          logger,
	})
}

type viewPublisher interface {
	Publish(ctx context.Context, view []reminder.Reminder) error
}

// reminderViews subscribes to the service right away, so views set before
// the publisher goroutine runs are not lost. Only the newest pending view
// is kept.
func reminderViews(svc *scheduling.Service) <-chan []reminder.Reminder {
	views := make(chan []reminder.Reminder, 1)
	svc.SubscribeReminders(func(view []reminder.Reminder) {
		for {
			select {
			case views <- view:
				return
			default:
			}
			select {
			case <-views:
			default:
			}
		}
	})
	return views
}

// publishReminders forwards view changes to Redis off the service lock.
func publishReminders(ctx context.Context, views <-chan []reminder.Reminder, pub viewPublisher, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-views:
			if err := pub.Publish(ctx, view); err != nil {
				logger.Warn().Err(err).Msg("publish reminder view")
			}
		}
	}
}
