package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
	"github.com/hackgods/clinic-scheduling/internal/stats"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(zerolog.NewConsoleWriter()).Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Msg("seed starting")

	if !cfg.PersistenceEnabled() {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	open, err := calendar.ParseClock(cfg.BusinessOpen)
	if err != nil {
		logger.Fatal().Err(err).Msg("BUSINESS_OPEN")
	}
	closing, err := calendar.ParseClock(cfg.BusinessClose)
	if err != nil {
		logger.Fatal().Err(err).Msg("BUSINESS_CLOSE")
	}
	epoch, err := stats.ParseMonth(cfg.StatsEpoch)
	if err != nil {
		logger.Fatal().Err(err).Msg("STATS_EPOCH")
	}

	plan := seedPlan{
		Seed:     uint64(getInt("SEED_VALUE", int(time.Now().UnixNano()%1_000_000))),
		Patients: getInt("SEED_PATIENTS", 60),
		Days:     getInt("SEED_DAYS", 14),
		PerDay:   getInt("SEED_APPOINTMENTS_PER_DAY", 6),
		Months:   getInt("SEED_MONTHS", 6),
		Hours:    appointment.BusinessHours{Open: open, Close: closing},
	}

	clock := &movableClock{at: time.Now()}
	svc, err := scheduling.NewService(scheduling.Options{
		Hours:           plan.Hours,
		Location:        calendar.Location(cfg.Timezone),
		Epoch:           epoch,
		ConsultationFee: cfg.ConsultationFee,
		Clock:           clock,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build scheduling service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := newSeeder(svc, clock, plan, logger).run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed data")
	}

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns:        1,
		ApplicationName: "clinic-seed",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	repo := storage.NewPgRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("postgres schema")
	}
	payload, err := json.Marshal(svc.Snapshot(ctx))
	if err != nil {
		logger.Fatal().Err(err).Msg("encode snapshot")
	}
	id, err := repo.SaveSnapshot(ctx, payload)
	if err != nil {
		logger.Fatal().Err(err).Msg("save snapshot")
	}

	logger.Info().
		Int64("snapshot_id", id).
		Int("appointments", summary.Appointments).
		Int("conflicts_skipped", summary.Conflicts).
		Int("medicines", summary.Medicines).
		Int("purchases", summary.Purchases).
		Int("consultations", summary.Consultations).
		Msg("seed complete")
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
