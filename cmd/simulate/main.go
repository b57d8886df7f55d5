package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Patients     int
	Days         int
	Seed         uint64
	Open         int // minutes after midnight
	Close        int
	FirstDay     string
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		zerolog.New(zerolog.NewConsoleWriter()).Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel)

	cfg, err := loadConfig(baseCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid simulator config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	sim := NewSimulator(cfg, &http.Client{Timeout: 10 * time.Second}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	sim.Run(ctx)

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()
	overlaps, err := sim.Verify(verifyCtx)

	sim.PrintReport(os.Stdout)

	if err != nil {
		logger.Fatal().Err(err).Msg("verify schedule")
	}
	if len(overlaps) > 0 {
		for _, o := range overlaps {
			logger.Error().Str("first", o[0]).Str("second", o[1]).Msg("overlapping appointments")
		}
		os.Exit(1)
	}
}

func loadConfig(base config.Config) (SimConfig, error) {
	open, err := calendar.ParseClock(base.BusinessOpen)
	if err != nil {
		return SimConfig{}, err
	}
	closing, err := calendar.ParseClock(base.BusinessClose)
	if err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		Patients:     getInt("SIM_PATIENTS", 200),
		Days:         getInt("SIM_DAYS", 5),
		Seed:         uint64(getInt("SIM_SEED", int(time.Now().UnixNano()%1_000_000))),
		Open:         open.Hour*60 + open.Minute,
		Close:        closing.Hour*60 + closing.Minute,
		FirstDay:     getEnv("SIM_FIRST_DAY", calendar.Today(time.Now(), calendar.Location(base.Timezone)).AddDays(1).String()),
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg, validateConfig(cfg)
}

func validateConfig(cfg SimConfig) error {
	switch {
	case cfg.Workers <= 0:
		return fmt.Errorf("SIM_WORKERS must be > 0")
	case cfg.Duration <= 0:
		return fmt.Errorf("SIM_DURATION must be > 0")
	case cfg.Days <= 0:
		return fmt.Errorf("SIM_DAYS must be > 0")
	case cfg.Patients <= 0:
		return fmt.Errorf("SIM_PATIENTS must be > 0")
	case cfg.Close-cfg.Open < slotMinutes:
		return fmt.Errorf("business hours leave no room for a %d minute booking", slotMinutes)
	}
	if _, err := calendar.ParseDate(cfg.FirstDay); err != nil {
		return fmt.Errorf("SIM_FIRST_DAY: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
