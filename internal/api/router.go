package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	Logger  zerolog.Logger
	Checks  []Check
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Env, cfg.Version, cfg.Checks...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler())

	svc := cfg.Service

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", addAppointmentHandler(svc))
		r.Get("/", listAppointmentsHandler(svc))
		r.Get("/free", freeSlotsHandler(svc))
		r.Delete("/{date}/{start}", deleteAppointmentHandler(svc))
	})

	r.Route("/reminders", func(r chi.Router) {
		r.Get("/", listRemindersHandler(svc))
		r.Post("/", addReminderHandler(svc))
		r.Get("/view", currentViewHandler(svc))
		r.Put("/view", setViewHandler(svc))
		r.Delete("/{id}", deleteReminderHandler(svc))
	})

	r.Post("/directories", addDirectoryHandler(svc))
	r.Put("/directories/threshold", directoryThresholdHandler(svc))

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", listMedicinesHandler(svc))
		r.Post("/", addMedicineHandler(svc))
		r.Post("/purchase", purchaseMedicineHandler(svc))
		r.Put("/threshold", medicineThresholdHandler(svc))
	})

	r.Post("/consultations", consultHandler(svc))

	r.Get("/statistics", statisticsHandler(svc))
	r.Put("/statistics/consultation-fee", consultationFeeHandler(svc))

	return r
}
