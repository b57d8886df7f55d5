package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
	"github.com/hackgods/clinic-scheduling/internal/inventory"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
	"github.com/hackgods/clinic-scheduling/internal/stats"
)

func addAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddAppointmentRequest
		if !decode(w, r, &req) {
			return
		}

		date, err := calendar.ParseDate(req.Date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		start, err := calendar.ParseClock(req.Start)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		end, err := calendar.ParseClock(req.End)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		a, err := appointment.New(appointment.Patient{ID: req.PatientID, Name: req.PatientName}, date, start, end, req.Comment)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		added, rem, err := svc.AddAppointment(r.Context(), a)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AddAppointmentResponse{
			Appointment: toAppointmentResponse(added),
			Reminder:    toReminderResponse(rem),
		})
	}
}

// listAppointmentsHandler serves either ?patient_id= or ?from=&to=; to
// defaults to from.
func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var list []appointment.Appointment
		if patientID := strings.TrimSpace(q.Get("patient_id")); patientID != "" {
			list = svc.ListAppointmentsByPatient(r.Context(), patientID)
		} else {
			from, to, err := dateRange(q.Get("from"), q.Get("to"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if list, err = svc.ListAppointments(r.Context(), from, to); err != nil {
				writeServiceError(w, err)
				return
			}
		}

		if wantsText(r) {
			writeText(w, appointment.Summarize(list))
			return
		}
		out := make([]AppointmentResponse, 0, len(list))
		for _, a := range list {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func freeSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := dateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		slots, err := svc.FreeSlots(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if wantsText(r) {
			writeText(w, appointment.FormatSlots(slots))
			return
		}
		out := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, SlotResponse{
				Date:  s.Date.String(),
				Start: calendar.FormatClock(s.Start),
				End:   calendar.FormatClock(s.End),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := calendar.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		start, err := calendar.ParseClock(chi.URLParam(r, "start"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		deleted, err := svc.DeleteAppointment(r.Context(), date, start)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(deleted))
	}
}

func listRemindersHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := dateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		list, err := svc.ListReminders(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponses(list))
	}
}

func addReminderHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReminderRequest
		if !decode(w, r, &req) {
			return
		}

		date, err := calendar.ParseDate(req.Date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rem := reminder.Reminder{Title: strings.TrimSpace(req.Title), Comment: req.Comment, Date: date}
		if req.Start != "" || req.End != "" {
			start, err := calendar.ParseClock(req.Start)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			end, err := calendar.ParseClock(req.End)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			rem.Start, rem.End = &start, &end
		}

		stored, err := svc.AddReminder(r.Context(), rem)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toReminderResponse(stored))
	}
}

func deleteReminderHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "id must be a valid UUID")
			return
		}

		deleted, err := svc.DeleteReminder(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(deleted))
	}
}

func currentViewHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toReminderResponses(svc.CurrentReminders(r.Context())))
	}
}

// setViewHandler switches the reminder view. An empty body shows the
// current week.
func setViewHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetViewRequest
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}

		format, err := reminder.ParseFormat(req.Format)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		date := svc.Today()
		if req.Date != "" {
			if date, err = calendar.ParseDate(req.Date); err != nil {
				writeServiceError(w, err)
				return
			}
		}

		writeJSON(w, http.StatusOK, toViewResponse(svc.SetReminderView(r.Context(), format, date)))
	}
}

func addDirectoryHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DirectoryRequest
		if !decode(w, r, &req) {
			return
		}
		dir, err := svc.AddDirectory(r.Context(), parentPath(req.Parent), req.Name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, dir)
	}
}

func directoryThresholdHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ThresholdRequest
		if !decode(w, r, &req) {
			return
		}
		touched, err := svc.SetDirectoryThreshold(r.Context(), parentPath(req.Path), req.Threshold)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"medicines_updated": touched})
	}
}

func listMedicinesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListMedicines(r.Context()))
	}
}

func addMedicineHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MedicineRequest
		if !decode(w, r, &req) {
			return
		}
		med, err := svc.AddMedicine(r.Context(), parentPath(req.Parent), req.Name, req.Quantity, req.Price)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, med)
	}
}

func purchaseMedicineHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PurchaseRequest
		if !decode(w, r, &req) {
			return
		}
		med, rec, err := svc.PurchaseMedicine(r.Context(), inventory.ParsePath(req.Path), req.Quantity, req.Cost)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PurchaseResponse{Medicine: med, Record: toRecordResponse(rec)})
	}
}

func medicineThresholdHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ThresholdRequest
		if !decode(w, r, &req) {
			return
		}
		med, err := svc.SetMedicineThreshold(r.Context(), inventory.ParsePath(req.Path), req.Threshold)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, med)
	}
}

func consultHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConsultationRequest
		if !decode(w, r, &req) {
			return
		}

		c := scheduling.Consultation{
			Patient:     appointment.Patient{ID: strings.TrimSpace(req.PatientID), Name: req.PatientName},
			Description: req.Description,
		}
		for _, p := range req.Prescriptions {
			c.Prescriptions = append(c.Prescriptions, scheduling.Prescription{
				Medicine: inventory.ParsePath(p.Medicine),
				Quantity: p.Quantity,
			})
		}

		rec, err := svc.Consult(r.Context(), c)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

func statisticsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := stats.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), svc.Epoch())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		s, err := svc.Statistics(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if wantsText(r) {
			writeText(w, s.String())
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func consultationFeeHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FeeRequest
		if !decode(w, r, &req) {
			return
		}
		if err := svc.SetConsultationFee(r.Context(), req.Fee); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, FeeRequest{Fee: svc.ConsultationFee()})
	}
}

func toRecordResponse(rec stats.Record) RecordResponse {
	return RecordResponse{Kind: string(rec.Kind), Amount: rec.Amount, At: rec.At}
}

func dateRange(fromRaw, toRaw string) (civil.Date, civil.Date, error) {
	from, err := calendar.ParseDate(fromRaw)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	if toRaw == "" {
		return from, from, nil
	}
	to, err := calendar.ParseDate(toRaw)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	return from, to, nil
}

// parentPath defaults an empty parent to the root directory.
func parentPath(raw string) []string {
	if p := inventory.ParsePath(raw); len(p) > 0 {
		return p
	}
	return []string{inventory.RootName}
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, clinicerr.ErrValidation), errors.Is(err, clinicerr.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, clinicerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, clinicerr.ErrConflict), errors.Is(err, clinicerr.ErrDuplicate):
		status = http.StatusConflict
	}
	writeError(w, status, clinicerr.Code(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body + "\n"))
}
