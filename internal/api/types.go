package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type AddAppointmentRequest struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Comment     string `json:"comment"`
}

type AppointmentResponse struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Comment     string `json:"comment,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		PatientID:   a.Patient.ID,
		PatientName: a.Patient.Name,
		Title:       a.Title(),
		Date:        a.Date.String(),
		Start:       calendar.FormatClock(a.Start),
		End:         calendar.FormatClock(a.End),
		Comment:     a.Comment,
	}
}

type AddAppointmentResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Reminder    ReminderResponse    `json:"reminder"`
}

type SlotResponse struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReminderRequest struct {
	Title   string `json:"title"`
	Comment string `json:"comment"`
	Date    string `json:"date"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

type ReminderResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Comment string `json:"comment,omitempty"`
	Date    string `json:"date"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Source  string `json:"source"`
	Ref     string `json:"ref,omitempty"`
}

func toReminderResponse(r reminder.Reminder) ReminderResponse {
	resp := ReminderResponse{
		ID:      r.ID.String(),
		Title:   r.Title,
		Comment: r.Comment,
		Date:    r.Date.String(),
		Source:  string(r.Source.Kind),
		Ref:     r.Source.Key,
	}
	if r.Start != nil && r.End != nil {
		resp.Start = calendar.FormatClock(*r.Start)
		resp.End = calendar.FormatClock(*r.End)
	}
	return resp
}

func toReminderResponses(list []reminder.Reminder) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toReminderResponse(r))
	}
	return out
}

type SetViewRequest struct {
	Format string `json:"format"`
	Date   string `json:"date"`
}

type ViewResponse struct {
	From      string             `json:"from"`
	To        string             `json:"to"`
	Reminders []ReminderResponse `json:"reminders"`
}

func toViewResponse(v scheduling.View) ViewResponse {
	return ViewResponse{
		From:      v.From.String(),
		To:        v.To.String(),
		Reminders: toReminderResponses(v.Reminders),
	}
}

// Paths in requests use the backslash form, e.g. root\painkillers.
type DirectoryRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
}

type ThresholdRequest struct {
	Path      string `json:"path"`
	Threshold int    `json:"threshold"`
}

type MedicineRequest struct {
	Parent   string          `json:"parent"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type PurchaseRequest struct {
	Path     string          `json:"path"`
	Quantity int             `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

type PrescriptionRequest struct {
	Medicine string `json:"medicine"`
	Quantity int    `json:"quantity"`
}

type ConsultationRequest struct {
	PatientID     string                `json:"patient_id"`
	PatientName   string                `json:"patient_name"`
	Description   string                `json:"description"`
	Prescriptions []PrescriptionRequest `json:"prescriptions"`
}

type RecordResponse struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

type PurchaseResponse struct {
	Medicine scheduling.MedicineView `json:"medicine"`
	Record   RecordResponse          `json:"record"`
}

type FeeRequest struct {
	Fee decimal.Decimal `json:"fee"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
