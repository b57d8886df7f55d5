package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-sql/civil"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

const slotMinutes = 30

type booking struct {
	Date  string
	Start string
}

// DataPool tracks bookings this run believes it holds, so cancellations
// target appointments that exist.
type DataPool struct {
	mu       sync.Mutex
	bookings []booking
}

func (dp *DataPool) Add(b booking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

// Take removes and returns the booking at a position chosen by pick.
func (dp *DataPool) Take(pick func(n int) int) (booking, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.bookings) == 0 {
		return booking{}, false
	}
	i := pick(len(dp.bookings))
	b := dp.bookings[i]
	dp.bookings[i] = dp.bookings[len(dp.bookings)-1]
	dp.bookings = dp.bookings[:len(dp.bookings)-1]
	return b, true
}

func (dp *DataPool) Len() int {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return len(dp.bookings)
}

type Simulator struct {
	config   SimConfig
	client   *http.Client
	log      zerolog.Logger
	pool     *DataPool
	patients []appointment.Patient
	firstDay civil.Date
	metrics  Metrics

	verified bool
	listed   int
	overlaps [][2]string
}

func NewSimulator(cfg SimConfig, client *http.Client, logger zerolog.Logger) *Simulator {
	faker := gofakeit.New(cfg.Seed)
	patients := make([]appointment.Patient, 0, cfg.Patients)
	for i := 0; i < cfg.Patients; i++ {
		patients = append(patients, appointment.Patient{
			ID:   fmt.Sprintf("S%07dZ", i),
			Name: faker.Name(),
		})
	}
	first, _ := calendar.ParseDate(cfg.FirstDay)

	return &Simulator{
		config:   cfg,
		client:   client,
		log:      logger,
		pool:     &DataPool{},
		patients: patients,
		firstDay: first,
	}
}

func (s *Simulator) Run(ctx context.Context) {
	s.log.Info().Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Int("bookings_held", s.pool.Len()).Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := gofakeit.New(s.config.Seed + uint64(workerID) + 1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		case rng.Bool():
			s.doListRange(ctx)
		default:
			s.doFreeSlots(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *gofakeit.Faker) {
	slots := (s.config.Close - s.config.Open) / slotMinutes
	first := rng.Number(0, slots-1)
	length := rng.Number(1, 2)
	if first+length > slots {
		length = 1
	}
	date := s.firstDay.AddDays(rng.Number(0, s.config.Days-1)).String()
	start := clockString(s.config.Open + first*slotMinutes)
	end := clockString(s.config.Open + (first+length)*slotMinutes)
	patient := s.patients[rng.Number(0, len(s.patients)-1)]

	body, _ := json.Marshal(map[string]string{
		"patient_id":   patient.ID,
		"patient_name": patient.Name,
		"date":         date,
		"start":        start,
		"end":          end,
	})

	began := time.Now()
	status, err := s.send(ctx, http.MethodPost, "/appointments", bytes.NewReader(body))
	latency := time.Since(began)
	if ctx.Err() != nil {
		return
	}

	success := err == nil && status == http.StatusCreated
	if success {
		s.pool.Add(booking{Date: date, Start: start})
	}
	s.metrics.Booking.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *gofakeit.Faker) {
	b, ok := s.pool.Take(func(n int) int { return rng.Number(0, n-1) })
	if !ok {
		return
	}

	began := time.Now()
	status, err := s.send(ctx, http.MethodDelete,
		"/appointments/"+url.PathEscape(b.Date)+"/"+url.PathEscape(b.Start), nil)
	latency := time.Since(began)
	if ctx.Err() != nil {
		s.pool.Add(b)
		return
	}
	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListRange(ctx context.Context) {
	q := url.Values{
		"from": {s.firstDay.String()},
		"to":   {s.lastDay().String()},
	}

	began := time.Now()
	status, err := s.send(ctx, http.MethodGet, "/appointments?"+q.Encode(), nil)
	latency := time.Since(began)
	if ctx.Err() != nil {
		return
	}
	s.metrics.ListRange.Record(latency, err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doFreeSlots(ctx context.Context, rng *gofakeit.Faker) {
	day := s.firstDay.AddDays(rng.Number(0, s.config.Days-1)).String()
	q := url.Values{"from": {day}, "to": {day}}

	began := time.Now()
	status, err := s.send(ctx, http.MethodGet, "/appointments/free?"+q.Encode(), nil)
	latency := time.Since(began)
	if ctx.Err() != nil {
		return
	}
	s.metrics.FreeSlots.Record(latency, err == nil && status == http.StatusOK, false)
}

func (s *Simulator) send(ctx context.Context, method, path string, body io.Reader) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (s *Simulator) lastDay() civil.Date {
	return s.firstDay.AddDays(s.config.Days - 1)
}

type listedAppointment struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Verify lists everything booked in the simulated window and returns the
// pairs that overlap. Any pair means the server let a conflict through.
func (s *Simulator) Verify(ctx context.Context) ([][2]string, error) {
	q := url.Values{
		"from": {s.firstDay.String()},
		"to":   {s.lastDay().String()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointments?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list appointments: HTTP %d", resp.StatusCode)
	}

	var list []listedAppointment
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}

	s.verified = true
	s.listed = len(list)
	s.overlaps = findOverlaps(list)
	return s.overlaps, nil
}

// findOverlaps sorts by date and start, then compares each appointment to
// the one reaching furthest so far that day. HH:MM strings order correctly
// as text.
func findOverlaps(list []listedAppointment) [][2]string {
	sorted := make([]listedAppointment, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Start < sorted[j].Start
	})

	var out [][2]string
	var reach *listedAppointment
	for i := range sorted {
		cur := &sorted[i]
		if reach != nil && reach.Date == cur.Date && cur.Start < reach.End {
			out = append(out, [2]string{describe(*reach), describe(*cur)})
		}
		if reach == nil || reach.Date != cur.Date || cur.End > reach.End {
			reach = cur
		}
	}
	return out
}

func describe(a listedAppointment) string {
	return fmt.Sprintf("%s %s-%s %s", a.Date, a.Start, a.End, a.Title)
}

func clockString(minutes int) string {
	return calendar.FormatClock(civil.Time{Hour: minutes / 60, Minute: minutes % 60})
}
