package main

import (
	"sync"
	"time"

	"github.com/golang-sql/civil"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
)

// digest keeps the most recent reminder view published by the api-server
// and reports the reminders that fall due today.
type digest struct {
	mu       sync.Mutex
	latest   redisclient.ReminderMessage
	received bool

	now func() time.Time
	log zerolog.Logger
}

func newDigest(now func() time.Time, logger zerolog.Logger) *digest {
	return &digest{now: now, log: logger}
}

func (d *digest) update(m redisclient.ReminderMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.received && m.PublishedAt.Before(d.latest.PublishedAt) {
		return
	}
	d.latest = m
	d.received = true
	d.log.Debug().Int("reminders", len(m.Reminders)).Time("published_at", m.PublishedAt).Msg("reminder view updated")
}

// due returns today's reminders from the latest view, in view order.
func (d *digest) due() []reminder.Reminder {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	today := civil.DateOf(now)
	var out []reminder.Reminder
	for _, r := range d.latest.Reminders {
		if r.Date == today {
			out = append(out, r)
		}
	}
	return out
}

func (d *digest) runOnce() {
	d.mu.Lock()
	received := d.received
	d.mu.Unlock()
	if !received {
		d.log.Info().Msg("no reminder view received yet")
		return
	}

	due := d.due()
	d.log.Info().Int("due_today", len(due)).Msg("reminder digest")
	for _, r := range due {
		ev := d.log.Info().Str("title", r.Title).Str("source", string(r.Source.Kind))
		if r.Start != nil {
			ev = ev.Str("start", calendar.FormatClock(*r.Start))
		}
		ev.Msg("reminder due")
	}
}
