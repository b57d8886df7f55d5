package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
)

func fixedNow() time.Time {
	return time.Date(2019, time.October, 23, 8, 0, 0, 0, time.UTC)
}

func TestDigestDueToday(t *testing.T) {
	d := newDigest(fixedNow, zerolog.Nop())
	nine := civil.Time{Hour: 9}
	ten := civil.Time{Hour: 10}

	d.update(redisclient.ReminderMessage{
		PublishedAt: fixedNow(),
		Reminders: []reminder.Reminder{
			{Title: "Order gloves", Date: civil.Date{Year: 2019, Month: time.October, Day: 23}},
			reminder.Timed("Appointment: Tan (S1)", "", civil.Date{Year: 2019, Month: time.October, Day: 23}, nine, ten, reminder.Source{Kind: reminder.SourceAppointment}),
			{Title: "Tomorrow", Date: civil.Date{Year: 2019, Month: time.October, Day: 24}},
		},
	})

	due := d.due()
	require.Len(t, due, 2)
	assert.Equal(t, "Order gloves", due[0].Title)
	assert.Equal(t, "Appointment: Tan (S1)", due[1].Title)
}

func TestDigestIgnoresOlderView(t *testing.T) {
	d := newDigest(fixedNow, zerolog.Nop())
	today := civil.Date{Year: 2019, Month: time.October, Day: 23}

	d.update(redisclient.ReminderMessage{PublishedAt: fixedNow(), Reminders: []reminder.Reminder{{Title: "new", Date: today}}})
	d.update(redisclient.ReminderMessage{PublishedAt: fixedNow().Add(-time.Minute), Reminders: []reminder.Reminder{{Title: "old", Date: today}}})

	due := d.due()
	require.Len(t, due, 1)
	assert.Equal(t, "new", due[0].Title)
}

func TestDigestRunOnceLogs(t *testing.T) {
	var buf bytes.Buffer
	d := newDigest(fixedNow, zerolog.New(&buf))

	d.runOnce()
	assert.Contains(t, buf.String(), "no reminder view received yet")

	buf.Reset()
	d.update(redisclient.ReminderMessage{
		PublishedAt: fixedNow(),
		Reminders:   []reminder.Reminder{{Title: "Order gloves", Date: civil.Date{Year: 2019, Month: time.October, Day: 23}}},
	})
	d.runOnce()
	assert.Contains(t, buf.String(), `"due_today":1`)
	assert.Contains(t, buf.String(), `"title":"Order gloves"`)
}
