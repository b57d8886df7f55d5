package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-sql/civil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/reminder"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockReleasesAfterRun(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)

	ran := false
	err := locker.WithLock(context.Background(), SnapshotLockKey, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(SnapshotLockKey))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(SnapshotLockKey))
}

func TestWithLockHeldElsewhere(t *testing.T) {
	mr, client := newTestClient(t)
	require.NoError(t, mr.Set(SnapshotLockKey, "other-replica"))

	locker := NewRedisLocker(client, 5*time.Second)
	err := locker.WithLock(context.Background(), SnapshotLockKey, func(context.Context) error {
		t.Fatal("must not run while another replica holds the lock")
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockNotAcquired))

	got, err := mr.Get(SnapshotLockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", got)
}

func TestWithLockPassesThroughError(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)

	boom := errors.New("save failed")
	err := locker.WithLock(context.Background(), SnapshotLockKey, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(SnapshotLockKey))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), Options{Addr: addr})
	assert.Error(t, err)
}

func TestPublishReminderView(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ReminderChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	view := []reminder.Reminder{{
		Title: "Order gloves",
		Date:  civil.Date{Year: 2019, Month: time.October, Day: 23},
	}}
	require.NoError(t, NewReminderPublisher(client).Publish(ctx, view))

	select {
	case msg := <-sub.Channel():
		var got ReminderMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Len(t, got.Reminders, 1)
		assert.Equal(t, "Order gloves", got.Reminders[0].Title)
	case <-time.After(2 * time.Second):
		t.Fatal("no reminder view published")
	}
}

func TestSubscribeRemindersDecodesAndSkipsGarbage(t *testing.T) {
	_, client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ReminderMessage, 1)
	bad := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		done <- SubscribeReminders(ctx, client, func(m ReminderMessage) { got <- m }, func(err error) { bad <- err })
	}()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, ReminderChannel).Result()
		return err == nil && n[ReminderChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Publish(ctx, ReminderChannel, "not json").Err())
	restock := reminder.Reminder{Title: "Restock Paracetamol", Date: civil.Date{Year: 2019, Month: time.October, Day: 23}}
	require.NoError(t, NewReminderPublisher(client).Publish(ctx, []reminder.Reminder{restock}))

	select {
	case err := <-bad:
		assert.ErrorContains(t, err, "decode reminder view")
	case <-time.After(2 * time.Second):
		t.Fatal("garbage message not reported")
	}
	select {
	case m := <-got:
		require.Len(t, m.Reminders, 1)
		assert.Equal(t, "Restock Paracetamol", m.Reminders[0].Title)
		assert.Equal(t, restock.Date, m.Reminders[0].Date)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder view not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
