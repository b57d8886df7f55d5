package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/reminder"
)

const ReminderChannel = "clinic:reminders"

// ReminderMessage is what subscribers of ReminderChannel receive.
type ReminderMessage struct {
	PublishedAt time.Time           `json:"published_at"`
	Reminders   []reminder.Reminder `json:"reminders"`
}

type ReminderPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewReminderPublisher(client *redis.Client) *ReminderPublisher {
	return &ReminderPublisher{client: client, channel: ReminderChannel, timeout: 2 * time.Second}
}

func (p *ReminderPublisher) Publish(ctx context.Context, view []reminder.Reminder) error {
	if view == nil {
		view = []reminder.Reminder{}
	}
	data, err := json.Marshal(ReminderMessage{PublishedAt: time.Now().UTC(), Reminders: view})
	if err != nil {
		return fmt.Errorf("marshal reminder view: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(pubCtx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish reminder view: %w", err)
	}
	return nil
}

// SubscribeReminders delivers every view published on ReminderChannel to fn
// until ctx is done. Messages that fail to decode are passed to onError and
// skipped.
func SubscribeReminders(ctx context.Context, client *redis.Client, fn func(ReminderMessage), onError func(error)) error {
	sub := client.Subscribe(ctx, ReminderChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ReminderChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m ReminderMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				if onError != nil {
					onError(fmt.Errorf("decode reminder view: %w", err))
				}
				continue
			}
			fn(m)
		}
	}
}
