package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/decept/internal/domain"
)

// EventEnvelope is the message format on the events channel.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const eventPostRevealed = "post_revealed"

// EventPublisher broadcasts domain events over Redis pub/sub.
type EventPublisher struct {
	rdb *goredis.Client
}

func NewEventPublisher(rdb *goredis.Client) *EventPublisher {
	return &EventPublisher{rdb: rdb}
}

func (p *EventPublisher) PublishPostRevealed(ctx context.Context, event domain.PostRevealed) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg, err := json.Marshal(EventEnvelope{Type: eventPostRevealed, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := p.rdb.Publish(ctx, eventsChannel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeRevealed delivers PostRevealed events until ctx is cancelled.
// It returns once the subscription is confirmed. Slow receivers drop events.
func (p *EventPublisher) SubscribeRevealed(ctx context.Context) (<-chan domain.PostRevealed, error) {
	sub := p.rdb.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := make(chan domain.PostRevealed, 16)

	go func() {
		defer close(ch)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env EventEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Type != eventPostRevealed {
					continue
				}
				var event domain.PostRevealed
				if err := json.Unmarshal(env.Data, &event); err != nil {
					slog.Warn("Dropping malformed reveal event", "error", err)
					continue
				}
				select {
				case ch <- event:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
