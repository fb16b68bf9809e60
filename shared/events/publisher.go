package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps each stream approximately; older entries are
// trimmed by Redis on XADD.
const DefaultStreamMaxLen = 10000

type Publisher struct {
	client *redis.Client
	maxLen int64
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, maxLen: DefaultStreamMaxLen}
}

// WithMaxLen returns a copy of p that trims streams to roughly n entries.
// Zero disables trimming.
func (p *Publisher) WithMaxLen(n int64) *Publisher {
	cp := *p
	cp.maxLen = n
	return &cp
}

// Publish appends an event envelope to stream. A nil Publisher is a no-op so
// the service can run without an event bus.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	if p == nil {
		return nil
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"type":  eventType,
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", eventType, stream, err)
	}

	return nil
}
