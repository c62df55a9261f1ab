package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avbelov/url-shortener/internal/models"
	"github.com/nats-io/nats.go"
)

// ClickProducer publishes one click event per resolved read. The publish
// is synchronous to the broker's ack but never waits for consumption.
// The JetStream context is safe for concurrent use by request handlers.
type ClickProducer struct {
	js nats.JetStreamContext
}

func NewClickProducer(js nats.JetStreamContext) *ClickProducer {
	return &ClickProducer{
		js: js,
	}
}

func (p *ClickProducer) SendClick(ctx context.Context, code string) error {
	const op = "messaging.ClickProducer.SendClick"

	data, err := json.Marshal(models.ClickEvent{Code: code})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal click event: %w", op, err)
	}

	if _, err := p.js.Publish(SubjectClicks, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("%s: failed to publish click event: %w", op, err)
	}

	return nil
}
