package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/avbelov/url-shortener/internal/models"
	"github.com/avbelov/url-shortener/internal/resilience"
	"github.com/nats-io/nats.go"
)

const fetchBatchSize = 16

// ClickHandler applies a consumed click event.
type ClickHandler interface {
	HandleClick(ctx context.Context, code string) error
}

// ackAction is the consumer's verdict on a delivered message.
type ackAction int

const (
	// ackMessage removes the message from the queue. Malformed messages
	// are acked too: redelivering them can never succeed.
	ackMessage ackAction = iota
	// nakMessage asks the broker to redeliver, which makes handler
	// failures at-least-once.
	nakMessage
)

// ClickConsumer is the long-lived worker that drains the click queue.
// One consumer goroutine runs per process; scaling out adds competing
// consumers bound to the same durable name.
type ClickConsumer struct {
	js       nats.JetStreamContext
	handler  ClickHandler
	pipeline *resilience.Pipeline
	logger   *slog.Logger
}

func NewClickConsumer(js nats.JetStreamContext, handler ClickHandler, pipeline *resilience.Pipeline, logger *slog.Logger) *ClickConsumer {
	return &ClickConsumer{
		js:       js,
		handler:  handler,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run subscribes to the click stream and processes messages until ctx is
// cancelled. A subscription that cannot be established even through the
// resilience pipeline degrades to "clicks not recorded": Run returns nil
// so a broken broker never takes the host process down with it.
func (c *ClickConsumer) Run(ctx context.Context) error {
	var sub *nats.Subscription

	err := c.pipeline.Execute(ctx, "messaging.subscribe", func() error {
		var err error
		sub, err = c.js.PullSubscribe(SubjectClicks, DurableConsumer, nats.AckExplicit())
		return err
	})
	if err != nil {
		c.logger.Error("click consumer could not subscribe, clicks will not be recorded",
			slog.Any("err", err),
		)
		return nil
	}

	c.logger.Info("click consumer started",
		slog.String("stream", StreamName),
		slog.String("durable", DurableConsumer),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(fetchBatchSize, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}

			c.logger.Error("failed to fetch click events", slog.Any("err", err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			switch c.process(ctx, msg.Data) {
			case ackMessage:
				if err := msg.Ack(); err != nil {
					c.logger.Error("failed to ack click event", slog.Any("err", err))
				}
			case nakMessage:
				if err := msg.Nak(); err != nil {
					c.logger.Error("failed to nak click event", slog.Any("err", err))
				}
			}
		}
	}
}

// process decides the fate of one delivery. Handler errors requeue the
// message; undecodable payloads and empty codes are dropped.
func (c *ClickConsumer) process(ctx context.Context, data []byte) ackAction {
	var event models.ClickEvent

	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Warn("dropping malformed click event",
			slog.String("payload", string(data)),
			slog.Any("err", err),
		)
		return ackMessage
	}

	if event.Code == "" {
		c.logger.Warn("dropping click event without code")
		return ackMessage
	}

	if err := c.handler.HandleClick(ctx, event.Code); err != nil {
		c.logger.Error("failed to handle click event, requeueing",
			slog.String("code", event.Code),
			slog.Any("err", err),
		)
		return nakMessage
	}

	return ackMessage
}
