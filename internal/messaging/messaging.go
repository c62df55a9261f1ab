// Package messaging carries click events from the resolution path to the
// click handler over NATS JetStream. Delivery is at-least-once: messages
// are persisted on the broker before the publish returns and are
// redelivered until the consumer acknowledges them.
package messaging

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream that stores click events.
	StreamName = "CLICKS"
	// SubjectClicks is the subject click events are published to.
	SubjectClicks = "clicks.url"
	// DurableConsumer is the durable name shared by competing consumers.
	DurableConsumer = "click-handler"
)

const streamMaxAge = 7 * 24 * time.Hour

// Connect dials the broker and makes sure the click stream exists.
func Connect(url string) (*nats.Conn, nats.JetStreamContext, error) {
	const op = "messaging.Connect"

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to connect to nats: %w", op, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%s: failed to create jetstream context: %w", op, err)
	}

	if err := initStream(js); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return conn, js, nil
}

func initStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectClicks},
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
		Replicas: 1,
	}

	_, err := js.StreamInfo(StreamName)
	if err == nats.ErrStreamNotFound {
		if _, err := js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	if _, err := js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}

	return nil
}
