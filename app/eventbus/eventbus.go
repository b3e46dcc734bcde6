// Package eventbus builds the watermill publisher and subscriber shared by the
// modules: NATS when a URL is configured, an in-process channel otherwise.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

const queueGroupPrefix = "consensus-rank"

// EventBus publishes and subscribes to module events.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

type eventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

// NewEventBus connects to NATS at natsURL. Replicas share each topic through
// a queue group so an event is handled once per handler.
func NewEventBus(natsURL string, logger *slog.Logger) (EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	natsOptions := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
	}
	jsConfig := nats.JetStreamConfig{Disabled: true}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			Marshaler:   marshaler,
			NatsOptions: natsOptions,
			JetStream:   jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		logger.Error("Failed to create Watermill publisher", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			Unmarshaler:      marshaler,
			QueueGroupPrefix: queueGroupPrefix,
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     10 * time.Second,
			NatsOptions:      natsOptions,
			JetStream:        jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		logger.Error("Failed to create Watermill subscriber", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.Info("Connected event bus to NATS", slog.String("url", natsURL))
	return &eventBus{publisher: publisher, subscriber: subscriber, logger: logger}, nil
}

// NewInProcessEventBus delivers events between modules of one process.
func NewInProcessEventBus(logger *slog.Logger) EventBus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	logger.Info("Using in-process event bus")
	return &eventBus{publisher: pubSub, subscriber: pubSub, logger: logger}
}

func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
	}
	eb.logger.Debug("Publishing message", slog.String("topic", topic), slog.Int("count", len(messages)))
	return eb.publisher.Publish(topic, messages...)
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return eb.subscriber.Subscribe(ctx, topic)
}

// Close closes the subscriber before the publisher. A shared in-process
// pub/sub is closed once.
func (eb *eventBus) Close() error {
	subErr := eb.subscriber.Close()
	if any(eb.publisher) == any(eb.subscriber) {
		return subErr
	}
	return errors.Join(subErr, eb.publisher.Close())
}
