// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/validation"
)

// Consumer pulls signals from a JetStream topic and feeds them through the
// Ingestor. Consumption is durable and queue-group load balanced across
// engine instances.
type Consumer struct {
	subscriber message.Subscriber
	serializer *Serializer
	ingestor   *Ingestor
	topic      string
	logger     watermill.LoggerAdapter
}

// NewConsumer creates a durable JetStream consumer for the configured topic.
func NewConsumer(cfg *config.NATSConfig, ingestor *Ingestor, logger watermill.LoggerAdapter) (*Consumer, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Signal consumer disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Signal consumer reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	// Bind to an existing stream when configured; otherwise auto-provision
	// a stream named after the topic.
	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false, // synchronous acks for exactly-once
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Consumer{
		subscriber: sub,
		serializer: NewSerializer(),
		ingestor:   ingestor,
		topic:      cfg.Topic,
		logger:     logger,
	}, nil
}

// Run consumes signals until the context is canceled. Successfully ingested
// messages are acked. Permanently malformed messages (undecodable payloads,
// validation failures) are acked and dropped so they cannot poison the
// stream; transient store failures are nacked for redelivery, bounded by
// the consumer's MaxDeliver.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	logging.Info().Str("topic", c.topic).Msg("Signal consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	sig, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Dropping undecodable signal message")
		msg.Ack()
		return
	}

	if err := c.ingestor.Ingest(ctx, sig); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			logging.Warn().
				Str("message_uuid", msg.UUID).
				Err(err).
				Msg("Dropping invalid signal message")
			msg.Ack()
			return
		}
		logging.Error().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Signal ingestion failed, nacking for redelivery")
		msg.Nack()
		return
	}

	msg.Ack()
}

// Close gracefully shuts down the subscriber.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
