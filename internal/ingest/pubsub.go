// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ingest

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/placepulse/placepulse/internal/config"
)

// NewGoChannelPubSub creates the in-process Pub/Sub used when NATS is
// disabled. It is both a Publisher and a Subscriber; tests and
// single-binary deployments feed mutations through it directly.
func NewGoChannelPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, NewLoggerAdapter())
}

// NewNATSSubscriber creates a core-NATS subscriber for the mutation
// topics. JetStream is off: durable redelivery would violate the
// at-most-once delivery contract.
func NewNATSSubscriber(cfg *config.NATSConfig) (message.Subscriber, error) {
	logger := NewLoggerAdapter()

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:            cfg.URL,
		NatsOptions:    natsOptions(cfg),
		Unmarshaler:    &wmNats.NATSMarshaler{},
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   30 * time.Second,
		JetStream:      wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return sub, nil
}

// NewNATSPublisher creates a core-NATS publisher for feeding the
// mutation topics over the wire, mirroring what the platform's data
// layer does on the producing side.
func NewNATSPublisher(cfg *config.NATSConfig) (message.Publisher, error) {
	logger := NewLoggerAdapter()

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}

func natsOptions(cfg *config.NATSConfig) []natsgo.Option {
	logger := NewLoggerAdapter()
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}
