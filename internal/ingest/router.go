// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ingest

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewRouter builds the Watermill router consuming the three mutation
// topics. Panics in handlers are recovered; there is no retry
// middleware, the delivery contract is best-effort at-most-once end to
// end.
func NewRouter(subscriber message.Subscriber, consumer *Consumer) (*message.Router, error) {
	logger := NewLoggerAdapter()

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 30 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingest router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	router.AddNoPublisherHandler("event_mutations", TopicEventMutations, subscriber, consumer.HandleEventMutation)
	router.AddNoPublisherHandler("place_mutations", TopicPlaceMutations, subscriber, consumer.HandlePlaceMutation)
	router.AddNoPublisherHandler("user_notifications", TopicUserNotifications, subscriber, consumer.HandleUserNotification)

	return router, nil
}
