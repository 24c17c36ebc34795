// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/placepulse/placepulse/internal/dispatch"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/store"
)

// Consumer persists mutations and drives the dispatcher. Handlers
// return nil on malformed payloads so the router acks them; retrying a
// message that cannot parse never helps, and the delivery contract is
// at-most-once anyway.
type Consumer struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	watcher    *dispatch.Watcher
}

// NewConsumer wires a Consumer. The watcher may be nil when proximity
// matching is disabled.
func NewConsumer(st *store.Store, dispatcher *dispatch.Dispatcher, watcher *dispatch.Watcher) *Consumer {
	return &Consumer{store: st, dispatcher: dispatcher, watcher: watcher}
}

// HandleEventMutation processes one mutations.events message.
func (c *Consumer) HandleEventMutation(msg *message.Message) error {
	var mutation EventMutation
	if err := json.Unmarshal(msg.Payload, &mutation); err != nil {
		countIngest(TopicEventMutations, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Err(err).Msg("Malformed event mutation dropped")
		return nil
	}
	if mutation.Event == nil || mutation.Event.ID == uuid.Nil {
		countIngest(TopicEventMutations, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Msg("Event mutation without event dropped")
		return nil
	}
	countIngest(TopicEventMutations, "dispatched")

	ctx, cancel := context.WithTimeout(msg.Context(), 10*time.Second)
	defer cancel()

	switch mutation.Action {
	case ActionCreated:
		return c.eventCreated(ctx, mutation.Event)
	case ActionUpdated:
		return c.eventUpdated(ctx, mutation.Event)
	case ActionCancelled:
		return c.eventCancelled(ctx, mutation.Event.ID)
	default:
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Str("action", mutation.Action).
			Msg("Unknown event mutation action dropped")
		return nil
	}
}

func (c *Consumer) eventCreated(ctx context.Context, event *models.Event) error {
	if err := c.store.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("persist created event: %w", err)
	}

	// Re-read with the place joined; the payload may carry only the
	// place id, and routing needs coordinates.
	stored, err := c.store.GetEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("load created event: %w", err)
	}

	c.dispatcher.EventCreated(stored)
	if c.watcher != nil {
		c.watcher.EventCreated(stored)
	}
	return nil
}

func (c *Consumer) eventUpdated(ctx context.Context, event *models.Event) error {
	if err := c.store.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.Warn().Str("event_id", event.ID.String()).Msg("Update for unknown event dropped")
			return nil
		}
		return fmt.Errorf("persist updated event: %w", err)
	}

	stored, err := c.store.GetEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("load updated event: %w", err)
	}

	c.dispatcher.EventUpdated(stored)
	return nil
}

func (c *Consumer) eventCancelled(ctx context.Context, id uuid.UUID) error {
	if err := c.store.CancelEvent(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.Warn().Str("event_id", id.String()).Msg("Cancellation for unknown event dropped")
			return nil
		}
		return fmt.Errorf("persist cancelled event: %w", err)
	}

	stored, err := c.store.GetEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("load cancelled event: %w", err)
	}

	c.dispatcher.EventCancelled(stored)
	return nil
}

// HandlePlaceMutation processes one mutations.places message. Only
// creation fans out; place edits are not notification-worthy.
func (c *Consumer) HandlePlaceMutation(msg *message.Message) error {
	var mutation PlaceMutation
	if err := json.Unmarshal(msg.Payload, &mutation); err != nil {
		countIngest(TopicPlaceMutations, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Err(err).Msg("Malformed place mutation dropped")
		return nil
	}
	if mutation.Place == nil || mutation.Place.ID == uuid.Nil {
		countIngest(TopicPlaceMutations, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Msg("Place mutation without place dropped")
		return nil
	}
	countIngest(TopicPlaceMutations, "dispatched")

	ctx, cancel := context.WithTimeout(msg.Context(), 10*time.Second)
	defer cancel()

	if err := c.store.InsertPlace(ctx, mutation.Place); err != nil {
		return fmt.Errorf("persist place: %w", err)
	}
	if mutation.Action == ActionCreated {
		c.dispatcher.PlaceCreated(mutation.Place)
	}
	return nil
}

// HandleUserNotification processes one notify.user message.
func (c *Consumer) HandleUserNotification(msg *message.Message) error {
	var payload UserNotification
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		countIngest(TopicUserNotifications, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Err(err).Msg("Malformed user notification dropped")
		return nil
	}
	if payload.UserID == "" {
		countIngest(TopicUserNotifications, "invalid")
		logging.Warn().Str("message_uuid", msg.UUID).Msg("User notification without user id dropped")
		return nil
	}
	countIngest(TopicUserNotifications, "dispatched")

	c.dispatcher.PersonalNotification(&models.Notification{
		ID:        uuid.New(),
		UserID:    payload.UserID,
		Title:     payload.Title,
		Body:      payload.Body,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func countIngest(topic, outcome string) {
	metrics.IngestMessages.WithLabelValues(topic, outcome).Inc()
}
