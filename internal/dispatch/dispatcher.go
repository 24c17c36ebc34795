// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package dispatch turns platform mutations into topic publishes. It
// owns the mutation-to-topic resolution rules; producers never address
// topics directly.
package dispatch

import (
	"fmt"
	"time"

	"github.com/placepulse/placepulse/internal/geo"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/ws"
)

// Dispatcher resolves mutations to topics and publishes notification
// frames. Delivery inherits the registry's best-effort at-most-once
// contract.
type Dispatcher struct {
	registry *ws.Registry
	inbox    *Inbox
}

// New creates a Dispatcher over the registry. The inbox holds personal
// notifications for users with no open connection.
func New(registry *ws.Registry, inbox *Inbox) *Dispatcher {
	return &Dispatcher{registry: registry, inbox: inbox}
}

// EventCreated fans a new event out to the global topic, the event's
// geographic cell, and each of its category topics.
func (d *Dispatcher) EventCreated(event *models.Event) {
	frame := ws.NewEventFrame(ws.FrameNewEvent,
		fmt.Sprintf("New event: %s", event.Title), event.Summary())
	d.publishEvent(event, frame)
}

// EventUpdated fans an event update out to the same topics as creation.
func (d *Dispatcher) EventUpdated(event *models.Event) {
	frame := ws.NewEventFrame(ws.FrameEventUpdated,
		fmt.Sprintf("Event updated: %s", event.Title), event.Summary())
	d.publishEvent(event, frame)
}

// EventCancelled fans a cancellation out to the same topics as
// creation, so every subscriber who could have seen the event sees it
// cancelled.
func (d *Dispatcher) EventCancelled(event *models.Event) {
	frame := ws.NewEventFrame(ws.FrameEventCancelled,
		fmt.Sprintf("Event cancelled: %s", event.Title), event.Summary())
	d.publishEvent(event, frame)
}

// PlaceCreated announces a new place on the global topic.
func (d *Dispatcher) PlaceCreated(place *models.Place) {
	frame := ws.NewPlaceFrame(fmt.Sprintf("New place: %s", place.Name), place.Summary())
	delivered := d.registry.Publish(ws.TopicGlobal, frame)
	logging.Info().
		Str("place_id", place.ID.String()).
		Int("delivered", delivered).
		Msg("Place creation dispatched")
}

// PersonalNotification delivers a notification to the user's topic.
// When the user has no open connection it is parked in the inbox and
// replayed as unread on their next connect.
func (d *Dispatcher) PersonalNotification(n *models.Notification) {
	frame := ws.NewNotificationFrame(n)
	delivered := d.registry.Publish(ws.UserTopic(n.UserID), frame)
	if delivered == 0 && d.inbox != nil {
		d.inbox.Add(n)
	}
	logging.Info().
		Str("user_id", n.UserID).
		Int("delivered", delivered).
		Msg("Personal notification dispatched")
}

// ProximityMatch delivers a proximity notification directly to one
// subscriber, bypassing topic fan-out. The watcher computes distances;
// the dispatcher only shapes and delivers the frame.
func (d *Dispatcher) ProximityMatch(target ws.Subscriber, event *models.Event, distanceKm float64) error {
	frame := ws.NewProximityFrame("New event near you", event.Summary(), distanceKm)
	return target.Deliver(frame)
}

// EventReminder delivers an upcoming-event reminder to the user's
// topic and reports whether anything was delivered.
func (d *Dispatcher) EventReminder(userID string, event *models.Event, remindAt time.Time) int {
	frame := ws.NewReminderFrame(
		fmt.Sprintf("Upcoming event: %s", event.Title),
		remindAt.UTC().Format(time.RFC3339),
		event.Summary())
	return d.registry.Publish(ws.UserTopic(userID), frame)
}

func (d *Dispatcher) publishEvent(event *models.Event, frame any) {
	topics := eventTopics(event)

	delivered := 0
	for _, topic := range topics {
		delivered += d.registry.Publish(topic, frame)
	}

	logging.Info().
		Str("event_id", event.ID.String()).
		Strs("topics", topics).
		Int("delivered", delivered).
		Msg("Event mutation dispatched")
}

// eventTopics resolves an event to its topic set: global, the
// geographic cell of its place, and one topic per category. Order is
// deterministic and duplicates are collapsed.
func eventTopics(event *models.Event) []string {
	topics := []string{ws.TopicGlobal}
	seen := map[string]bool{ws.TopicGlobal: true}

	if lat, lng, ok := event.Coordinates(); ok {
		if cell, err := geo.BucketOf(lat, lng); err == nil {
			topic := cell.Topic()
			if !seen[topic] {
				topics = append(topics, topic)
				seen[topic] = true
			}
		} else {
			logging.Warn().
				Str("event_id", event.ID.String()).
				Err(err).
				Msg("Event has out-of-domain coordinates, skipping geographic fan-out")
		}
	}

	for _, category := range event.Categories {
		topic := ws.CategoryTopic(ws.NormalizeCategory(category))
		if !seen[topic] {
			topics = append(topics, topic)
			seen[topic] = true
		}
	}

	return topics
}
