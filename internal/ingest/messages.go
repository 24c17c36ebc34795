// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package ingest bridges mutation messages from the platform's data
// layer onto the notification dispatcher. A Watermill router consumes
// the broker topics and drives persistence and fan-out; the backend is
// an in-process Pub/Sub by default and NATS when configured.
package ingest

import (
	"github.com/placepulse/placepulse/internal/models"
)

// Broker topics produced by the platform's data layer.
const (
	TopicEventMutations    = "mutations.events"
	TopicPlaceMutations    = "mutations.places"
	TopicUserNotifications = "notify.user"
)

// Mutation actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCancelled = "cancelled"
)

// EventMutation is the payload on mutations.events.
type EventMutation struct {
	Action string        `json:"action"`
	Event  *models.Event `json:"event"`
}

// PlaceMutation is the payload on mutations.places.
type PlaceMutation struct {
	Action string        `json:"action"`
	Place  *models.Place `json:"place"`
}

// UserNotification is the payload on notify.user.
type UserNotification struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
}
