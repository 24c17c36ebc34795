// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ws

import (
	"time"

	"github.com/placepulse/placepulse/internal/models"
)

// Frame type discriminators. The client-facing wire format is a JSON
// object whose "type" field selects the shape of the rest of the body.
const (
	// Outbound frame types.
	FrameConnectionEstablished = "connection_established"
	FramePong                  = "pong"
	FrameError                 = "error"
	FrameSubscriptionConfirmed = "subscription_confirmed"
	FrameNewEvent              = "new_event"
	FrameEventUpdated          = "event_updated"
	FrameEventCancelled        = "event_cancelled"
	FrameNewPlace              = "new_place"
	FrameProximityEvent        = "proximity_event"
	FramePersonalNotification  = "personal_notification"
	FrameEventReminder         = "event_reminder"
	FrameCurrentEvents         = "current_events"
	FrameLocationEvent         = "location_event"
	FrameUnreadNotifications   = "unread_notifications"

	// Inbound frame types.
	FramePing              = "ping"
	FrameSubscribeLocation = "subscribe_location"
	FrameSubscribeCategory = "subscribe_category"
)

// timestamp returns the frame timestamp in RFC3339 UTC.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// InboundFrame is the envelope parsed from client messages. Pointer
// fields distinguish absent coordinates from zero coordinates.
type InboundFrame struct {
	Type       string   `json:"type"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Radius     *float64 `json:"radius,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// ConnectionEstablishedFrame acknowledges a successful connection.
type ConnectionEstablishedFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewConnectionEstablishedFrame builds the connection acknowledgement.
func NewConnectionEstablishedFrame() *ConnectionEstablishedFrame {
	return &ConnectionEstablishedFrame{
		Type:      FrameConnectionEstablished,
		Message:   "WebSocket connection established",
		Timestamp: timestamp(),
	}
}

// PongFrame answers a client ping.
type PongFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewPongFrame builds a pong response with the current timestamp.
func NewPongFrame() *PongFrame {
	return &PongFrame{Type: FramePong, Timestamp: timestamp()}
}

// ErrorFrame reports a recoverable client error; the connection stays open.
type ErrorFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewErrorFrame builds an error frame with the given message.
func NewErrorFrame(message string) *ErrorFrame {
	return &ErrorFrame{Type: FrameError, Message: message, Timestamp: timestamp()}
}

// SubscriptionConfirmedFrame confirms a location or category subscription.
type SubscriptionConfirmedFrame struct {
	Type             string   `json:"type"`
	SubscriptionType string   `json:"subscription_type"`
	Latitude         float64  `json:"latitude,omitempty"`
	Longitude        float64  `json:"longitude,omitempty"`
	Radius           float64  `json:"radius,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

// NewLocationConfirmedFrame confirms a subscribe_location request,
// echoing the accepted coordinates and radius.
func NewLocationConfirmedFrame(lat, lng, radius float64) *SubscriptionConfirmedFrame {
	return &SubscriptionConfirmedFrame{
		Type:             FrameSubscriptionConfirmed,
		SubscriptionType: "location",
		Latitude:         lat,
		Longitude:        lng,
		Radius:           radius,
		Timestamp:        timestamp(),
	}
}

// NewCategoriesConfirmedFrame confirms a subscribe_category request,
// echoing the categories as the client supplied them.
func NewCategoriesConfirmedFrame(categories []string) *SubscriptionConfirmedFrame {
	return &SubscriptionConfirmedFrame{
		Type:             FrameSubscriptionConfirmed,
		SubscriptionType: "categories",
		Categories:       categories,
		Timestamp:        timestamp(),
	}
}

// EventFrame carries an event lifecycle notification (new_event,
// event_updated, event_cancelled).
type EventFrame struct {
	Type      string               `json:"type"`
	Event     *models.EventSummary `json:"event"`
	Message   string               `json:"message"`
	Timestamp string               `json:"timestamp"`
}

// NewEventFrame builds an event lifecycle frame of the given kind.
func NewEventFrame(kind, message string, event *models.EventSummary) *EventFrame {
	return &EventFrame{Type: kind, Event: event, Message: message, Timestamp: timestamp()}
}

// PlaceFrame announces a newly registered place.
type PlaceFrame struct {
	Type      string               `json:"type"`
	Place     *models.PlaceSummary `json:"place"`
	Message   string               `json:"message"`
	Timestamp string               `json:"timestamp"`
}

// NewPlaceFrame builds a new_place frame.
func NewPlaceFrame(message string, place *models.PlaceSummary) *PlaceFrame {
	return &PlaceFrame{Type: FrameNewPlace, Place: place, Message: message, Timestamp: timestamp()}
}

// ProximityFrame notifies one subscriber of an event inside its
// declared radius, carrying the computed distance in kilometers.
type ProximityFrame struct {
	Type       string               `json:"type"`
	Event      *models.EventSummary `json:"event"`
	DistanceKm float64              `json:"distance"`
	Message    string               `json:"message"`
	Timestamp  string               `json:"timestamp"`
}

// NewProximityFrame builds a proximity_event frame.
func NewProximityFrame(message string, event *models.EventSummary, distanceKm float64) *ProximityFrame {
	return &ProximityFrame{
		Type:       FrameProximityEvent,
		Event:      event,
		DistanceKm: distanceKm,
		Message:    message,
		Timestamp:  timestamp(),
	}
}

// NotificationFrame delivers a personal notification.
type NotificationFrame struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
	Timestamp    string               `json:"timestamp"`
}

// NewNotificationFrame builds a personal_notification frame.
func NewNotificationFrame(n *models.Notification) *NotificationFrame {
	return &NotificationFrame{Type: FramePersonalNotification, Notification: n, Timestamp: timestamp()}
}

// ReminderFrame delivers an event reminder to its recipient.
type ReminderFrame struct {
	Type         string               `json:"type"`
	Event        *models.EventSummary `json:"event"`
	ReminderTime string               `json:"reminder_time"`
	Message      string               `json:"message"`
	Timestamp    string               `json:"timestamp"`
}

// NewReminderFrame builds an event_reminder frame. reminderTime is the
// RFC3339 instant the reminder refers to.
func NewReminderFrame(message, reminderTime string, event *models.EventSummary) *ReminderFrame {
	return &ReminderFrame{
		Type:         FrameEventReminder,
		Event:        event,
		ReminderTime: reminderTime,
		Message:      message,
		Timestamp:    timestamp(),
	}
}

// SeedLocation echoes the subscribed location in a current_events frame.
type SeedLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// CurrentEventsFrame seeds a location feed with the upcoming events
// already known for the subscribed area. Sent once per connection,
// immediately after the acknowledgement; carries no timestamp.
type CurrentEventsFrame struct {
	Type     string                 `json:"type"`
	Location SeedLocation           `json:"location"`
	Events   []*models.EventSummary `json:"events"`
	Count    int                    `json:"count"`
}

// NewCurrentEventsFrame builds the seed frame for a location feed.
func NewCurrentEventsFrame(lat, lng, radius float64, events []*models.EventSummary) *CurrentEventsFrame {
	if events == nil {
		events = []*models.EventSummary{}
	}
	return &CurrentEventsFrame{
		Type:     FrameCurrentEvents,
		Location: SeedLocation{Latitude: lat, Longitude: lng, Radius: radius},
		Events:   events,
		Count:    len(events),
	}
}

// LocationEventFrame notifies a location feed of an event in its cell.
type LocationEventFrame struct {
	Type       string               `json:"type"`
	Event      *models.EventSummary `json:"event"`
	DistanceKm float64              `json:"distance,omitempty"`
	Timestamp  string               `json:"timestamp"`
}

// NewLocationEventFrame builds a location_event frame.
func NewLocationEventFrame(event *models.EventSummary, distanceKm float64) *LocationEventFrame {
	return &LocationEventFrame{
		Type:       FrameLocationEvent,
		Event:      event,
		DistanceKm: distanceKm,
		Timestamp:  timestamp(),
	}
}

// UnreadNotificationsFrame lists notifications buffered for a user
// while no personal feed session was connected. Carries no timestamp.
type UnreadNotificationsFrame struct {
	Type          string                 `json:"type"`
	Count         int                    `json:"count"`
	Notifications []*models.Notification `json:"notifications"`
}

// NewUnreadNotificationsFrame builds an unread_notifications frame.
func NewUnreadNotificationsFrame(notifications []*models.Notification) *UnreadNotificationsFrame {
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return &UnreadNotificationsFrame{
		Type:          FrameUnreadNotifications,
		Count:         len(notifications),
		Notifications: notifications,
	}
}
