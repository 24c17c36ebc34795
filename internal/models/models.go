// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package models defines the data structures shared across PlacePulse:
// places, events, notifications, and the summaries pushed to clients.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Place represents a registered venue where events are organized.
type Place struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Category  string    `json:"category,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`

	// AverageRating is the aggregate of user ratings, 0 when unrated.
	AverageRating float64 `json:"average_rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Event represents an event organized at a place.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`

	// Categories carries the event's category names as entered by the
	// organizer; topic routing normalizes them separately.
	Categories []string `json:"categories,omitempty"`

	PlaceID     uuid.UUID `json:"place_id"`
	OrganizerID string    `json:"organizer_id,omitempty"`

	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Cancelled bool       `json:"cancelled,omitempty"`

	// Place is populated on reads that join the owning place; it is the
	// source of the event's coordinates for geographic routing.
	Place *Place `json:"place,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Coordinates returns the event's location via its place, and whether
// one is known.
func (e *Event) Coordinates() (lat, lng float64, ok bool) {
	if e.Place == nil {
		return 0, 0, false
	}
	return e.Place.Latitude, e.Place.Longitude, true
}

// EventSummary is the compact event representation pushed to clients.
type EventSummary struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Categories []string   `json:"categories,omitempty"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	PlaceName  string     `json:"place_name,omitempty"`
	Latitude   float64    `json:"latitude,omitempty"`
	Longitude  float64    `json:"longitude,omitempty"`
}

// Summary builds the client-facing summary of the event.
func (e *Event) Summary() *EventSummary {
	s := &EventSummary{
		ID:         e.ID,
		Title:      e.Title,
		Categories: e.Categories,
		StartsAt:   e.StartsAt,
		EndsAt:     e.EndsAt,
	}
	if e.Place != nil {
		s.PlaceName = e.Place.Name
		s.Latitude = e.Place.Latitude
		s.Longitude = e.Place.Longitude
	}
	return s
}

// PlaceSummary is the compact place representation pushed to clients.
type PlaceSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Summary builds the client-facing summary of the place.
func (p *Place) Summary() *PlaceSummary {
	return &PlaceSummary{
		ID:        p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

// Notification is a personal notification addressed to one user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
