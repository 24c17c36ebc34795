// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package dispatch

import (
	"github.com/placepulse/placepulse/internal/geo"
	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/models"
	"github.com/placepulse/placepulse/internal/ws"
)

// Watcher matches new events against the declared locations of open
// sessions and delivers proximity notifications directly, bypassing
// topic fan-out. Cell subscriptions are truncation buckets; the
// watcher applies the session's actual radius.
type Watcher struct {
	index      *ws.Index
	dispatcher *Dispatcher
}

// NewWatcher creates a Watcher over the session index.
func NewWatcher(index *ws.Index, dispatcher *Dispatcher) *Watcher {
	return &Watcher{index: index, dispatcher: dispatcher}
}

// EventCreated notifies every located session within its declared
// radius of the new event. Location feed sessions receive a
// location_event frame, other feeds a proximity_event frame.
func (w *Watcher) EventCreated(event *models.Event) {
	lat, lng, ok := event.Coordinates()
	if !ok {
		return
	}

	summary := event.Summary()
	matched := 0
	for _, located := range w.index.Located() {
		d := geo.Haversine(lat, lng, located.Location.Latitude, located.Location.Longitude)
		if d > located.Location.RadiusKm {
			continue
		}

		var err error
		if located.Session.Feed() == ws.FeedLocation {
			err = located.Session.Deliver(ws.NewLocationEventFrame(summary, d))
		} else {
			err = w.dispatcher.ProximityMatch(located.Session, event, d)
		}
		if err != nil {
			logging.Warn().
				Uint64("session_id", located.Session.ID()).
				Err(err).
				Msg("Proximity notification dropped")
			continue
		}
		matched++
	}

	if matched > 0 {
		logging.Info().
			Str("event_id", event.ID.String()).
			Int("matched", matched).
			Msg("Proximity notifications delivered")
	}
}
