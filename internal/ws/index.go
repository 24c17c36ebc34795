// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ws

import "sync"

// Index tracks open sessions so components outside the registry (the
// proximity watcher in particular) can enumerate them. Sessions are
// added by the feed handlers after upgrade and removed by the session's
// OnClose hook.
type Index struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

// NewIndex creates an empty session index.
func NewIndex() *Index {
	return &Index{sessions: make(map[uint64]*Session)}
}

// Add registers an open session.
func (i *Index) Add(s *Session) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sessions[s.ID()] = s
}

// Remove forgets a session.
func (i *Index) Remove(s *Session) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.sessions, s.ID())
}

// Len returns the number of tracked sessions.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sessions)
}

// Located returns a snapshot of the sessions that declared a location
// subscription, paired with that subscription.
func (i *Index) Located() []LocatedSession {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]LocatedSession, 0, len(i.sessions))
	for _, s := range i.sessions {
		if loc, ok := s.Location(); ok {
			out = append(out, LocatedSession{Session: s, Location: loc})
		}
	}
	return out
}

// LocatedSession pairs a session with its declared location.
type LocatedSession struct {
	Session  *Session
	Location LocationSubscription
}
