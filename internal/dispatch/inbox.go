// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package dispatch

import (
	"sync"

	"github.com/placepulse/placepulse/internal/models"
)

// defaultInboxCap bounds parked notifications per user; the oldest are
// dropped first. History is not durable, the inbox only bridges the
// gap until the user's next connect.
const defaultInboxCap = 100

// Inbox parks personal notifications for users with no open
// connection. Drain is called when the user's notification feed
// connects and replays everything parked since the last connect.
type Inbox struct {
	mu      sync.Mutex
	pending map[string][]*models.Notification
	cap     int
}

// NewInbox creates an inbox with the given per-user capacity;
// non-positive means the default.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = defaultInboxCap
	}
	return &Inbox{
		pending: make(map[string][]*models.Notification),
		cap:     capacity,
	}
}

// Add parks a notification for its user.
func (in *Inbox) Add(n *models.Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()

	queue := append(in.pending[n.UserID], n)
	if len(queue) > in.cap {
		queue = queue[len(queue)-in.cap:]
	}
	in.pending[n.UserID] = queue
}

// Drain removes and returns the user's parked notifications, oldest
// first.
func (in *Inbox) Drain(userID string) []*models.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()

	queue := in.pending[userID]
	delete(in.pending, userID)
	return queue
}

// Len returns the number of parked notifications for a user.
func (in *Inbox) Len(userID string) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending[userID])
}
