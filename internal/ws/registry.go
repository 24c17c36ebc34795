// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ws

import (
	"sync"

	"github.com/placepulse/placepulse/internal/logging"
	"github.com/placepulse/placepulse/internal/metrics"
)

// Subscriber is the registry's handle on one connection session. The
// registry holds non-owning references: the session owns its transport
// and is responsible for leaving every topic before it is destroyed.
type Subscriber interface {
	// ID uniquely identifies the subscriber for the process lifetime.
	ID() uint64

	// Deliver enqueues a frame for the subscriber without blocking.
	// It returns an error when the session is closed or its buffer is
	// full; the caller treats both as a skipped delivery.
	Deliver(frame any) error
}

// Registry is the process-wide mapping from topic key to current
// subscribers. Topics are created implicitly on first join and pruned
// when their last member leaves.
//
// A single mutex guards the whole registry: topic cardinality is in
// the hundreds, publish fan-out per topic is small, and Deliver never
// blocks, so fine-grained locking buys nothing here. Holding the lock
// across delivery also gives LeaveAll the required guarantee: once it
// returns, no publish can observe the departed subscriber.
type Registry struct {
	mu      sync.Mutex
	topics  map[string][]Subscriber
	members int
}

// NewRegistry creates an empty topic registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string][]Subscriber)}
}

// Join adds the subscriber to the topic. Idempotent: joining a topic
// the subscriber already belongs to is a no-op. Members are kept in
// join order, which fixes the delivery order for Publish.
func (r *Registry) Join(topic string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.topics[topic]
	for _, m := range members {
		if m.ID() == sub.ID() {
			return
		}
	}
	r.topics[topic] = append(members, sub)
	r.members++
	r.updateGauges()

	logging.Debug().
		Str("topic", topic).
		Uint64("subscriber", sub.ID()).
		Int("members", len(r.topics[topic])).
		Msg("subscriber joined topic")
}

// Leave removes the subscriber from the topic. Idempotent: leaving a
// topic the subscriber is not a member of, or that does not exist, is
// a no-op. Empty topics are pruned.
func (r *Registry) Leave(topic string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(topic, sub)
}

func (r *Registry) leaveLocked(topic string, sub Subscriber) {
	members, ok := r.topics[topic]
	if !ok {
		return
	}
	for i, m := range members {
		if m.ID() == sub.ID() {
			r.topics[topic] = append(members[:i], members[i+1:]...)
			r.members--
			if len(r.topics[topic]) == 0 {
				delete(r.topics, topic)
			}
			r.updateGauges()
			return
		}
	}
}

// LeaveAll removes the subscriber from every topic it belongs to. It
// is called exactly once, during disconnect; once it returns, no
// subsequent Publish can deliver to this subscriber.
func (r *Registry) LeaveAll(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for topic, members := range r.topics {
		for i, m := range members {
			if m.ID() == sub.ID() {
				r.topics[topic] = append(members[:i], members[i+1:]...)
				r.members--
				removed++
				if len(r.topics[topic]) == 0 {
					delete(r.topics, topic)
				}
				break
			}
		}
	}
	r.updateGauges()

	if removed > 0 {
		logging.Debug().
			Uint64("subscriber", sub.ID()).
			Int("topics_left", removed).
			Msg("subscriber left all topics")
	}
}

// Publish delivers the frame to every current member of the topic, in
// join order, and returns the number of successful deliveries.
// Publishing to a topic with no members is a no-op. A delivery that
// fails (session closed, buffer full) is logged and skipped; it never
// aborts delivery to the remaining members. Best-effort, at-most-once.
func (r *Registry) Publish(topic string, frame any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.PublishesTotal.WithLabelValues(metrics.TopicFamily(topic)).Inc()

	members := r.topics[topic]
	if len(members) == 0 {
		return 0
	}

	delivered := 0
	for _, sub := range members {
		if err := sub.Deliver(frame); err != nil {
			metrics.DeliveriesDropped.Inc()
			logging.Warn().
				Err(err).
				Str("topic", topic).
				Uint64("subscriber", sub.ID()).
				Msg("delivery skipped")
			continue
		}
		delivered++
		metrics.DeliveriesTotal.Inc()
	}
	return delivered
}

// MemberCount returns the number of current members of the topic.
func (r *Registry) MemberCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// TopicCount returns the number of topics with at least one member.
func (r *Registry) TopicCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

// updateGauges refreshes registry size metrics (must hold r.mu).
func (r *Registry) updateGauges() {
	metrics.RegistryTopics.Set(float64(len(r.topics)))
	metrics.RegistryMembers.Set(float64(r.members))
}
