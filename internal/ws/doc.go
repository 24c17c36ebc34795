// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package ws implements the realtime notification core: the topic
// registry grouping connected sessions by topic key, the connection
// session owning one WebSocket transport, and the frame vocabulary
// exchanged with clients.
//
// Topic key families:
//
//	global              all clients on the general feed
//	user:<id>           one per authenticated user
//	geo:<lat>:<lng>     one per discretized geographic cell
//	category:<slug>     one per normalized category
//
// Delivery is best-effort and at-most-once: a publish reaches the
// members registered at call time, in join order; failed deliveries
// are logged and skipped, and nothing is buffered for absent or
// disconnected clients.
package ws
