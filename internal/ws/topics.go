// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package ws

import "strings"

// TopicGlobal is the baseline topic every general feed session joins;
// all place/event mutations are mirrored here.
const TopicGlobal = "global"

// UserTopic returns the personal topic for a user identity.
func UserTopic(userID string) string {
	return "user:" + userID
}

// CategoryTopic returns the topic for a normalized category slug.
func CategoryTopic(slug string) string {
	return "category:" + slug
}

// NormalizeCategory converts a client-supplied category name to its
// slug: lowercased, spaces replaced with underscores. No trimming is
// applied; the same normalization runs on both the subscribe side and
// the dispatch side, so "food " consistently becomes "food_".
func NormalizeCategory(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
