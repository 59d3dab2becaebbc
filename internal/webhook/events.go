// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers post change events to configured endpoints.
package webhook

import (
	"time"
)

// Event is the payload posted to webhook endpoints.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// PostEventData is the post payload carried by post change events.
type PostEventData struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Status      string `json:"status"`
	AuthorID    int64  `json:"author_id"`
	PublishedAt string `json:"published_at,omitempty"`
}
