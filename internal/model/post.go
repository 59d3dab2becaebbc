// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including Post, taxonomy, media, and identity structures.
package model

import (
	"database/sql"
	"time"
)

// Post statuses
const (
	PostStatusDraft     = "draft"
	PostStatusReview    = "review"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

// PostStatuses returns all valid post statuses.
func PostStatuses() []string {
	return []string{
		PostStatusDraft,
		PostStatusReview,
		PostStatusScheduled,
		PostStatusPublished,
		PostStatusArchived,
	}
}

// IsValidPostStatus reports whether s is a known post status.
func IsValidPostStatus(s string) bool {
	for _, status := range PostStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Post represents a blog post.
type Post struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Slug             string         `json:"slug"`
	Summary          sql.NullString `json:"summary,omitempty"`
	Content          string         `json:"content"`
	Status           string         `json:"status"`
	AuthorID         int64          `json:"author_id"`
	FeaturedImageURL sql.NullString `json:"featured_image_url,omitempty"`
	HeroImageAlt     sql.NullString `json:"hero_image_alt,omitempty"`
	SEOTitle         sql.NullString `json:"seo_title,omitempty"`
	SEODescription   sql.NullString `json:"seo_description,omitempty"`
	SEOKeywords      string         `json:"seo_keywords"` // JSON array stored as string
	CanonicalURL     sql.NullString `json:"canonical_url,omitempty"`
	Metadata         string         `json:"metadata"` // JSON object stored as string
	PublishedAt      sql.NullTime   `json:"published_at,omitempty"`
	ScheduledFor     sql.NullTime   `json:"scheduled_for,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Author represents an author profile. Posts may only be created for
// authors that already exist.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
