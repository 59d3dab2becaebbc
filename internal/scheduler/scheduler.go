// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler publishes scheduled posts when their time arrives.
package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/service"
	"github.com/infinite-realms/chronicle/internal/store"
)

// Scheduler runs the minutely job that flips due scheduled posts to
// published.
type Scheduler struct {
	db        *sql.DB
	cron      *cron.Cron
	logger    *slog.Logger
	notifiers []service.Notifier
}

// New creates a scheduler. Notifiers receive the same change events as the
// post service, so webhooks and cache invalidation cover automatic
// publication too.
func New(db *sql.DB, logger *slog.Logger, notifiers ...service.Notifier) *Scheduler {
	return &Scheduler{
		db:        db,
		cron:      cron.New(),
		logger:    logger,
		notifiers: notifiers,
	}
}

// Start begins the minutely due-post check.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("* * * * *", func() {
		if err := s.processDuePosts(); err != nil {
			s.logger.Error("failed to process scheduled posts", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for any running job and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// processDuePosts publishes every scheduled post whose time has passed.
func (s *Scheduler) processDuePosts() error {
	ctx := context.Background()
	queries := store.New(s.db)

	now := time.Now()
	posts, err := queries.ListScheduledPostsDue(ctx, now)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	s.logger.Info("processing scheduled posts", "count", len(posts))

	for _, post := range posts {
		published, err := s.publishPost(ctx, queries, post, now)
		if err != nil {
			s.logger.Error("failed to publish scheduled post",
				"post_id", post.ID,
				"post_title", post.Title,
				"error", err,
			)
			continue
		}

		s.logger.Info("published scheduled post",
			"post_id", post.ID,
			"post_title", post.Title,
			"scheduled_for", post.ScheduledFor.Time,
		)
		for _, n := range s.notifiers {
			n.PostChanged(ctx, service.ActionPublished, published)
		}
	}
	return nil
}

// publishPost flips one post to published. The publication timestamp is the
// scheduled time, not the job run time, unless the post already carried one
// from an earlier publication.
func (s *Scheduler) publishPost(ctx context.Context, queries *store.Queries, post model.Post, now time.Time) (model.Post, error) {
	publishedAt := post.PublishedAt
	if !publishedAt.Valid {
		publishedAt = post.ScheduledFor
	}

	updated, err := queries.UpdatePost(ctx, store.UpdatePostParams{
		ID:               post.ID,
		Title:            post.Title,
		Slug:             post.Slug,
		Summary:          post.Summary,
		Content:          post.Content,
		Status:           model.PostStatusPublished,
		FeaturedImageURL: post.FeaturedImageURL,
		HeroImageAlt:     post.HeroImageAlt,
		SEOTitle:         post.SEOTitle,
		SEODescription:   post.SEODescription,
		SEOKeywords:      post.SEOKeywords,
		CanonicalURL:     post.CanonicalURL,
		Metadata:         post.Metadata,
		PublishedAt:      publishedAt,
		ScheduledFor:     sql.NullTime{},
		UpdatedAt:        now,
	})
	if err != nil {
		return model.Post{}, err
	}

	metadata, _ := json.Marshal(map[string]any{
		"post_id":       post.ID,
		"post_slug":     post.Slug,
		"scheduled_for": post.ScheduledFor.Time.Format(time.RFC3339),
		"published_at":  publishedAt.Time.Format(time.RFC3339),
	})
	if _, err := queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategoryPost,
		Message:   "scheduled post published: " + post.Title,
		Metadata:  string(metadata),
		CreatedAt: now,
	}); err != nil {
		s.logger.Warn("failed to record publication event", "post_id", post.ID, "error", err)
	}

	return updated, nil
}
