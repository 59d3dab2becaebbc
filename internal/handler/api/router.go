// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/infinite-realms/chronicle/internal/middleware"
)

// RouterOptions configures the API router.
type RouterOptions struct {
	DB *sql.DB

	// Per-IP limits for unauthenticated traffic.
	PublicRPS   float64
	PublicBurst int

	// Per-token limits for authenticated traffic.
	TokenRPS   float64
	TokenBurst int
}

// Router mounts the full API surface and returns it, ready to serve under
// /api/v1.
func (h *Handler) Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	ipLimiter := middleware.NewIPRateLimiter(opts.PublicRPS, opts.PublicBurst)
	r.Use(ipLimiter.Middleware())

	r.Get("/status", h.Status)

	// Public read surface: published posts and the taxonomy vocabulary.
	r.Get("/posts", h.ListPublishedPosts)
	r.Get("/posts/{slug}", h.GetPublishedPost)
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{id}", h.GetCategory)
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{id}", h.GetTag)

	// Admin surface: everything behind bearer auth. Admin-only route groups
	// are gated here; finer ownership checks live in the service layer.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.TokenAuth(opts.DB))
		r.Use(middleware.TokenRateLimit(opts.TokenRPS, opts.TokenBurst))

		r.With(middleware.RequireAdmin).Get("/events", h.ListEvents)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.ListAdminPosts)
			r.Post("/", h.CreatePost)
			r.Post("/preview", h.PreviewPost)
			r.Get("/slug/check", h.CheckSlug)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAdminPost)
				r.Get("/preview", h.PreviewStoredPost)
				r.Patch("/", h.UpdatePost)
				r.Delete("/", h.DeletePost)
				r.Post("/publish", h.PublishPost)
				r.Post("/schedule", h.SchedulePost)
				r.Post("/request-review", h.RequestReview)
				r.Post("/archive", h.ArchivePost)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/", h.CreateCategory)
			r.Patch("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
		r.Route("/tags", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/", h.CreateTag)
			r.Patch("/{id}", h.UpdateTag)
			r.Delete("/{id}", h.DeleteTag)
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", h.ListMedia)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/sign-upload", h.SignUpload)
				r.Post("/confirm", h.ConfirmUpload)
				r.Delete("/{id}", h.DeleteMedia)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})

	return r
}
