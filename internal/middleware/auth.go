// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for token authentication,
// role checks, and rate limiting.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyIdentity is the context key for the authenticated identity.
const ContextKeyIdentity ContextKey = "identity"

// APIError is the JSON error envelope written by middleware and handlers.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// resolveIdentity parses the Authorization header and validates the bearer
// token. On failure it writes the error response and returns nil.
func resolveIdentity(w http.ResponseWriter, r *http.Request, queries *store.Queries) *model.Identity {
	fail := func(status int, code, message string) *model.Identity {
		WriteAPIError(w, status, code, message, nil)
		return nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return fail(http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return fail(http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>")
	}
	rawToken := parts[1]
	if rawToken == "" {
		return fail(http.StatusUnauthorized, "unauthorized", "Token is empty")
	}

	token, err := queries.GetAPITokenByHash(r.Context(), model.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(http.StatusUnauthorized, "unauthorized", "Invalid token")
		}
		slog.Error("failed to validate token", "error", err)
		return fail(http.StatusInternalServerError, "internal_error", "Failed to validate token")
	}

	if !token.IsActive {
		return fail(http.StatusUnauthorized, "unauthorized", "Token is inactive")
	}
	if token.ExpiresAt.Valid && time.Now().After(token.ExpiresAt.Time) {
		return fail(http.StatusUnauthorized, "unauthorized", "Token has expired")
	}

	identity := model.Identity{
		TokenID: token.ID,
		Role:    token.Role,
	}
	if token.AuthorID.Valid {
		identity.AuthorID = token.AuthorID.Int64
	}
	return &identity
}

// TokenAuth creates middleware that requires a valid bearer token and puts
// the resulting identity into the request context.
func TokenAuth(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := resolveIdentity(w, r, queries)
			if identity == nil {
				return
			}

			touchTokenLastUsed(queries, identity.TokenID)
			serveWithIdentity(next, w, r, *identity)
		})
	}
}

// RequireAdmin rejects non-admin identities. Must run after TokenAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r)
		if identity == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		if !identity.IsAdmin() {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity retrieves the authenticated identity from the request context.
// Returns nil for unauthenticated requests.
func GetIdentity(r *http.Request) *model.Identity {
	identity, ok := r.Context().Value(ContextKeyIdentity).(model.Identity)
	if !ok {
		return nil
	}
	return &identity
}

// touchTokenLastUsed updates the last-used timestamp off the request path.
func touchTokenLastUsed(queries *store.Queries, tokenID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queries.UpdateAPITokenLastUsed(ctx, tokenID, time.Now())
	}()
}

func serveWithIdentity(next http.Handler, w http.ResponseWriter, r *http.Request, identity model.Identity) {
	ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
	next.ServeHTTP(w, r.WithContext(ctx))
}
