// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// Actor roles
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

// APIToken represents a bearer token used to authenticate API callers.
// The identity provider is external to the content core; this is the
// minimal collaborator shape it supplies: a role and an optional link
// to an author profile.
type APIToken struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	TokenHash  string        `json:"-"` // Never expose hash in JSON
	TokenPrefix string       `json:"token_prefix"`
	Role       string        `json:"role"`
	AuthorID   sql.NullInt64 `json:"author_id,omitempty"`
	LastUsedAt sql.NullTime  `json:"last_used_at,omitempty"`
	ExpiresAt  sql.NullTime  `json:"expires_at,omitempty"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// GenerateToken generates a new random API token.
// Returns the raw token (to show the caller once) and its prefix.
func GenerateToken() (rawToken string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	rawToken = base64.URLEncoding.EncodeToString(bytes)
	prefix = rawToken[:8]

	return rawToken, prefix, nil
}

// HashToken creates a SHA-256 hash of the token for storage.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Identity is the authenticated actor attached to a request.
type Identity struct {
	TokenID  int64
	Role     string
	AuthorID int64 // zero when the token has no linked author profile
}

// IsAdmin returns true if the identity has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanActOn reports whether the identity may mutate a post owned by authorID.
// Admins may act on any post; authors only on posts linked to their profile.
func (i Identity) CanActOn(authorID int64) bool {
	if i.IsAdmin() {
		return true
	}
	return i.Role == RoleAuthor && i.AuthorID != 0 && i.AuthorID == authorID
}
