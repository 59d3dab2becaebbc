// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

func scanAPIToken(row interface{ Scan(...any) error }) (model.APIToken, error) {
	var t model.APIToken
	err := row.Scan(&t.ID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.Role,
		&t.AuthorID, &t.LastUsedAt, &t.ExpiresAt, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateAPITokenParams holds the columns written when issuing a token.
type CreateAPITokenParams struct {
	Name        string
	TokenHash   string
	TokenPrefix string
	Role        string
	AuthorID    sql.NullInt64
	ExpiresAt   sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAPIToken inserts an API token record and returns the stored row.
func (q *Queries) CreateAPIToken(ctx context.Context, p CreateAPITokenParams) (model.APIToken, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO api_tokens (name, token_hash, token_prefix, role, author_id, expires_at, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.Name, p.TokenHash, p.TokenPrefix, p.Role, p.AuthorID, p.ExpiresAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.APIToken{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.APIToken{}, err
	}
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, token_hash, token_prefix, role, author_id, last_used_at, expires_at, is_active, created_at, updated_at
		 FROM api_tokens WHERE id = ?`, id)
	return scanAPIToken(row)
}

// GetAPITokenByHash returns an API token by its hash.
func (q *Queries) GetAPITokenByHash(ctx context.Context, hash string) (model.APIToken, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, token_hash, token_prefix, role, author_id, last_used_at, expires_at, is_active, created_at, updated_at
		 FROM api_tokens WHERE token_hash = ?`, hash)
	return scanAPIToken(row)
}

// UpdateAPITokenLastUsed records when a token was last presented.
func (q *Queries) UpdateAPITokenLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`, usedAt, id)
	return err
}
