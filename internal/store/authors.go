// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

// CreateAuthorParams holds the columns written when inserting an author.
type CreateAuthorParams struct {
	Name      string
	Email     string
	Bio       string
	CreatedAt time.Time
}

// CreateAuthor inserts an author profile and returns the stored row.
func (q *Queries) CreateAuthor(ctx context.Context, p CreateAuthorParams) (model.Author, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO authors (name, email, bio, created_at) VALUES (?, ?, ?, ?)`,
		p.Name, p.Email, p.Bio, p.CreatedAt)
	if err != nil {
		return model.Author{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Author{}, err
	}
	return q.GetAuthorByID(ctx, id)
}

// GetAuthorByID returns an author profile by id.
func (q *Queries) GetAuthorByID(ctx context.Context, id int64) (model.Author, error) {
	var a model.Author
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, email, bio, created_at FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.CreatedAt)
	return a, err
}

// AuthorExists reports whether an author profile exists.
func (q *Queries) AuthorExists(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM authors WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}
