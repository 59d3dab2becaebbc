// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

func scanMediaAsset(row interface{ Scan(...any) error }) (model.MediaAsset, error) {
	var m model.MediaAsset
	err := row.Scan(&m.ID, &m.Path, &m.PublicURL, &m.Name, &m.ContentType,
		&m.Size, &m.UploadedBy, &m.CreatedAt)
	return m, err
}

// CreateMediaAssetParams holds the columns written when recording an upload.
type CreateMediaAssetParams struct {
	Path        string
	PublicURL   string
	Name        string
	ContentType string
	Size        int64
	UploadedBy  int64
	CreatedAt   time.Time
}

// CreateMediaAsset records an uploaded object and returns the stored row.
func (q *Queries) CreateMediaAsset(ctx context.Context, p CreateMediaAssetParams) (model.MediaAsset, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO media_assets (path, public_url, name, content_type, size, uploaded_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Path, p.PublicURL, p.Name, p.ContentType, p.Size, p.UploadedBy, p.CreatedAt)
	if err != nil {
		return model.MediaAsset{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.MediaAsset{}, err
	}
	return q.GetMediaAssetByID(ctx, id)
}

// GetMediaAssetByID returns a media asset by id.
func (q *Queries) GetMediaAssetByID(ctx context.Context, id int64) (model.MediaAsset, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, path, public_url, name, content_type, size, uploaded_by, created_at
		 FROM media_assets WHERE id = ?`, id)
	return scanMediaAsset(row)
}

// GetMediaAssetByPath returns a media asset by its storage path.
func (q *Queries) GetMediaAssetByPath(ctx context.Context, path string) (model.MediaAsset, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, path, public_url, name, content_type, size, uploaded_by, created_at
		 FROM media_assets WHERE path = ?`, path)
	return scanMediaAsset(row)
}

// ListMediaAssetsByPrefix returns assets whose path starts with prefix,
// newest first.
func (q *Queries) ListMediaAssetsByPrefix(ctx context.Context, prefix string, limit, offset int64) ([]model.MediaAsset, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, path, public_url, name, content_type, size, uploaded_by, created_at
		 FROM media_assets
		 WHERE path LIKE ? || '%'
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, prefix, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var assets []model.MediaAsset
	for rows.Next() {
		m, err := scanMediaAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, m)
	}
	return assets, rows.Err()
}

// CountMediaAssetsByPrefix returns the number of assets under a prefix.
func (q *Queries) CountMediaAssetsByPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_assets WHERE path LIKE ? || '%'`, prefix).Scan(&n)
	return n, err
}

// DeleteMediaAsset removes an asset record.
func (q *Queries) DeleteMediaAsset(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM media_assets WHERE id = ?`, id)
	return err
}
