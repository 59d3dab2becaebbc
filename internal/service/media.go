// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/store"
)

// ObjectStore is the slice of the object store the media service needs.
// *storage.S3Store satisfies it.
type ObjectStore interface {
	PresignUpload(key, contentType string, ttl time.Duration) (string, error)
	ObjectExists(key string) (bool, int64, error)
	Delete(key string) error
	PublicURL(key string) string
}

// MediaService issues signed upload URLs and tracks uploaded assets. Files
// travel directly between the client and the object store.
type MediaService struct {
	queries   *store.Queries
	objects   ObjectStore
	uploadTTL time.Duration
}

// NewMediaService creates a MediaService. A zero uploadTTL defaults to
// 15 minutes.
func NewMediaService(db *sql.DB, objects ObjectStore, uploadTTL time.Duration) *MediaService {
	if uploadTTL == 0 {
		uploadTTL = 15 * time.Minute
	}
	return &MediaService{
		queries:   store.New(db),
		objects:   objects,
		uploadTTL: uploadTTL,
	}
}

// SignedUpload is the response to a sign-upload request.
type SignedUpload struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUpload validates the requested upload and returns a presigned PUT URL.
// The object key is namespaced by year/month and randomized, keeping the
// original extension. Admin only.
func (s *MediaService) SignUpload(ctx context.Context, actor model.Identity, filename, contentType string) (SignedUpload, error) {
	if !actor.IsAdmin() {
		return SignedUpload{}, ErrPermission
	}

	fieldErrors := make(map[string]string)
	if filename == "" {
		fieldErrors["filename"] = "Filename is required"
	}
	if !model.IsAllowedUploadType(contentType) {
		fieldErrors["content_type"] = fmt.Sprintf("Content type %q is not allowed", contentType)
	}
	if len(fieldErrors) > 0 {
		return SignedUpload{}, &ValidationError{Fields: fieldErrors}
	}

	ext := strings.ToLower(path.Ext(filename))
	now := time.Now().UTC()
	key := fmt.Sprintf("uploads/%04d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)

	uploadURL, err := s.objects.PresignUpload(key, contentType, s.uploadTTL)
	if err != nil {
		return SignedUpload{}, fmt.Errorf("signing upload: %w", err)
	}

	return SignedUpload{
		UploadURL: uploadURL,
		Key:       key,
		PublicURL: s.objects.PublicURL(key),
		ExpiresAt: now.Add(s.uploadTTL),
	}, nil
}

// Confirm verifies the object landed in the store and records the asset.
// Admin only, matching SignUpload.
func (s *MediaService) Confirm(ctx context.Context, actor model.Identity, key, name, contentType string) (model.MediaAsset, error) {
	if !actor.IsAdmin() {
		return model.MediaAsset{}, ErrPermission
	}
	if key == "" {
		return model.MediaAsset{}, NewValidationError("key", "Key is required")
	}

	exists, size, err := s.objects.ObjectExists(key)
	if err != nil {
		return model.MediaAsset{}, err
	}
	if !exists {
		return model.MediaAsset{}, NewValidationError("key", "No uploaded object found for this key")
	}

	if name == "" {
		name = path.Base(key)
	}

	asset, err := s.queries.CreateMediaAsset(ctx, store.CreateMediaAssetParams{
		Path:        key,
		PublicURL:   s.objects.PublicURL(key),
		Name:        name,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  actor.TokenID,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.MediaAsset{}, &ConflictError{Field: "key", Value: key}
		}
		return model.MediaAsset{}, fmt.Errorf("recording media asset: %w", err)
	}
	return asset, nil
}

// List returns assets under the given key prefix, newest first.
func (s *MediaService) List(ctx context.Context, actor model.Identity, prefix string, limit, offset int64) ([]model.MediaAsset, int64, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleAuthor {
		return nil, 0, ErrPermission
	}
	if limit < 1 || limit > MaxPageSize {
		limit = 50
	}

	assets, err := s.queries.ListMediaAssetsByPrefix(ctx, prefix, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing media assets: %w", err)
	}
	total, err := s.queries.CountMediaAssetsByPrefix(ctx, prefix)
	if err != nil {
		return nil, 0, fmt.Errorf("counting media assets: %w", err)
	}
	return assets, total, nil
}

// Delete removes an asset record and its stored object. Admin only.
func (s *MediaService) Delete(ctx context.Context, actor model.Identity, id int64) error {
	if !actor.IsAdmin() {
		return ErrPermission
	}

	asset, err := s.queries.GetMediaAssetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("fetching media asset: %w", err)
	}

	if err := s.objects.Delete(asset.Path); err != nil {
		return err
	}
	return s.queries.DeleteMediaAsset(ctx, id)
}
