// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Supported MIME types for uploads
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// IsAllowedUploadType reports whether the content type may be uploaded.
func IsAllowedUploadType(contentType string) bool {
	switch contentType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	}
	return false
}

// MediaAsset represents an uploaded object tracked by storage path.
// The path acts as the asset's key; assets are never updated after creation.
type MediaAsset struct {
	ID          int64     `json:"id"`
	Path        string    `json:"path"`
	PublicURL   string    `json:"public_url"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
