// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage wraps the S3 object store used for media uploads. Clients
// upload directly against presigned URLs, so the service never proxies file
// bytes.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Options configures the object store client.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // non-empty for MinIO or other S3-compatible stores
	AccessKey string
	SecretKey string

	// PublicBaseURL is the base URL objects are served from. When empty a
	// standard S3 URL is derived from bucket and region.
	PublicBaseURL string
}

// S3Store issues presigned upload URLs and resolves public object URLs.
type S3Store struct {
	client        *s3.S3
	bucket        string
	publicBaseURL string
}

// NewS3Store creates an S3Store from the options.
func NewS3Store(opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsConfig := &aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	// Path-style addressing for MinIO and friends.
	if opts.Endpoint != "" {
		awsConfig.Endpoint = aws.String(opts.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		if strings.HasPrefix(opts.Endpoint, "http://") {
			awsConfig.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return &S3Store{
		client:        s3.New(sess),
		bucket:        opts.Bucket,
		publicBaseURL: strings.TrimSuffix(opts.PublicBaseURL, "/"),
	}, nil
}

// PresignUpload returns a URL against which the client may PUT an object
// with the given content type, valid for ttl.
func (s *S3Store) PresignUpload(key, contentType string, ttl time.Duration) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})

	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presigning upload for %q: %w", key, err)
	}
	return url, nil
}

// ObjectExists reports whether the object was actually uploaded.
func (s *S3Store) ObjectExists(key string) (bool, int64, error) {
	head, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("checking object %q: %w", key, err)
	}
	return true, aws.Int64Value(head.ContentLength), nil
}

// Delete removes an object. Deleting an absent object is not an error.
func (s *S3Store) Delete(key string) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL an uploaded object is served from.
func (s *S3Store) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	region := aws.StringValue(s.client.Config.Region)
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, key)
}
