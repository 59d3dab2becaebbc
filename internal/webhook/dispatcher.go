// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/infinite-realms/chronicle/internal/model"
)

// Delivery configuration constants.
const (
	MaxAttempts    = 3
	RetryDelay     = 30 * time.Second
	RequestTimeout = 30 * time.Second
	MaxResponseLen = 10 * 1024
	UserAgent      = "Chronicle/1.0"
)

// httpClient is the shared HTTP client for deliveries.
var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Dispatcher fans post change events out to the configured endpoint URLs
// over a bounded worker pool. It implements service.Notifier.
type Dispatcher struct {
	urls    []string
	secret  string
	logger  *slog.Logger
	queue   chan *delivery
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

type delivery struct {
	URL     string
	Event   string
	Payload []byte
	Attempt int
}

// Config holds dispatcher configuration.
type Config struct {
	URLs    []string
	Secret  string
	Workers int
}

// NewDispatcher creates a dispatcher. It delivers nothing until Start is
// called.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		urls:    cfg.URLs,
		secret:  cfg.Secret,
		logger:  logger,
		queue:   make(chan *delivery, 100),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.workers, "endpoints", len(d.urls))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop drains the workers and stops the dispatcher.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

// PostChanged implements service.Notifier: it queues the change event for
// every configured endpoint.
func (d *Dispatcher) PostChanged(_ context.Context, action string, post model.Post) {
	data := PostEventData{
		ID:       post.ID,
		Title:    post.Title,
		Slug:     post.Slug,
		Status:   post.Status,
		AuthorID: post.AuthorID,
	}
	if post.PublishedAt.Valid {
		data.PublishedAt = post.PublishedAt.Time.Format(time.RFC3339)
	}

	if err := d.Dispatch(NewEvent(action, data)); err != nil {
		d.logger.Error("failed to dispatch post event", "action", action, "post_id", post.ID, "error", err)
	}
}

// Dispatch queues an event for delivery to every endpoint.
func (d *Dispatcher) Dispatch(event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Warn("dispatcher not running, dropping event", "event_type", event.Type)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	for _, url := range d.urls {
		d.enqueue(&delivery{
			URL:     url,
			Event:   event.Type,
			Payload: payload,
			Attempt: 1,
		})
	}
	return nil
}

func (d *Dispatcher) enqueue(del *delivery) {
	select {
	case d.queue <- del:
	default:
		d.logger.Warn("webhook queue full, dropping delivery", "url", del.URL, "event", del.Event)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case del := <-d.queue:
			d.process(ctx, del)
		}
	}
}

// process attempts one delivery, re-queueing transient failures until
// MaxAttempts is reached.
func (d *Dispatcher) process(ctx context.Context, del *delivery) {
	statusCode, retryable, err := d.attempt(ctx, del)
	if err == nil {
		d.logger.Info("webhook delivered",
			"url", del.URL,
			"event", del.Event,
			"status_code", statusCode)
		return
	}

	if !retryable || del.Attempt >= MaxAttempts {
		d.logger.Warn("webhook delivery abandoned",
			"url", del.URL,
			"event", del.Event,
			"attempts", del.Attempt,
			"error", err)
		return
	}

	d.logger.Info("webhook delivery will retry",
		"url", del.URL,
		"event", del.Event,
		"attempt", del.Attempt,
		"error", err)

	del.Attempt++
	go func() {
		select {
		case <-time.After(RetryDelay):
			d.enqueue(del)
		case <-d.done:
		}
	}()
}

// attempt performs the HTTP POST. The boolean reports whether a failure is
// worth retrying.
func (d *Dispatcher) attempt(ctx context.Context, del *delivery) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, del.URL, bytes.NewReader(del.Payload))
	if err != nil {
		return 0, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Webhook-Event", del.Event)
	if d.secret != "" {
		req.Header.Set("X-Webhook-Signature", GenerateSignature(del.Payload, d.secret))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain a bounded slice of the body so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, false, nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		retryable := resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests
		return resp.StatusCode, retryable, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return resp.StatusCode, true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(GenerateSignature(payload, secret)))
}
