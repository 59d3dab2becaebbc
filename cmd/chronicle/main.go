// Copyright (c) 2025-2026 Infinite Realms
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/infinite-realms/chronicle/internal/cache"
	"github.com/infinite-realms/chronicle/internal/config"
	"github.com/infinite-realms/chronicle/internal/handler/api"
	"github.com/infinite-realms/chronicle/internal/logging"
	"github.com/infinite-realms/chronicle/internal/model"
	"github.com/infinite-realms/chronicle/internal/scheduler"
	"github.com/infinite-realms/chronicle/internal/service"
	"github.com/infinite-realms/chronicle/internal/storage"
	"github.com/infinite-realms/chronicle/internal/store"
	"github.com/infinite-realms/chronicle/internal/version"
	"github.com/infinite-realms/chronicle/internal/webhook"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "create-token" {
		if err := runCreateToken(os.Args[2:]); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// runCreateToken provisions an API token directly against the database so a
// fresh deployment can mint its first identity without the HTTP surface.
// The raw token is printed once and only its hash is stored.
func runCreateToken(args []string) error {
	fs := flag.NewFlagSet("create-token", flag.ExitOnError)
	name := fs.String("name", "", "Token name (required)")
	role := fs.String("role", model.RoleAuthor, "Token role: admin or author")
	authorName := fs.String("author-name", "", "Author profile to create and link")
	authorEmail := fs.String("author-email", "", "Email for the author profile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return errors.New("-name is required")
	}
	if *role != model.RoleAdmin && *role != model.RoleAuthor {
		return fmt.Errorf("unknown role %q", *role)
	}
	if *role == model.RoleAuthor && (*authorName == "" || *authorEmail == "") {
		return errors.New("author tokens need -author-name and -author-email")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx := context.Background()
	queries := store.New(db)

	var authorID sql.NullInt64
	if *authorName != "" && *authorEmail != "" {
		author, err := queries.CreateAuthor(ctx, store.CreateAuthorParams{
			Name:      *authorName,
			Email:     *authorEmail,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("creating author: %w", err)
		}
		authorID = sql.NullInt64{Int64: author.ID, Valid: true}
		fmt.Printf("author %q created (id %d)\n", author.Name, author.ID)
	}

	raw, prefix, err := model.GenerateToken()
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	now := time.Now()
	token, err := queries.CreateAPIToken(ctx, store.CreateAPITokenParams{
		Name:        *name,
		TokenHash:   model.HashToken(raw),
		TokenPrefix: prefix,
		Role:        *role,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	fmt.Printf("token %q created (id %d, role %s)\n", token.Name, token.ID, token.Role)
	fmt.Println("the token below is shown once; store it now:")
	fmt.Println(raw)
	return nil
}

func run() error {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Text output while developing, JSON in production. WARN and above
	// also land in the events table.
	var outHandler slog.Handler
	if cfg.IsDevelopment() {
		outHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		outHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(logging.NewEventLogHandler(outHandler, db))
	slog.SetDefault(logger)

	info := version.Get()
	logger.Info("starting chronicle",
		"version", info.Version,
		"commit", info.GitCommit,
		"env", cfg.Env)

	appCache, err := cache.New(cache.Options{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheMaxSize,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = appCache.Close() }()
	if cfg.UseRedisCache() {
		logger.Info("cache backend: redis")
	} else {
		logger.Info("cache backend: in-memory")
	}

	queryService := service.NewQueryService(db, appCache)

	// Notifiers: cache invalidation always, webhooks when configured.
	notifiers := []service.Notifier{queryService}
	var dispatcher *webhook.Dispatcher
	if cfg.WebhooksEnabled() {
		dispatcher = webhook.NewDispatcher(webhook.Config{
			URLs:   cfg.WebhookURLs,
			Secret: cfg.WebhookSecret,
		}, logger)
		dispatcher.Start(context.Background())
		defer dispatcher.Stop()
		notifiers = append(notifiers, dispatcher)
	}

	postService := service.NewPostService(db, notifiers...)
	taxonomyService := service.NewTaxonomyService(db)

	var mediaService *service.MediaService
	if cfg.MediaEnabled() {
		objects, err := storage.NewS3Store(storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("initializing object storage: %w", err)
		}
		mediaService = service.NewMediaService(db, objects, time.Duration(cfg.UploadURLTTL)*time.Second)
	} else {
		logger.Info("media storage not configured, media routes disabled")
	}

	sched := scheduler.New(db, logger, notifiers...)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	apiHandler := api.NewHandler(postService, queryService, taxonomyService, mediaService)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Mount("/api/v1", apiHandler.Router(api.RouterOptions{
		DB:          db,
		PublicRPS:   cfg.PublicRateRPS,
		PublicBurst: cfg.PublicRateBurst,
		TokenRPS:    cfg.TokenRateRPS,
		TokenBurst:  cfg.TokenRateBurst,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
