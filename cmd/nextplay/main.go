package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sougata-github/next-play/internal/api"
	"github.com/sougata-github/next-play/internal/config"
	"github.com/sougata-github/next-play/internal/db"
	"github.com/sougata-github/next-play/internal/genai"
	"github.com/sougata-github/next-play/internal/jobs"
	"github.com/sougata-github/next-play/internal/repository"
	"github.com/sougata-github/next-play/internal/scheduler"
	"github.com/sougata-github/next-play/internal/storage"
	"github.com/sougata-github/next-play/internal/transcode"
)

// defaultCategories is seeded at startup; inserts are idempotent so restarts
// never duplicate rows.
var defaultCategories = map[string]string{
	"Cars and vehicles":      "Vehicles, motorsports and rides",
	"Comedy":                 "Sketches, stand-up and funny moments",
	"Education":              "Tutorials, lectures and explainers",
	"Gaming":                 "Playthroughs, esports and reviews",
	"Entertainment":          "Shows, highlights and pop culture",
	"Film and animation":     "Short films, trailers and animation",
	"How-to and style":       "DIY, fashion and life skills",
	"Music":                  "Performances, mixes and music videos",
	"News and politics":      "Current events and commentary",
	"People and blogs":       "Vlogs and personal stories",
	"Pets and animals":       "Wildlife and companion animals",
	"Science and technology": "Research, gadgets and engineering",
	"Sports":                 "Matches, training and highlights",
	"Travel and events":      "Destinations, festivals and trips",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	users := repository.NewUserRepository(database.DB)
	categories := repository.NewCategoryRepository(database.DB)
	videos := repository.NewVideoRepository(database.DB)
	comments := repository.NewCommentRepository(database.DB)
	reactions := repository.NewReactionRepository(database.DB)
	commentReactions := repository.NewCommentReactionRepository(database.DB)
	subscriptions := repository.NewSubscriptionRepository(database.DB)
	playlists := repository.NewPlaylistRepository(database.DB)
	views := repository.NewViewRepository(database.DB)
	cleanups := repository.NewCleanupRepository(database.DB)

	if err := categories.Seed(defaultCategories); err != nil {
		log.Fatal().Err(err).Msg("category seed failed")
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage connection failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureBucket(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("bucket check failed")
	}
	cancel()

	cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer cache.Close()

	transcoder := transcode.NewClient(cfg.Transcode)
	generator := genai.NewClient(cfg.GenAI)
	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Close()
	hub := api.NewStudioHub()

	server := api.NewServer(api.Deps{
		Config:           cfg,
		Users:            users,
		Categories:       categories,
		Videos:           videos,
		Comments:         comments,
		Reactions:        reactions,
		CommentReactions: commentReactions,
		Subscriptions:    subscriptions,
		Playlists:        playlists,
		Views:            views,
		Cleanups:         cleanups,
		Transcode:        transcoder,
		Store:            store,
		GenAI:            generator,
		Queue:            queue,
		Cache:            cache,
		Hub:              hub,
	})

	// Generation tasks run in-process alongside the API.
	worker := jobs.NewGenerationWorker(videos, generator, transcoder, store, cleanups, hub)
	taskMux := asynq.NewServeMux()
	worker.Register(taskMux)
	taskServer := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{Concurrency: 4},
	)
	go func() {
		if err := taskServer.Run(taskMux); err != nil {
			log.Fatal().Err(err).Msg("task server stopped")
		}
	}()

	maintenance, err := scheduler.New(cleanups, store, server.Limiter())
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	maintenance.Start()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	taskServer.Shutdown()
	<-maintenance.Stop().Done()
	log.Info().Msg("goodbye")
}
