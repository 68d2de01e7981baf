package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/post-comb/app/api"
	"github.com/lysyi3m/post-comb/app/cfg"
	"github.com/lysyi3m/post-comb/app/content"
	"github.com/lysyi3m/post-comb/app/database"
	"github.com/lysyi3m/post-comb/app/feed"
	"github.com/lysyi3m/post-comb/app/readingtime"
	"github.com/lysyi3m/post-comb/app/tasks"
)

const postModel = "blog-post"

func main() {
	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		// --help
		return
	}

	setupLogger(config.Debug)

	if err := run(config); err != nil {
		slog.Error("Post Comb stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg) error {
	slog.Info("Starting Post Comb", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	sourceRepo := database.NewSourceRepository(db)

	var opts []readingtime.Option
	if config.StrictNormalization {
		opts = append(opts, readingtime.WithStrictNormalization())
	}
	annotator := readingtime.NewAnnotator(readingtime.NewEstimator(config.WordsPerMinute), opts...)

	pipeline := content.NewPipeline(postModel, postRepo)
	if config.StrictNormalization {
		pipeline.Register(annotator)
	} else {
		pipeline.OnBeforeCreate(content.RecordHook(annotator.Annotate))
		pipeline.OnBeforeUpdate(content.RecordHook(annotator.Annotate))
	}
	slog.Info("Reading time annotator registered",
		"model", pipeline.Model(),
		"words_per_minute", config.WordsPerMinute,
		"strict", config.StrictNormalization)

	configCache := feed.NewConfigCache(config.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "dir", config.SourcesDir, "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: 60 * time.Second}

	scheduler := tasks.NewScheduler(configCache, sourceRepo, postRepo, pipeline, httpClient,
		feed.NewParser(), feed.NewFilterer(), feed.NewContentExtractor())
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(configCache, postRepo, sourceRepo, pipeline, annotator, scheduler, config.FeedMaxItems)
	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      api.NewServer(handler, config.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port, "feed", feed.PublicBaseURL(config)+"/feed.xml")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Post Comb shutdown complete")
	return runErr
}
