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

	"github.com/growthpath/growthpath-be/internal/api"
	"github.com/growthpath/growthpath-be/internal/api/handlers"
	"github.com/growthpath/growthpath-be/internal/auth"
	"github.com/growthpath/growthpath-be/internal/config"
	"github.com/growthpath/growthpath-be/internal/database"
	"github.com/growthpath/growthpath-be/internal/logger"
	"github.com/growthpath/growthpath-be/internal/monitoring"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/growthpath/growthpath-be/internal/sentry"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/growthpath/growthpath-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

const (
	startupTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	statInterval    = 15 * time.Second
)

type repositories struct {
	users    repository.UserRepository
	children repository.ChildRepository
	paths    repository.PathRepository
	events   repository.EventRepository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	sentryService := sentry.NewSentryService(cfg.SentryDSN, cfg.Env)
	defer sentryService.Flush(2 * time.Second)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	// Set up database
	var (
		repos     repositories
		pinger    handlers.Pinger
		connector *database.Connector
	)
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		log.Warn().Msg("Using the in-memory store; all data is lost on exit")
		store := repository.NewMemoryStore()
		repos = repositories{store.Users(), store.Children(), store.Paths(), store.Events()}
	default:
		opts := database.DefaultOptions(cfg.MongoURI, cfg.MongoDatabase)
		opts.TLS = cfg.MongoTLS
		opts.MaxPoolSize = cfg.MongoMaxPool
		opts.MinPoolSize = cfg.MongoMinPool

		connector = database.NewConnector(opts)
		db, err := connector.Connect(startupCtx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		if err := db.EnsureIndexes(startupCtx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create database indexes")
		}
		pinger = db
		repos = repositories{
			users:    repository.NewMongoUserRepository(db),
			children: repository.NewMongoChildRepository(db),
			paths:    repository.NewMongoPathRepository(db),
			events:   repository.NewMongoEventRepository(db),
		}
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session tokens")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(repos.events, hub)
	childService := services.NewChildService(repos.users, repos.children, repos.paths, eventService)
	userService := services.NewUserService(repos.users, childService, auth.NewHasher(cfg.BcryptCost), eventService)
	pathService := services.NewPathService(repos.paths)

	if cfg.SeedPaths {
		if _, err := pathService.SeedPaths(startupCtx, services.DefaultCatalog()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed the path catalog")
		}
	}

	// Set up and run the background stats updater
	statUpdater, err := monitoring.NewStatUpdater(statInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stat updater")
	}
	go statUpdater.Run()

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.EventPruneSchedule, cfg.EventRetention, sentryService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	scheduler.Start()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Users:        userService,
		Children:     childService,
		Paths:        pathService,
		Events:       eventService,
		Sessions:     tokens,
		Hub:          hub,
		DB:           pinger,
		Stats:        statUpdater,
		Reporter:     sentryService,
		CORSOrigins:  cfg.CORSOrigins,
		CookieSecure: cfg.CookieSecure,
		LoginRate:    cfg.LoginRate,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	statUpdater.Stop() // Stop the monitoring service
	scheduler.Stop(ctx)
	hub.Stop()

	if connector != nil {
		if err := connector.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close MongoDB connection")
		}
	}

	log.Info().Msg("Server exiting")
}
