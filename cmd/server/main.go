// main.go - Entry point for the extension marketplace server.
//
// This file sets up the configuration, logging, database, blob storage,
// and starts the REST API server. It also handles graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"

	"github.com/QuestFinTech/ext-market/internal/api"
	"github.com/QuestFinTech/ext-market/internal/config"
	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/storage"
	"github.com/QuestFinTech/ext-market/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ext-market",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	logger.Info("starting extension marketplace server", "version", config.ServerVersion)
	if cfg.ConfigFileUsed != "" {
		logger.Info("configuration loaded", "file", cfg.ConfigFileUsed)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", "path", cfg.DatabasePath, "error", err)
	}
	defer st.Close()

	blobs, err := storage.NewDiskStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", "path", cfg.StoragePath, "error", err)
	}

	listCache := cache.New(5*time.Minute, 10*time.Minute)

	auditService := service.NewAuditLogService(st, logger)
	extensionService := service.NewExtensionService(st, blobs, auditService, listCache, logger)
	versionService := service.NewVersionService(st, blobs, auditService, listCache, logger)
	userService := service.NewUserService(st, auditService, logger)

	// Initialize admin user if not exists
	if _, err := st.GetUserByUsername(st.DB(), "admin"); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Fatal("failed to look up admin user", "error", err)
		}
		if _, err := userService.Create("admin", "admin@localhost", "admin", []models.Role{models.RoleAdmin}); err != nil {
			logger.Fatal("failed to create default admin user", "error", err)
		}
		logger.Info("default administrator user 'admin' created")
	}

	apiLayer := api.New(
		extensionService,
		versionService,
		userService,
		auditService,
		blobs,
		[]byte(cfg.JWTSigningKey),
		time.Duration(cfg.TokenTTLMinutes)*time.Minute,
		logger,
	)

	router := mux.NewRouter()
	apiRouter := router.PathPrefix("/api/v1").Subrouter() // Versioned API
	apiLayer.SetupRoutes(apiRouter)

	server := &http.Server{
		Addr:         cfg.APIServerAddress,
		Handler:      router,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting API server", "address", cfg.APIServerAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownDelay)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown failed", "error", err)
	}
	logger.Info("server shutdown completed")
}
