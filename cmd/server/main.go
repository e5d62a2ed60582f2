package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"character-chat-relay/pkg/config"
	"character-chat-relay/pkg/di"
	"character-chat-relay/pkg/logger"
	"character-chat-relay/pkg/router"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log, err := logger.NewWithFile(logConfig, cfg.Logging.File)
	if err != nil {
		stdlog.Printf("log file unavailable, using stderr only: %v", err)
	}
	logger.SetGlobal(log)

	log.Info("Starting character chat relay",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"db_driver", cfg.Database.Driver,
	)

	if err := cfg.Validate(); err != nil {
		log.LogError(err, "Invalid configuration")
		os.Exit(1)
	}

	// Build the dependency graph: store, repository, provider, services
	container, err := di.New(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.LogError(err, "Failed to close chat log store")
		}
	}()

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	if err := container.MeterProvider.Shutdown(ctx); err != nil {
		log.LogError(err, "Failed to shut down metrics")
	}

	log.Info("Server exited gracefully")
}
