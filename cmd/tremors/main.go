// Command tremors runs the music catalog backend: library scanning,
// catalog browsing, and audio streaming over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/logger"
	"github.com/qtremors/tremors-music/internal/scanner"
	"github.com/qtremors/tremors-music/internal/server"
)

func main() {
	configPath := flag.String("config", "tremors.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Logging.Level)

	if err := database.Initialize(&cfg.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	scans := scanner.NewManager(database.GetDB(), bus, cfg.Scanner)

	gin.SetMode(gin.ReleaseMode)
	router := server.SetupRouter(cfg, database.GetDB(), scans, bus)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", "address", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	bus.Publish(events.NewSystemEvent(events.EventSystemStarted, "Backend started", ""))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := scans.StopScan(); err == nil {
		scans.Wait()
	}
	bus.Publish(events.NewSystemEvent(events.EventSystemStopped, "Backend stopping", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
