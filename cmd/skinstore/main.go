package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amezhanin/skinstore/internal/app"
	"github.com/amezhanin/skinstore/internal/util/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := app.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger.Log)
	if err != nil {
		logger.Log.Fatal("Startup failed", zap.Error(err))
	}
	defer application.Close()

	runServer(application, cfg)
}

func runServer(application *app.App, cfg *app.Config) {
	application.Server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: application.Router,
	}

	go func() {
		application.Logger.Info("Starting HTTP server",
			zap.String("port", cfg.Port))
		if err := application.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	application.Logger.Info("Shutting down server...")
	if err := application.Shutdown(); err != nil {
		application.Logger.Error("Server shutdown error", zap.Error(err))
	}
}
