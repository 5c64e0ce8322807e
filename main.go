package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using process environment")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := createDatabaseConnection(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := db.close(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	if cfg.SeedPassword != "" {
		if err = db.seedDemoData(ctx, cfg.SeedPassword); err != nil {
			log.WithError(err).Fatal("Failed to seed demo data")
		}
	}

	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	var sms smsSender
	if cfg.smsEnabled() {
		sms = newTwilioSender(cfg)
		log.Info("Guardian SMS enabled")
	}

	h := newHandler(cfg, db, sessions, sms)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
