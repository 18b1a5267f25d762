package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personal-channel-bot/bot"
	"personal-channel-bot/config"
	"personal-channel-bot/handlers"
	"personal-channel-bot/utils/database"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := database.NewStore()
	defer store.Close()

	connectCtx, cancelConnect := context.WithCancel(ctx)
	defer cancelConnect()
	connectDone := make(chan struct{})
	if cfg.DatabaseURL != "" {
		open, err := database.Opener(cfg.DatabaseURL, cfg.DatabaseSSLVerify)
		if err != nil {
			log.Fatalf("Error configuring database: %v", err)
		}
		go func() {
			defer close(connectDone)
			err := store.ConnectWithRetry(connectCtx, database.ConnectOptions{
				Open:        open,
				MaxAttempts: cfg.DBMaxAttempts,
				BaseDelay:   cfg.DBRetryBaseDelay,
				MaxDelay:    cfg.DBRetryMaxDelay,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Database unavailable, running in degraded mode: %v", err)
			}
		}()
	} else {
		close(connectDone)
	}

	b, err := bot.New(cfg, store)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}
	handlers.Register(b)

	health, err := bot.StartHealthServer(cfg.Port)
	if err != nil {
		log.Fatalf("Error starting health server: %v", err)
	}

	if err := b.Run(ctx); err != nil {
		log.Printf("Error running bot: %v", err)
	}

	cancelConnect()
	<-connectDone
	b.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping health server: %v", err)
	}
}
