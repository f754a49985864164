package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"basketboard/adapters/backend"
	"basketboard/adapters/postgres"
	"basketboard/internal/config"
	"basketboard/internal/dashboard"
	"basketboard/internal/session"
	"basketboard/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Invalid configuration: %v", err)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	sessions, err := session.NewStore(cfg.Session.StateDir, client)
	if err != nil {
		log.Fatalf("[Main] Failed to initialize session store: %v", err)
	}
	client.SetTokenSource(sessions.Token)
	client.OnSessionExpired(sessions.Expire)

	if restored := sessions.Restore(); restored != nil {
		log.Printf("[Main] Restored session for %s", restored.Username)
	}

	var history dashboard.RunHistory
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		repo, err := postgres.Connect(ctx, cfg.Database.URL)
		cancel()
		if err != nil {
			log.Printf("[Main] Run history disabled: %v", err)
		} else {
			defer repo.Close()
			history = repo
		}
	}

	controller := dashboard.NewController(client, history)

	app, err := ui.NewApp(ui.Config{Port: cfg.Server.Port}, sessions, controller, client)
	if err != nil {
		log.Fatalf("[Main] Failed to create UI app: %v", err)
	}

	log.Printf("[Main] Backend: %s", cfg.Backend.BaseURL)
	log.Fatal(app.Start())
}
