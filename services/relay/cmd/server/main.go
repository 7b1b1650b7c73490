package main

import (
	"context"
	"net/http"
	"os"

	"healingbuds/pkg/db"
	"healingbuds/pkg/obs"
	"healingbuds/services/relay/internal/config"
	"healingbuds/services/relay/internal/notify"
	"healingbuds/services/relay/internal/webhook"

	"github.com/go-chi/chi/v5"
)

func main() {
	log := obs.NewLogger("relay")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var notifier webhook.Notifier
	if c := notify.New(cfg.EmailBaseURL, cfg.EmailAPIKey, cfg.EmailFrom); c != nil {
		notifier = c
	} else {
		log.Warn("email delivery not configured, notifications disabled")
	}

	h := webhook.NewHandler(
		webhook.NewStore(pool),
		notifier,
		cfg.WebhookSecret,
		cfg.RequireSignature,
		cfg.OrdersURL,
		log,
	)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Post("/webhook", h.HandleEvent)

	log.Info("relay listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
