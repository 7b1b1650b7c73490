package main

import (
	"context"
	"net/http"
	"os"

	"healingbuds/pkg/db"
	"healingbuds/pkg/obs"
	"healingbuds/pkg/signing"
	"healingbuds/services/gateway/internal/authn"
	"healingbuds/services/gateway/internal/cache"
	"healingbuds/services/gateway/internal/config"
	"healingbuds/services/gateway/internal/handler"
	"healingbuds/services/gateway/internal/store"
	"healingbuds/services/gateway/internal/upstream"

	"github.com/go-chi/chi/v5"
)

func main() {
	log := obs.NewLogger("gateway")

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

	signer, err := signing.New(cfg.UpstreamSecret)
	if err != nil {
		log.Error("signer init failed", "error", err)
		os.Exit(1)
	}

	var catalogCache handler.CatalogCache
	if c := cache.New(cfg.RedisAddr, cfg.CatalogCacheTTL); c != nil {
		catalogCache = c
	}

	h := handler.New(
		authn.New(pool),
		store.New(pool),
		upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, signer, cfg.UpstreamTimeout),
		catalogCache,
		cfg.DefaultCountry,
		log,
	)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Post("/api/v1/actions", h.HandleAction)

	log.Info("gateway listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
