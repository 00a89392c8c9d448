package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/docqa"
	"github.com/brunobiangulo/docqa/embedproviders"
	"github.com/brunobiangulo/docqa/vecstore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "docqa.db", "Path to the SQLite vector store")
	embeddingDim := flag.Int("embedding-dim", 768, "Query/chunk embedding dimension")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := docqa.DefaultConfig()
	if *configPath != "" {
		loaded, err := docqa.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if v := os.Getenv("DOCQA_DB_PATH"); v != "" {
		*dbPath = v
	}
	if v := os.Getenv("DOCQA_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("DOCQA_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("DOCQA_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("DOCQA_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	apiKey := os.Getenv("DOCQA_API_KEY")
	corsOrigins := os.Getenv("DOCQA_CORS_ORIGINS")

	embedder, err := embedproviders.New(cfg.Embedding)
	if err != nil {
		slog.Error("creating embedding provider", "error", err)
		os.Exit(1)
	}

	store, err := vecstore.New(*dbPath, *embeddingDim, embedder)
	if err != nil {
		slog.Error("opening vector store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine, err := docqa.New(cfg, store)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /query", h.handleQuery)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
