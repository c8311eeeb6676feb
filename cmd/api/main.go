package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/cancerdash/internal/api"
	"example.com/cancerdash/internal/auth"
	"example.com/cancerdash/internal/config"
	"example.com/cancerdash/internal/dataset"
	pgdataset "example.com/cancerdash/internal/dataset/postgres"
	"example.com/cancerdash/internal/domain"
	"example.com/cancerdash/internal/observability"
	httptransport "example.com/cancerdash/internal/transport/http"
	"example.com/cancerdash/internal/web"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo domain.Repository
	var reloader api.DatasetReloader

	switch cfg.DatasetStore {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		repo = pgdataset.NewRepository(pool)
	default:
		store := dataset.NewStore(cfg.DataPath)
		if _, err := store.Reload(ctx); err != nil {
			log.Fatalf("failed to load dataset from %s: %v", cfg.DataPath, err)
		}
		repo = store
		reloader = store
	}

	info, err := repo.Info(ctx)
	if err != nil {
		log.Fatalf("failed to read dataset metadata: %v", err)
	}
	observability.RecordDatasetLoaded(info.Rows, info.LoadedAt)
	log.Printf("serving %d observations from %s", info.Rows, info.Source)

	service := domain.NewService(repo, cfg.YearCutoff)
	handler := api.NewHandler(service, reloader)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", web.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:         cfg.HTTPAddress,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("dashboard listening on %s", server.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	if err := server.Shutdown(); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
