package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/option-engine/internal/limits"
	"github.com/atmx/option-engine/internal/metrics"
	"github.com/atmx/option-engine/internal/pricing"
	"github.com/atmx/option-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}

	port := envString("PORT", "8080")
	quoteTTL := envDuration("QUOTE_TTL", 10*time.Minute)

	// --- Initialize store ---
	var st store.QuoteStore = store.NewMemoryStore()
	var cleanup []func()

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, quotes will fall back to memory", "err", err)
		}
		cancel()

		st = store.NewCachedStore(st, rdb, quoteTTL)
		slog.Info("Redis quote cache enabled", "ttl", quoteTTL.String())
	} else {
		slog.Warn("REDIS_URL not set, quotes are cached in memory only")
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Work limits ---
	limiter := limits.NewLimiter(
		envInt("MAX_STEPS", 2000),
		envInt("MAX_RESOLUTION", 1000000),
		envInt("MAX_HALF_WIDTH", 20000),
	)
	slog.Info("work limits",
		"max_steps", limiter.MaxSteps,
		"max_resolution", limiter.MaxResolution,
		"max_half_width", limiter.MaxHalfWidth,
	)

	// --- WebSocket hub ---
	wsHub := pricing.NewWSHub()
	go wsHub.Run()

	// --- Pricing service ---
	pricingSvc := pricing.NewService(st, limiter, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"option-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// Quotes, probability endpoints and the WebSocket feed.
	r.Route("/api/v1", pricingSvc.Routes)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("option-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down option-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	wsHub.Stop()
	fmt.Println("option-engine stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
