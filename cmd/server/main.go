package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketdash/internal/coingecko"
	"marketdash/internal/config"
	"marketdash/internal/httpx"
	"marketdash/internal/market"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	logger := newLogger()
	defer logger.Sync()

	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	httpClient := httpx.New(timeout)

	if cfg.CoinGecko.APIKey == "" {
		logger.Warn("COINGECKO_API_KEY not set; rate-limit retries will run without credentials")
	}

	client, err := coingecko.NewClient(cfg.CoinGecko.APIKey,
		coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
		coingecko.WithHTTPClient(httpClient),
	)
	if err != nil {
		logger.Fatal("coingecko client", zap.Error(err))
	}

	svc := market.New(client, market.Options{
		ListingTTL:        time.Duration(cfg.Cache.ListingTTLSec) * time.Second,
		ChartTTL:          time.Duration(cfg.Cache.ChartTTLSec) * time.Second,
		RateTTL:           time.Duration(cfg.Cache.RateTTLSec) * time.Second,
		RetryCooldown:     time.Duration(cfg.Cache.RetryCooldownSec) * time.Second,
		FailureThreshold:  cfg.Cache.FailureThreshold,
		FallbackRate:      cfg.Cache.FallbackRate,
		PrimaryCurrency:   cfg.Currencies.Primary,
		SecondaryCurrency: cfg.Currencies.Secondary,
		RateCoinID:        cfg.CoinGecko.RateCoinID,
		PerPage:           cfg.DefaultPerPage,
	}, logger)

	ref := market.NewRefresher(svc, market.RefresherOptions{
		ListingInterval: time.Duration(cfg.Refresh.ListingIntervalSec) * time.Second,
		ChartInterval:   time.Duration(cfg.Refresh.ChartIntervalSec) * time.Second,
		ChartDays:       cfg.Refresh.ChartWindowDays,
		PerPage:         cfg.DefaultPerPage,
		Currency:        cfg.Currencies.Primary,
		TrackedCoins:    cfg.Refresh.TrackedCoins,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ref.Start(ctx)
	defer ref.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/coins", func(w http.ResponseWriter, r *http.Request) {
		handleGetCoins(w, r, svc, cfg.Currencies.Primary)
	})
	mux.HandleFunc("GET /api/coins/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetCoin(w, r, svc)
	})
	mux.HandleFunc("GET /api/coins/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		handleGetCoinHistory(w, r, svc, cfg.Currencies.Primary)
	})
	mux.HandleFunc("GET /api/rate", func(w http.ResponseWriter, r *http.Request) {
		handleGetRate(w, r, svc)
	})
	mux.HandleFunc("POST /api/currency", func(w http.ResponseWriter, r *http.Request) {
		handleSetCurrency(w, r, ref)
	})
	mux.HandleFunc("POST /api/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		handleClearCache(w, r, svc)
	})
	mux.HandleFunc("POST /api/cache/reset", func(w http.ResponseWriter, r *http.Request) {
		handleResetCache(w, r, svc)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("APP_ENV") == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
