package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketdash/internal/coingecko"
	"marketdash/internal/config"
	"marketdash/internal/httpx"
	"marketdash/internal/market"
)

// One-shot fetch for inspection: prints a listing snapshot, a coin
// detail, or a price series as indented JSON.
func main() {
	var currency string
	var perPage int
	var coin string
	var days int
	var detail bool
	var timeout int
	var configPath string

	flag.StringVar(&currency, "currency", getenv("CURRENCY", "usd"), "listing currency (usd or vanry)")
	flag.IntVar(&perPage, "per-page", 10, "listing page size")
	flag.StringVar(&coin, "coin", "", "coin id; fetches history (or detail with -detail) instead of the listing")
	flag.IntVar(&days, "days", 7, "history window in days")
	flag.BoolVar(&detail, "detail", false, "fetch coin detail instead of history")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	httpClient := httpx.New(time.Duration(timeout) * time.Second)
	client, err := coingecko.NewClient(cfg.CoinGecko.APIKey,
		coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
		coingecko.WithHTTPClient(httpClient),
	)
	if err != nil {
		log.Fatalf("coingecko client: %v", err)
	}

	svc := market.New(client, market.Options{
		FailureThreshold:  cfg.Cache.FailureThreshold,
		FallbackRate:      cfg.Cache.FallbackRate,
		PrimaryCurrency:   cfg.Currencies.Primary,
		SecondaryCurrency: cfg.Currencies.Secondary,
		RateCoinID:        cfg.CoinGecko.RateCoinID,
		PerPage:           cfg.DefaultPerPage,
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var out any
	switch {
	case coin != "" && detail:
		d, err := svc.GetCoinData(ctx, coin)
		if err != nil {
			log.Fatalf("detail: %v", err)
		}
		out = d
	case coin != "":
		out = svc.GetCoinHistory(ctx, coin, days, currency)
	default:
		out = svc.GetCryptocurrencies(ctx, currency, perPage)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
