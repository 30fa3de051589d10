package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type CoinGecko struct {
	BaseURL string `json:"base_url"`
	// APIKey is the optional demo key attached only on the retry after a
	// rate-limit response. Set via COINGECKO_API_KEY.
	APIKey     string `json:"api_key"`
	RateCoinID string `json:"rate_coin_id"`
}

type Cache struct {
	ListingTTLSec    int     `json:"listing_ttl_sec"`
	ChartTTLSec      int     `json:"chart_ttl_sec"`
	RateTTLSec       int     `json:"rate_ttl_sec"`
	RetryCooldownSec int     `json:"retry_cooldown_sec"`
	FailureThreshold int     `json:"failure_threshold"`
	FallbackRate     float64 `json:"fallback_rate"`
}

type Refresh struct {
	ListingIntervalSec int      `json:"listing_interval_sec"`
	ChartIntervalSec   int      `json:"chart_interval_sec"`
	ChartWindowDays    int      `json:"chart_window_days"`
	TrackedCoins       []string `json:"tracked_coins"`
}

type Currencies struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

type Config struct {
	Server         Server     `json:"server"`
	CoinGecko      CoinGecko  `json:"coingecko"`
	Cache          Cache      `json:"cache"`
	Refresh        Refresh    `json:"refresh"`
	Currencies     Currencies `json:"currencies"`
	DefaultPerPage int        `json:"default_per_page"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15},
		CoinGecko: CoinGecko{
			BaseURL:    "https://api.coingecko.com/api/v3",
			RateCoinID: "vanar-chain",
		},
		Cache: Cache{
			ListingTTLSec:    15,
			ChartTTLSec:      15,
			RateTTLSec:       120,
			RetryCooldownSec: 30,
			FailureThreshold: 1,
			FallbackRate:     0.124,
		},
		Refresh: Refresh{
			ListingIntervalSec: 5,
			ChartIntervalSec:   30,
			ChartWindowDays:    7,
			TrackedCoins:       []string{"bitcoin", "ethereum", "vanar-chain"},
		},
		Currencies: Currencies{
			Primary:   "usd",
			Secondary: "vanry",
		},
		DefaultPerPage: 50,
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select
// fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		cfg.CoinGecko.BaseURL = v
	}
	if v := os.Getenv("RATE_COIN_ID"); v != "" {
		cfg.CoinGecko.RateCoinID = v
	}
	if v := os.Getenv("LISTING_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.ListingTTLSec = x
		}
	}
	if v := os.Getenv("CHART_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.ChartTTLSec = x
		}
	}
	if v := os.Getenv("RATE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.RateTTLSec = x
		}
	}
	if v := os.Getenv("RETRY_COOLDOWN_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Cache.RetryCooldownSec = x
		}
	}
	if v := os.Getenv("FAILURE_THRESHOLD"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Cache.FailureThreshold = x
		}
	}
	if v := os.Getenv("FALLBACK_RATE"); v != "" {
		var x float64
		fmt.Sscanf(v, "%g", &x)
		if x > 0 {
			cfg.Cache.FallbackRate = x
		}
	}
	if v := os.Getenv("LISTING_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Refresh.ListingIntervalSec = x
		}
	}
	if v := os.Getenv("CHART_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Refresh.ChartIntervalSec = x
		}
	}
	if v := os.Getenv("CHART_WINDOW_DAYS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Refresh.ChartWindowDays = x
		}
	}
	if v := os.Getenv("TRACKED_COINS"); v != "" {
		cfg.Refresh.TrackedCoins = splitCSV(v)
	}
	if v := os.Getenv("PRIMARY_CURRENCY"); v != "" {
		cfg.Currencies.Primary = strings.ToLower(v)
	}
	if v := os.Getenv("SECONDARY_CURRENCY"); v != "" {
		cfg.Currencies.Secondary = strings.ToLower(v)
	}
	if v := os.Getenv("DEFAULT_PER_PAGE"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.DefaultPerPage = x
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
