package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"marketdash/internal/coingecko"
	"marketdash/internal/market"
)

// dashboardAPI is what the handlers need from the market service.
type dashboardAPI interface {
	GetCryptocurrencies(ctx context.Context, currency string, perPage int) market.Snapshot
	GetCoinData(ctx context.Context, coinID string) (market.Detail, error)
	GetCoinHistory(ctx context.Context, coinID string, days int, currency string) market.TimeSeries
	Rate(ctx context.Context) float64
	ClearCurrencyCache()
	ResetDataCache()
}

// currencySwitcher re-arms the refresher when the UI changes currency.
type currencySwitcher interface {
	SetCurrency(currency string)
}

func handleGetCoins(w http.ResponseWriter, r *http.Request, svc dashboardAPI, defaultCurrency string) {
	currency := strings.ToLower(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = defaultCurrency
	}
	perPage := 0
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 250 {
			http.Error(w, "invalid per_page", http.StatusBadRequest)
			return
		}
		perPage = n
	}
	writeJSON(w, svc.GetCryptocurrencies(r.Context(), currency, perPage))
}

func handleGetCoin(w http.ResponseWriter, r *http.Request, svc dashboardAPI) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing coin id", http.StatusBadRequest)
		return
	}
	detail, err := svc.GetCoinData(r.Context(), id)
	if err != nil {
		var statusErr *coingecko.StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			http.Error(w, err.Error(), statusErr.Code)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, detail)
}

func handleGetCoinHistory(w http.ResponseWriter, r *http.Request, svc dashboardAPI, defaultCurrency string) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing coin id", http.StatusBadRequest)
		return
	}
	currency := strings.ToLower(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = defaultCurrency
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	writeJSON(w, svc.GetCoinHistory(r.Context(), id, days, currency))
}

func handleGetRate(w http.ResponseWriter, r *http.Request, svc dashboardAPI) {
	writeJSON(w, map[string]float64{"rate": svc.Rate(r.Context())})
}

type currencyBody struct {
	Currency string `json:"currency"`
}

func handleSetCurrency(w http.ResponseWriter, r *http.Request, ref currencySwitcher) {
	var b currencyBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil || strings.TrimSpace(b.Currency) == "" {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	ref.SetCurrency(strings.ToLower(b.Currency))
	w.WriteHeader(http.StatusNoContent)
}

func handleClearCache(w http.ResponseWriter, _ *http.Request, svc dashboardAPI) {
	svc.ClearCurrencyCache()
	w.WriteHeader(http.StatusNoContent)
}

func handleResetCache(w http.ResponseWriter, _ *http.Request, svc dashboardAPI) {
	svc.ResetDataCache()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
