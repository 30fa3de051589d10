package market

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketdash/internal/coingecko"
)

// Upstream is the slice of the CoinGecko client the service depends on.
type Upstream interface {
	Markets(ctx context.Context, p coingecko.MarketsParams, opts ...coingecko.ClientOption) ([]coingecko.MarketRecord, error)
	CoinDetail(ctx context.Context, id string, opts ...coingecko.ClientOption) (coingecko.CoinDetail, error)
	MarketChart(ctx context.Context, id string, p coingecko.ChartParams, opts ...coingecko.ClientOption) (coingecko.ChartResponse, error)
	SimplePrice(ctx context.Context, ids, vsCurrencies []string, opts ...coingecko.ClientOption) (map[string]map[string]float64, error)
}

// Options configures the service. Zero values fall back to defaults.
type Options struct {
	ListingTTL    time.Duration
	ChartTTL      time.Duration
	RateTTL       time.Duration
	RetryCooldown time.Duration
	// FailureThreshold is the number of consecutive failures allowed
	// before the cooldown gate engages.
	FailureThreshold int
	FallbackRate     float64
	// PrimaryCurrency is what upstream is always queried in.
	PrimaryCurrency string
	// SecondaryCurrency is served by converting primary-denominated data.
	SecondaryCurrency string
	// RateCoinID is the coin whose primary-currency price defines the
	// primary-per-secondary conversion rate.
	RateCoinID string
	PerPage    int
}

func (o *Options) setDefaults() {
	if o.ListingTTL <= 0 {
		o.ListingTTL = 15 * time.Second
	}
	if o.ChartTTL <= 0 {
		o.ChartTTL = 15 * time.Second
	}
	if o.RateTTL <= 0 {
		o.RateTTL = 2 * time.Minute
	}
	if o.RetryCooldown <= 0 {
		o.RetryCooldown = 30 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 1
	}
	if o.FallbackRate <= 0 {
		o.FallbackRate = 0.124
	}
	if o.PrimaryCurrency == "" {
		o.PrimaryCurrency = "usd"
	}
	if o.SecondaryCurrency == "" {
		o.SecondaryCurrency = "vanry"
	}
	if o.RateCoinID == "" {
		o.RateCoinID = "vanar-chain"
	}
	if o.PerPage <= 0 {
		o.PerPage = 50
	}
}

// Service mediates between a rate-limited, occasionally-failing upstream
// and callers that expect a fast, always-usable answer. It owns the
// listing, chart and rate caches, tracks consecutive failures, and falls
// back through cache to synthetic data when upstream is unavailable.
//
// All cache state is guarded by one mutex; overwrites are
// last-write-wins, so overlapping refresh cycles are harmless and
// requests for the same key are deliberately not deduplicated.
type Service struct {
	upstream Upstream
	opts     Options
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	listing  *entry[Snapshot]
	charts   map[chartKey]*entry[TimeSeries]
	rate     *entry[float64]
	failures failureState
	// firstLoad forces an upstream attempt and disables the stale-cache
	// fallback until the first cycle after a reset has completed.
	firstLoad bool
	// live records whether the last completed fetch reached upstream.
	live bool
}

// New builds a service around the given upstream client.
func New(upstream Upstream, opts Options, log *zap.Logger) *Service {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		upstream:  upstream,
		opts:      opts,
		log:       log,
		now:       time.Now,
		charts:    make(map[chartKey]*entry[TimeSeries]),
		firstLoad: true,
	}
}

// GetCryptocurrencies returns the market listing for the currency. The
// result is always usable: live data when upstream answers, otherwise
// the last cached snapshot, otherwise synthetic placeholder data. The
// Source tag records which.
func (s *Service) GetCryptocurrencies(ctx context.Context, currency string, perPage int) Snapshot {
	if perPage <= 0 {
		perPage = s.opts.PerPage
	}

	s.mu.Lock()
	now := s.now()
	forced := s.firstLoad
	if !forced && s.listing != nil && s.listing.value.Currency == currency && s.listing.fresh(now, s.opts.ListingTTL) {
		snap := s.listing.value
		s.mu.Unlock()
		s.log.Debug("listing cache hit", zap.String("currency", currency))
		return snap
	}
	try := s.shouldTryUpstreamLocked(now)
	s.mu.Unlock()

	if try {
		records, err := fetchWithKeyRetry(ctx, func(ctx context.Context, opts ...coingecko.ClientOption) ([]coingecko.MarketRecord, error) {
			return s.upstream.Markets(ctx, coingecko.MarketsParams{
				VsCurrency: s.upstreamCurrency(currency),
				PerPage:    perPage,
			}, opts...)
		})
		if err == nil {
			entries := entriesFromRecords(records)
			if currency == s.opts.SecondaryCurrency {
				entries = convertEntries(entries, s.Rate(ctx))
			}
			snap := Snapshot{
				Entries:   entries,
				Currency:  currency,
				FetchedAt: s.now(),
				Source:    SourceReal,
			}
			s.mu.Lock()
			s.listing = &entry[Snapshot]{value: snap, storedAt: snap.FetchedAt}
			s.failures.reset()
			s.firstLoad = false
			s.live = true
			s.mu.Unlock()
			s.log.Info("listing refreshed",
				zap.String("currency", currency),
				zap.Int("entries", len(entries)))
			return snap
		}
		s.recordFailure(err, "listing")
	}

	// Upstream unavailable: serve the stale snapshot for this currency if
	// one exists, leaving its timestamp untouched so staleness is still
	// detectable next cycle. A forced-fresh cycle skips this.
	s.mu.Lock()
	if !forced && s.listing != nil && s.listing.value.Currency == currency {
		snap := s.listing.value
		snap.Source = SourceCached
		s.mu.Unlock()
		return snap
	}
	s.firstLoad = false
	s.mu.Unlock()

	snap := SyntheticListing(s.now())
	snap.Currency = currency
	if currency == s.opts.SecondaryCurrency {
		snap.Entries = convertEntries(snap.Entries, s.Rate(ctx))
	}
	s.log.Warn("serving synthetic listing", zap.String("currency", currency))
	return snap
}

// GetCoinHistory returns price history for one coin, window and
// currency, with the same cache/fallback chain as the listing path.
func (s *Service) GetCoinHistory(ctx context.Context, coinID string, days int, currency string) TimeSeries {
	key := chartKey{coinID: coinID, days: days, currency: currency}

	s.mu.Lock()
	now := s.now()
	if e := s.charts[key]; e.fresh(now, s.opts.ChartTTL) {
		series := e.value
		s.mu.Unlock()
		s.log.Debug("chart cache hit", zap.String("coin", coinID), zap.Int("days", days))
		return series
	}
	try := s.shouldTryUpstreamLocked(now)
	s.mu.Unlock()

	if try {
		chart, err := fetchWithKeyRetry(ctx, func(ctx context.Context, opts ...coingecko.ClientOption) (coingecko.ChartResponse, error) {
			return s.upstream.MarketChart(ctx, coinID, coingecko.ChartParams{
				VsCurrency: s.upstreamCurrency(currency),
				Days:       days,
			}, opts...)
		})
		if err == nil {
			points := pointsFromPairs(chart.Prices)
			if currency == s.opts.SecondaryCurrency {
				points = convertPoints(points, s.Rate(ctx))
			}
			series := TimeSeries{
				CoinID:    coinID,
				Currency:  currency,
				Days:      days,
				Prices:    points,
				FetchedAt: s.now(),
				Source:    SourceReal,
			}
			s.mu.Lock()
			s.charts[key] = &entry[TimeSeries]{value: series, storedAt: series.FetchedAt}
			s.failures.reset()
			s.live = true
			s.mu.Unlock()
			return series
		}
		s.recordFailure(err, "chart")
	}

	s.mu.Lock()
	if e := s.charts[key]; e != nil {
		series := e.value
		series.Source = SourceCached
		s.mu.Unlock()
		return series
	}
	s.mu.Unlock()

	series := SyntheticSeries(coinID, days, s.now())
	series.Currency = currency
	if currency == s.opts.SecondaryCurrency {
		series.Prices = convertPoints(series.Prices, s.Rate(ctx))
	}
	s.log.Warn("serving synthetic chart", zap.String("coin", coinID), zap.Int("days", days))
	return series
}

// GetCoinData fetches detail data for one coin. The detail path is not
// cached. Network and rate-limit failures fall back to a synthetic
// detail view; any other upstream error is returned to the caller.
func (s *Service) GetCoinData(ctx context.Context, coinID string) (Detail, error) {
	d, err := fetchWithKeyRetry(ctx, func(ctx context.Context, opts ...coingecko.ClientOption) (coingecko.CoinDetail, error) {
		return s.upstream.CoinDetail(ctx, coinID, opts...)
	})
	if err == nil {
		return detailFromCoin(d, s.opts.PrimaryCurrency), nil
	}

	var statusErr *coingecko.StatusError
	if errors.As(err, &statusErr) {
		// Upstream answered with a definite error; surface it so the
		// display layer can offer a retry.
		return Detail{}, err
	}
	s.log.Warn("serving synthetic detail", zap.String("coin", coinID), zap.Error(err))
	return SyntheticDetail(coinID, s.now()), nil
}

// Rate returns the conversion rate (primary-currency units per one unit
// of the rate coin). It serves the cached rate while fresh, refetches on
// expiry, and degrades to the last-known rate or the hardcoded fallback.
// The result is always positive.
func (s *Service) Rate(ctx context.Context) float64 {
	s.mu.Lock()
	now := s.now()
	if s.rate.fresh(now, s.opts.RateTTL) {
		r := s.rate.value
		s.mu.Unlock()
		return r
	}
	var last float64
	if s.rate != nil {
		last = s.rate.value
	}
	s.mu.Unlock()

	prices, err := fetchWithKeyRetry(ctx, func(ctx context.Context, opts ...coingecko.ClientOption) (map[string]map[string]float64, error) {
		return s.upstream.SimplePrice(ctx, []string{s.opts.RateCoinID}, []string{s.opts.PrimaryCurrency}, opts...)
	})
	if err == nil {
		if r := prices[s.opts.RateCoinID][s.opts.PrimaryCurrency]; r > 0 {
			s.mu.Lock()
			s.rate = &entry[float64]{value: r, storedAt: s.now()}
			s.mu.Unlock()
			s.log.Debug("conversion rate refreshed", zap.Float64("rate", r))
			return r
		}
	} else {
		s.log.Warn("rate fetch failed", zap.Error(err))
	}

	if last > 0 {
		return last
	}
	// Never fetched successfully: seed the cache with the fallback so
	// the whole session converts consistently.
	s.mu.Lock()
	if s.rate == nil {
		s.rate = &entry[float64]{value: s.opts.FallbackRate, storedAt: s.now()}
	}
	r := s.rate.value
	s.mu.Unlock()
	return r
}

// ClearCurrencyCache invalidates the listing and chart caches and forces
// the next listing fetch to bypass cache. Called on currency switches.
func (s *Service) ClearCurrencyCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = nil
	s.charts = make(map[chartKey]*entry[TimeSeries])
	s.firstLoad = true
	s.log.Info("currency cache cleared")
}

// ResetDataCache clears all cache and failure state for a fresh session.
// The conversion rate survives the reset if still within its TTL.
func (s *Service) ResetDataCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = nil
	s.charts = make(map[chartKey]*entry[TimeSeries])
	if !s.rate.fresh(s.now(), s.opts.RateTTL) {
		s.rate = nil
	}
	s.failures.reset()
	s.firstLoad = true
	s.live = false
	s.log.Info("data cache reset")
}

// shouldTryUpstreamLocked is the retry gate. Always true right after a
// reset or on the first request of a session; true while the last fetch
// succeeded; otherwise gated for a cooldown window after a failure, with
// attempts resuming once the window has passed.
func (s *Service) shouldTryUpstreamLocked(now time.Time) bool {
	if s.firstLoad {
		return true
	}
	if s.live {
		return true
	}
	if !s.failures.lastFailure.IsZero() && now.Sub(s.failures.lastFailure) < s.opts.RetryCooldown {
		return s.failures.count < s.opts.FailureThreshold
	}
	return true
}

func (s *Service) recordFailure(err error, path string) {
	s.mu.Lock()
	s.failures.record(s.now())
	s.live = false
	count := s.failures.count
	s.mu.Unlock()
	s.log.Warn("upstream fetch failed",
		zap.String("path", path),
		zap.Int("consecutive_failures", count),
		zap.Error(err))
}

// upstreamCurrency maps a requested currency to what upstream is asked
// for: the secondary currency is not quoted upstream, so its requests go
// out in the primary currency and are converted on the way back.
func (s *Service) upstreamCurrency(currency string) string {
	if currency == s.opts.SecondaryCurrency {
		return s.opts.PrimaryCurrency
	}
	return currency
}

// fetchWithKeyRetry runs fn anonymously first and, when upstream signals
// a rate limit, makes exactly one more attempt with the demo key.
func fetchWithKeyRetry[T any](ctx context.Context, fn func(ctx context.Context, opts ...coingecko.ClientOption) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil && errors.Is(err, coingecko.ErrRateLimited) {
		return fn(ctx, coingecko.WithDemoKey())
	}
	return v, err
}
