package market

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dashboard is the slice of the service the refresher drives.
type dashboard interface {
	GetCryptocurrencies(ctx context.Context, currency string, perPage int) Snapshot
	GetCoinHistory(ctx context.Context, coinID string, days int, currency string) TimeSeries
	ClearCurrencyCache()
}

// RefresherOptions configures the periodic refresh loop.
type RefresherOptions struct {
	// ListingInterval drives the listing refresh tick.
	ListingInterval time.Duration
	// ChartInterval drives the chart refresh tick.
	ChartInterval time.Duration
	// ChartDays is the lookback window kept warm for tracked coins.
	ChartDays int
	PerPage   int
	Currency  string
	// TrackedCoins are the coin ids whose charts are refreshed.
	TrackedCoins []string
}

func (o *RefresherOptions) setDefaults() {
	if o.ListingInterval <= 0 {
		o.ListingInterval = 5 * time.Second
	}
	if o.ChartInterval <= 0 {
		o.ChartInterval = 30 * time.Second
	}
	if o.ChartDays <= 0 {
		o.ChartDays = 7
	}
	if o.Currency == "" {
		o.Currency = "usd"
	}
}

// Refresher keeps the caches warm with two independent periodic ticks: a
// fast listing tick and a slower chart tick. Ticks can be paused and
// resumed, and are re-armed when the currency changes. A superseded tick
// is not cancelled; its result is simply overwritten by the next cycle.
type Refresher struct {
	svc  dashboard
	log  *zap.Logger
	opts RefresherOptions

	mu       sync.Mutex
	currency string
	tracked  []string
	paused   bool
	cancel   context.CancelFunc
	done     chan struct{}
	rearm    chan struct{}
}

// NewRefresher builds a refresher over the service.
func NewRefresher(svc dashboard, opts RefresherOptions, log *zap.Logger) *Refresher {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{
		svc:      svc,
		log:      log,
		opts:     opts,
		currency: opts.Currency,
		tracked:  append([]string(nil), opts.TrackedCoins...),
		rearm:    make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. It is a no-op if already running.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop halts the loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Pause suspends refresh work without tearing down the loop.
func (r *Refresher) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume re-enables refresh work after a Pause.
func (r *Refresher) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

// SetCurrency switches the refreshed currency, clears the currency-bound
// caches and re-arms both tickers so the new currency is fetched
// immediately rather than waiting out the current period.
func (r *Refresher) SetCurrency(currency string) {
	r.mu.Lock()
	if r.currency == currency {
		r.mu.Unlock()
		return
	}
	r.currency = currency
	r.mu.Unlock()

	r.svc.ClearCurrencyCache()
	select {
	case r.rearm <- struct{}{}:
	default:
	}
}

// Track adds coin ids whose charts are kept warm by the chart tick.
func (r *Refresher) Track(coinIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, coinIDs...)
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	listingTick := time.NewTicker(r.opts.ListingInterval)
	chartTick := time.NewTicker(r.opts.ChartInterval)
	defer listingTick.Stop()
	defer chartTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.rearm:
			listingTick.Reset(r.opts.ListingInterval)
			chartTick.Reset(r.opts.ChartInterval)
			r.refreshListing(ctx)
			r.refreshCharts(ctx)
		case <-listingTick.C:
			r.refreshListing(ctx)
		case <-chartTick.C:
			r.refreshCharts(ctx)
		}
	}
}

func (r *Refresher) refreshListing(ctx context.Context) {
	r.mu.Lock()
	paused, currency := r.paused, r.currency
	r.mu.Unlock()
	if paused {
		return
	}
	snap := r.svc.GetCryptocurrencies(ctx, currency, r.opts.PerPage)
	r.log.Debug("listing tick",
		zap.String("currency", currency),
		zap.String("source", string(snap.Source)))
}

func (r *Refresher) refreshCharts(ctx context.Context) {
	r.mu.Lock()
	paused, currency := r.paused, r.currency
	tracked := append([]string(nil), r.tracked...)
	r.mu.Unlock()
	if paused || len(tracked) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range tracked {
		g.Go(func() error {
			series := r.svc.GetCoinHistory(ctx, id, r.opts.ChartDays, currency)
			r.log.Debug("chart tick",
				zap.String("coin", id),
				zap.String("source", string(series.Source)))
			return nil
		})
	}
	_ = g.Wait()
}
