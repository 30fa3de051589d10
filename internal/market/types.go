package market

import (
	"time"

	"marketdash/internal/coingecko"
)

// Source tags where a result came from, so the display layer and tests
// can assert on provenance instead of guessing from timestamps.
type Source string

const (
	SourceReal      Source = "real"
	SourceCached    Source = "cached"
	SourceSynthetic Source = "synthetic"
)

// Entry is one row of a market listing. All numeric fields within an
// entry share the currency of the snapshot that holds it. Fields the
// upstream may omit stay nil through caching and conversion.
type Entry struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Image             string   `json:"image"`
	CurrentPrice      float64  `json:"current_price"`
	High24h           *float64 `json:"high_24h"`
	Low24h            *float64 `json:"low_24h"`
	PriceChange24h    *float64 `json:"price_change_24h"`
	PriceChangePct24h *float64 `json:"price_change_percentage_24h"`
	MarketCap         *float64 `json:"market_cap"`
	TotalVolume       *float64 `json:"total_volume"`
	Rank              int      `json:"market_cap_rank"`
}

// Snapshot is one full listing for one currency at one point in time.
// A new snapshot fully replaces the previous one; there is no merging.
type Snapshot struct {
	Entries   []Entry   `json:"entries"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    Source    `json:"source"`
}

// PricePoint is one (timestamp, price) sample. Timestamps are unix
// milliseconds, matching the upstream chart format.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// TimeSeries is price history for one coin, one currency, one lookback
// window, ordered by ascending timestamp.
type TimeSeries struct {
	CoinID    string       `json:"coin_id"`
	Currency  string       `json:"currency"`
	Days      int          `json:"days"`
	Prices    []PricePoint `json:"prices"`
	FetchedAt time.Time    `json:"fetched_at"`
	Source    Source       `json:"source"`
}

// Detail is the flattened detail view for a single coin, denominated in
// the primary currency.
type Detail struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	ImageLarge        string  `json:"image_large"`
	ImageSmall        string  `json:"image_small"`
	Rank              int     `json:"market_cap_rank"`
	CurrentPrice      float64 `json:"current_price"`
	MarketCap         float64 `json:"market_cap"`
	TotalVolume       float64 `json:"total_volume"`
	High24h           float64 `json:"high_24h"`
	Low24h            float64 `json:"low_24h"`
	PriceChangePct24h float64 `json:"price_change_percentage_24h"`
	Description       string  `json:"description"`
	Homepage          string  `json:"homepage"`
	Source            Source  `json:"source"`
}

func entryFromRecord(r coingecko.MarketRecord) Entry {
	return Entry{
		ID:                r.ID,
		Symbol:            r.Symbol,
		Name:              r.Name,
		Image:             r.Image,
		CurrentPrice:      r.CurrentPrice,
		High24h:           r.High24h,
		Low24h:            r.Low24h,
		PriceChange24h:    r.PriceChange24h,
		PriceChangePct24h: r.PriceChangePct24h,
		MarketCap:         r.MarketCap,
		TotalVolume:       r.TotalVolume,
		Rank:              r.MarketCapRank,
	}
}

func entriesFromRecords(records []coingecko.MarketRecord) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entryFromRecord(r))
	}
	return entries
}

func detailFromCoin(d coingecko.CoinDetail, currency string) Detail {
	md := d.MarketData
	homepage := ""
	if len(d.Links.Homepage) > 0 {
		homepage = d.Links.Homepage[0]
	}
	return Detail{
		ID:                d.ID,
		Symbol:            d.Symbol,
		Name:              d.Name,
		ImageLarge:        d.Image.Large,
		ImageSmall:        d.Image.Small,
		Rank:              d.MarketCapRank,
		CurrentPrice:      md.CurrentPrice[currency],
		MarketCap:         md.MarketCap[currency],
		TotalVolume:       md.TotalVolume[currency],
		High24h:           md.High24h[currency],
		Low24h:            md.Low24h[currency],
		PriceChangePct24h: md.PriceChangePct24h,
		Description:       d.Description.EN,
		Homepage:          homepage,
		Source:            SourceReal,
	}
}

func pointsFromPairs(pairs [][2]float64) []PricePoint {
	points := make([]PricePoint, 0, len(pairs))
	var lastTS int64 = -1
	for _, p := range pairs {
		ts := int64(p[0])
		// A single fetch never yields duplicate timestamps.
		if ts == lastTS {
			continue
		}
		lastTS = ts
		points = append(points, PricePoint{Timestamp: ts, Price: p[1]})
	}
	return points
}
