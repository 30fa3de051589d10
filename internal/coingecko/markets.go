package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// MarketRecord is one row of the /coins/markets listing. Fields the
// upstream may report as null decode into pointers.
type MarketRecord struct {
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
	MarketCapRank     int      `json:"market_cap_rank"`
}

// MarketsParams controls a /coins/markets request.
type MarketsParams struct {
	VsCurrency string
	PerPage    int
	Page       int
}

// Markets retrieves the market listing ordered by descending market cap.
func (c *Client) Markets(ctx context.Context, p MarketsParams, opts ...ClientOption) ([]MarketRecord, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	query := url.Values{}
	query.Set("vs_currency", p.VsCurrency)
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(p.PerPage))
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("sparkline", "false")
	query.Set("price_change_percentage", "24h")

	var records []MarketRecord
	if err := c.get(ctx, "/coins/markets", query, opts, &records); err != nil {
		return nil, fmt.Errorf("markets: %w", err)
	}
	return records, nil
}
