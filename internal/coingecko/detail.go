package coingecko

import (
	"context"
	"fmt"
	"net/url"
)

// CoinDetail is the /coins/{id} payload, trimmed to the fields the
// dashboard consumes. Market data values are keyed by currency code.
type CoinDetail struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  struct {
		Large string `json:"large"`
		Small string `json:"small"`
	} `json:"image"`
	MarketCapRank int        `json:"market_cap_rank"`
	MarketData    MarketData `json:"market_data"`
	Description   struct {
		EN string `json:"en"`
	} `json:"description"`
	Links struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
}

// MarketData holds per-currency market values for a single coin.
type MarketData struct {
	CurrentPrice      map[string]float64 `json:"current_price"`
	MarketCap         map[string]float64 `json:"market_cap"`
	TotalVolume       map[string]float64 `json:"total_volume"`
	High24h           map[string]float64 `json:"high_24h"`
	Low24h            map[string]float64 `json:"low_24h"`
	PriceChangePct24h float64            `json:"price_change_percentage_24h"`
}

// CoinDetail retrieves detail data for one coin, with localization,
// tickers, community and developer blocks suppressed.
func (c *Client) CoinDetail(ctx context.Context, id string, opts ...ClientOption) (CoinDetail, error) {
	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")
	query.Set("sparkline", "false")

	var detail CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), query, opts, &detail); err != nil {
		return CoinDetail{}, fmt.Errorf("coin detail %s: %w", id, err)
	}
	return detail, nil
}
