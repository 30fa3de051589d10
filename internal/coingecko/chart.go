package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ChartParams controls a /coins/{id}/market_chart request.
type ChartParams struct {
	VsCurrency string
	Days       int
}

// ChartResponse is the market chart payload. Each element is a
// [unix-millis, value] pair.
type ChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// MarketChart retrieves price history for one coin. Windows of a day or
// less use hourly granularity, anything longer daily.
func (c *Client) MarketChart(ctx context.Context, id string, p ChartParams, opts ...ClientOption) (ChartResponse, error) {
	interval := "daily"
	if p.Days <= 1 {
		interval = "hourly"
	}
	query := url.Values{}
	query.Set("vs_currency", p.VsCurrency)
	query.Set("days", strconv.Itoa(p.Days))
	query.Set("interval", interval)

	var chart ChartResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", query, opts, &chart); err != nil {
		return ChartResponse{}, fmt.Errorf("market chart %s: %w", id, err)
	}
	return chart, nil
}
