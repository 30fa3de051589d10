package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// SimplePrice retrieves spot prices for the given coin ids in the given
// currencies. The result maps coin id -> currency -> price.
func (c *Client) SimplePrice(ctx context.Context, ids, vsCurrencies []string, opts ...ClientOption) (map[string]map[string]float64, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", strings.Join(vsCurrencies, ","))

	var prices map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", query, opts, &prices); err != nil {
		return nil, fmt.Errorf("simple price: %w", err)
	}
	return prices, nil
}
