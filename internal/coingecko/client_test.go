package coingecko_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	coingecko "marketdash/internal/coingecko"
)

func jsonBody(t *testing.T, v any) io.ReadCloser {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return io.NopCloser(buffer)
}

func TestMarkets(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Contains(t, req.URL.Path, "/coins/markets")
			q := req.URL.Query()
			require.Equal(t, "usd", q.Get("vs_currency"))
			require.Equal(t, "market_cap_desc", q.Get("order"))
			require.Equal(t, "100", q.Get("per_page"))
			require.Equal(t, "1", q.Get("page"))
			require.Equal(t, "false", q.Get("sparkline"))
			require.Equal(t, "24h", q.Get("price_change_percentage"))
			// No credential header on a plain call.
			require.Empty(t, req.Header.Get("x-cg-demo-api-key"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body: jsonBody(t, []map[string]any{
					{
						"id":                          "bitcoin",
						"symbol":                      "btc",
						"name":                        "Bitcoin",
						"current_price":               64850.0,
						"high_24h":                    65200.0,
						"low_24h":                     63800.0,
						"market_cap":                  1.27e12,
						"total_volume":                nil,
						"market_cap_rank":             1,
						"price_change_percentage_24h": 0.7,
					},
				}),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("test-key", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: fetch the listing
	records, err := client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 100})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Assert: fields parsed, null stays nil
	require.Equal(t, "bitcoin", records[0].ID)
	require.InEpsilon(t, 64850.0, records[0].CurrentPrice, 0.0001)
	require.NotNil(t, records[0].High24h)
	require.InEpsilon(t, 65200.0, *records[0].High24h, 0.0001)
	require.Nil(t, records[0].TotalVolume)
	require.Equal(t, 1, records[0].MarketCapRank)
}

func TestMarkets_RateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(bytes.NewReader([]byte{})),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 50})
	require.ErrorIs(t, err, coingecko.ErrRateLimited)
}

func TestMarkets_UpstreamError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(bytes.NewReader([]byte("boom"))),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 50})
	require.Error(t, err)
	var statusErr *coingecko.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestMarkets_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection refused")
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 50})
	require.Error(t, err)
	require.False(t, errors.Is(err, coingecko.ErrRateLimited))
}

func TestWithDemoKey_AttachesHeaderOnlyForThatCall(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	first := httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Empty(t, req.Header.Get("x-cg-demo-api-key"))
			return &http.Response{StatusCode: http.StatusOK, Body: jsonBody(t, []map[string]any{})}, nil
		}).
		Times(1)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "test-key", req.Header.Get("x-cg-demo-api-key"))
			return &http.Response{StatusCode: http.StatusOK, Body: jsonBody(t, []map[string]any{})}, nil
		}).
		Times(1).
		After(first)

	client, err := coingecko.NewClient("test-key", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 50})
	require.NoError(t, err)
	_, err = client.Markets(t.Context(), coingecko.MarketsParams{VsCurrency: "usd", PerPage: 50}, coingecko.WithDemoKey())
	require.NoError(t, err)
}

func TestMarketChart_HourlyForOneDayWindow(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/coins/bitcoin/market_chart")
			q := req.URL.Query()
			require.Equal(t, "usd", q.Get("vs_currency"))
			require.Equal(t, "1", q.Get("days"))
			require.Equal(t, "hourly", q.Get("interval"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body: jsonBody(t, map[string]any{
					"prices":        [][]float64{{1700000000000, 64850}, {1700003600000, 64900}},
					"market_caps":   [][]float64{},
					"total_volumes": [][]float64{},
				}),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	chart, err := client.MarketChart(t.Context(), "bitcoin", coingecko.ChartParams{VsCurrency: "usd", Days: 1})
	require.NoError(t, err)
	require.Len(t, chart.Prices, 2)
	require.InEpsilon(t, 1700000000000.0, chart.Prices[0][0], 0.0001)
	require.InEpsilon(t, 64850.0, chart.Prices[0][1], 0.0001)
}

func TestCoinDetail(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/coins/ethereum")
			q := req.URL.Query()
			require.Equal(t, "false", q.Get("localization"))
			require.Equal(t, "false", q.Get("tickers"))
			require.Equal(t, "true", q.Get("market_data"))
			require.Equal(t, "false", q.Get("community_data"))
			require.Equal(t, "false", q.Get("developer_data"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body: jsonBody(t, map[string]any{
					"id":     "ethereum",
					"symbol": "eth",
					"name":   "Ethereum",
					"market_data": map[string]any{
						"current_price":               map[string]float64{"usd": 2650},
						"market_cap":                  map[string]float64{"usd": 3.18e11},
						"price_change_percentage_24h": 0.7,
					},
					"links": map[string]any{"homepage": []string{"https://ethereum.org"}},
				}),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	detail, err := client.CoinDetail(t.Context(), "ethereum")
	require.NoError(t, err)
	require.Equal(t, "ethereum", detail.ID)
	require.InEpsilon(t, 2650.0, detail.MarketData.CurrentPrice["usd"], 0.0001)
	require.Equal(t, []string{"https://ethereum.org"}, detail.Links.Homepage)
}

func TestSimplePrice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/simple/price")
			q := req.URL.Query()
			require.Equal(t, "vanar-chain", q.Get("ids"))
			require.Equal(t, "usd", q.Get("vs_currencies"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       jsonBody(t, map[string]map[string]float64{"vanar-chain": {"usd": 0.124}}),
			}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient))
	require.NoError(t, err)

	prices, err := client.SimplePrice(t.Context(), []string{"vanar-chain"}, []string{"usd"})
	require.NoError(t, err)
	require.InEpsilon(t, 0.124, prices["vanar-chain"]["usd"], 0.0001)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080"
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, len(req.URL.String()) >= len(baseURL) && req.URL.String()[:len(baseURL)] == baseURL,
				"expected url to start with base url, received: %s", req.URL.String())
			return &http.Response{StatusCode: http.StatusOK, Body: jsonBody(t, map[string]any{})}, nil
		}).
		Times(1)

	client, err := coingecko.NewClient("", coingecko.WithHTTPClient(httpClient), coingecko.WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = client.SimplePrice(t.Context(), []string{"vanar-chain"}, []string{"usd"})
	require.NoError(t, err)
}
