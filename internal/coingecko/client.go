package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// keyHeader is the demo API key header. It is only attached when a call is
// made with WithDemoKey, so the first attempt of every request stays
// anonymous and the key is reserved for the rate-limit retry.
const keyHeader = "x-cg-demo-api-key"

// Client is a client for the CoinGecko v3 API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// apiKey is the optional demo API key.
	apiKey string
	// useKey attaches the demo key header; set per call via WithDemoKey.
	useKey bool
}

// ClientOption is a configuration option for the CoinGecko API client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithDemoKey attaches the demo API key header to the call. Meant as a
// per-call option for the elevated-credential retry after a 429.
func WithDemoKey() ClientOption {
	return func(c *Client) {
		c.useKey = true
	}
}

// NewClient creates a new CoinGecko API client. The key may be empty; it is
// only sent on calls made with WithDemoKey.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		apiKey:     key,
	}
	client.header.Set("Accept", "application/json")
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// get performs a GET against path with query, applying per-call option
// overrides, and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, opts []ClientOption, out any) error {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		apiKey:     c.apiKey,
	}
	for _, opt := range opts {
		opt(override)
	}
	if override.useKey && override.apiKey != "" {
		override.header.Set(keyHeader, override.apiKey)
	}

	u := fmt.Sprintf("%s%s?%s", override.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return err
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
