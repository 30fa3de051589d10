package coingecko

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrRateLimited is returned when the upstream answers 429.
var ErrRateLimited = errors.New("coingecko: rate limited")

// StatusError is a non-2xx, non-429 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: unexpected status %d: %s", e.Code, e.Body)
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
	return &StatusError{Code: res.StatusCode, Body: string(b)}
}
