package market

import "time"

// entry wraps a cached value with its capture time. Resets drop entries
// outright rather than flipping a side flag, so a nil entry is the only
// "invalid regardless of timestamp" state.
type entry[T any] struct {
	value    T
	storedAt time.Time
}

// fresh reports whether the entry exists and is within its TTL.
func (e *entry[T]) fresh(now time.Time, ttl time.Duration) bool {
	return e != nil && now.Sub(e.storedAt) < ttl
}

// chartKey identifies one cached time series. A request must match the
// key exactly to be served from cache.
type chartKey struct {
	coinID   string
	days     int
	currency string
}

// failureState gates upstream retry attempts after failures.
type failureState struct {
	count       int
	lastFailure time.Time
}

func (f *failureState) record(now time.Time) {
	f.count++
	f.lastFailure = now
}

func (f *failureState) reset() {
	*f = failureState{}
}
