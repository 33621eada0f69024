// Package common provides shared utilities for Tickwatch
package common

import "time"

// Freshness TTLs for data components
const (
	// FreshnessSnapshot is the cache-validity window for a reconciled
	// snapshot. Within it, reads are served from storage with no network
	// call unless the caller forces a refresh.
	FreshnessSnapshot = 60 * time.Second

	// FetchTimeout bounds one provider's combined quote/fundamental/
	// history/news cycle. Sub-results that completed before the deadline
	// are kept; stragglers are discarded.
	FetchTimeout = 15 * time.Second
)

// IsFreshAt reports whether updated lies within ttl of now. Callers
// supply the clock so tests can inject time.
func IsFreshAt(now, updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
