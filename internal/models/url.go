package models

import "time"

// URL represents a shortened URL record as persisted in the durable store.
type URL struct {
	// Code is the short code that identifies the record. It is assigned at
	// creation time and never changes.
	Code string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	// It is monotonically non-decreasing.
	ClickCount int64
	// CreatedAt is the UTC timestamp indicating when the record was created.
	CreatedAt time.Time
}

// CacheEntry is a denormalized projection of a URL record kept in the cache.
// Its ClickCount may lag behind the durable value; the durable store remains
// the source of truth.
type CacheEntry struct {
	OriginalURL string    `json:"original_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClickEvent is the wire-level message published for every resolved read.
type ClickEvent struct {
	Code string `json:"code"`
}

// URLStats holds the read-only statistics exposed for a short code.
type URLStats struct {
	CreatedAt  time.Time
	ClickCount int64
}
