package model

import "time"

// CachedResponse is a raw HTTP response body kept in the response cache.
type CachedResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Body      []byte    `json:"-"`
	ETag      string    `json:"etag,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CacheStats summarizes the response cache.
type CacheStats struct {
	Entries int64     `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
}
