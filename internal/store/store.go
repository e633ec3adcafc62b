package store

import (
	"context"
	"time"

	"github.com/sgtransit/stops-cli/internal/model"
)

// Store defines persistence for downloaded responses.
type Store interface {
	// Responses
	GetResponse(ctx context.Context, url string) (*model.CachedResponse, error)
	PutResponse(ctx context.Context, url string, body []byte, etag string) error
	TouchResponse(ctx context.Context, url string) error
	DeleteResponsesBefore(ctx context.Context, cutoff time.Time) (int, error)
	ClearResponses(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*model.CacheStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
