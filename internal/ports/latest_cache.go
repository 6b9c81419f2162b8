package ports

import (
	"context"
	"transit-tracking-service/internal/domain"
)

// Optional read-through cache for latest-position results.
type LatestCache interface {
	// On a miss, version identifies the cache generation the caller must hand back to Put,
	// so a result computed before an Invalidate is never served after it.
	Get(ctx context.Context, f LatestFilter) (items []domain.LatestPosition, version int64, ok bool, err error)
	Put(ctx context.Context, f LatestFilter, version int64, items []domain.LatestPosition) error
	// Drop every cached result, e.g. after a shift closes.
	Invalidate(ctx context.Context) error
}
