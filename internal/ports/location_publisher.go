package ports

import (
	"context"
	"transit-tracking-service/internal/domain"
)

// Optional fan-out of accepted samples to live subscribers.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, pos domain.LatestPosition) error
}
