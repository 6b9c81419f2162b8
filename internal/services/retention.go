package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"transit-tracking-service/internal/metrics"
	"transit-tracking-service/internal/ports"
)

const DefaultRetention = 48 * time.Hour

// RetentionService deletes location samples older than Horizon.
type RetentionService struct {
	Locations ports.LocationRepository
	Horizon   time.Duration
	Metrics   *metrics.Collector
	Now       func() time.Time
}

func NewRetentionService(locations ports.LocationRepository, horizon time.Duration) *RetentionService {
	return &RetentionService{Locations: locations, Horizon: horizon, Now: time.Now}
}

// Cleanup runs one pass and returns the number of deleted samples.
// Running it again with nothing new to delete returns 0.
func (s *RetentionService) Cleanup(ctx context.Context) (int64, error) {
	if s.Horizon <= 0 {
		return 0, errors.New("cleanup: retention horizon must be positive")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().UTC().Add(-s.Horizon)

	n, err := s.Locations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("cleanup: %w", err)
	}

	s.Metrics.CleanupObserve(n)
	log.Printf("retention cleanup deleted=%d cutoff=%s", n, cutoff.Format(time.RFC3339))
	return n, nil
}

// Run cleans up once immediately and then every interval until ctx is done.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cleanup(ctx); err != nil && ctx.Err() == nil {
			log.Printf("retention cleanup failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
