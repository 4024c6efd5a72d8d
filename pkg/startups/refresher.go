package startups

import (
	"context"
	"log"
	"time"
)

// Refresher periodically re-syncs Stripe metrics for all startups,
// replacing manual founder-triggered syncs as the source of leaderboard
// freshness.
type Refresher struct {
	service  StartupService
	interval time.Duration
}

func NewRefresher(service StartupService, interval time.Duration) *Refresher {
	return &Refresher{service: service, interval: interval}
}

// Run blocks until ctx is cancelled, triggering a refresh every interval.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.service.RefreshAll(ctx)
			if err != nil {
				log.Printf("metrics refresh failed: %v", err)
				continue
			}
			log.Printf("metrics refreshed for %d startups", n)
		}
	}
}
