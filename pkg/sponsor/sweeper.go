package sponsor

import (
	"context"
	"log"
	"time"
)

// Sweeper releases expired sponsor slots on a fixed schedule. Cadence is an
// operational knob, not a correctness requirement; expiry itself is gated on
// the stored timestamp.
type Sweeper struct {
	service  SponsorService
	interval time.Duration
}

func NewSweeper(service SponsorService, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.service.ExpireDue(ctx)
			if err != nil {
				log.Printf("sponsor sweep failed: %v", err)
				continue
			}
			if released > 0 {
				log.Printf("sponsor sweep released %d expired slots", released)
			}
		}
	}
}
