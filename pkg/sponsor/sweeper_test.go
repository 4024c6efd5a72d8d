package sponsor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSweepService struct {
	SponsorService
	sweeps atomic.Int64
}

func (c *countingSweepService) ExpireDue(ctx context.Context) (int, error) {
	c.sweeps.Add(1)
	return 0, nil
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	svc := &countingSweepService{}
	sweeper := NewSweeper(svc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return svc.sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
