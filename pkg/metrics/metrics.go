// Package metrics reads revenue figures from Stripe on behalf of startups
// that connected an account key. Figures are estimates bounded to the most
// recent charges, good enough for dashboard and leaderboard display.
package metrics

import (
	"context"
	"time"
)

// Summary holds the headline numbers shown on a startup dashboard.
type Summary struct {
	GMVAllTime       float64   `json:"gmv_all_time"`
	Last30Days       float64   `json:"last_30_days"`
	MRR              float64   `json:"mrr"`
	AccountCreatedAt time.Time `json:"account_created_at,omitempty"`
}

// Point is one day of aggregated revenue. Date is a millisecond UTC
// timestamp at midnight, matching what chart consumers expect.
type Point struct {
	Date    int64   `json:"date"`
	Revenue float64 `json:"revenue"`
}

type Client interface {
	Summary(ctx context.Context, stripeKey string) (Summary, error)
	History(ctx context.Context, stripeKey string, days int) ([]Point, error)
}
