package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// chargeWindow caps how many recent charges feed the estimates, mirroring
// the product decision that the newest 100 charges are representative.
const chargeWindow = 100

type stripeClient struct{}

// NewStripeClient returns a Client backed by the Stripe API. Each call uses
// the startup's own restricted key, so there is no shared client state.
func NewStripeClient() Client {
	return &stripeClient{}
}

func (s *stripeClient) api(key string) *client.API {
	api := &client.API{}
	api.Init(key, nil)
	return api
}

func (s *stripeClient) Summary(ctx context.Context, stripeKey string) (Summary, error) {
	api := s.api(stripeKey)

	gmv, err := s.sumCharges(api, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("list charges: %w", err)
	}

	last30From := time.Now().Add(-30 * 24 * time.Hour).Unix()
	last30, err := s.sumCharges(api, &last30From)
	if err != nil {
		return Summary{}, fmt.Errorf("list recent charges: %w", err)
	}

	mrr, err := s.estimateMRR(api)
	if err != nil {
		return Summary{}, fmt.Errorf("list subscriptions: %w", err)
	}

	summary := Summary{
		GMVAllTime: round2(gmv),
		Last30Days: round2(last30),
		MRR:        round2(mrr),
	}

	// Account age is cosmetic; ignore failures.
	if acct, err := api.Accounts.Get(); err == nil && acct.Created > 0 {
		summary.AccountCreatedAt = time.Unix(acct.Created, 0).UTC()
	}

	return summary, nil
}

func (s *stripeClient) History(ctx context.Context, stripeKey string, days int) ([]Point, error) {
	api := s.api(stripeKey)

	from := time.Now().UTC().AddDate(0, 0, -days).Unix()
	params := &stripe.ChargeListParams{
		CreatedRange: &stripe.RangeQueryParams{GreaterThanOrEqual: from},
	}
	params.Limit = stripe.Int64(chargeWindow)

	// Zero-fill every day in the window so charts render continuous lines.
	buckets := make(map[int64]float64, days)
	now := time.Now().UTC()
	for i := days - 1; i >= 0; i-- {
		day := midnightUTC(now.AddDate(0, 0, -i))
		buckets[day] = 0
	}

	iter := api.Charges.List(params)
	seen := 0
	for iter.Next() {
		ch := iter.Charge()
		if !ch.Paid || ch.Amount <= 0 {
			continue
		}
		day := midnightUTC(time.Unix(ch.Created, 0).UTC())
		if _, ok := buckets[day]; ok {
			buckets[day] += float64(ch.Amount) / 100
		}
		seen++
		if seen >= chargeWindow {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}

	points := make([]Point, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := midnightUTC(now.AddDate(0, 0, -i))
		points = append(points, Point{Date: day, Revenue: round2(buckets[day])})
	}

	return points, nil
}

func (s *stripeClient) sumCharges(api *client.API, createdGTE *int64) (float64, error) {
	params := &stripe.ChargeListParams{}
	params.Limit = stripe.Int64(chargeWindow)
	if createdGTE != nil {
		params.CreatedRange = &stripe.RangeQueryParams{GreaterThanOrEqual: *createdGTE}
	}

	var totalCents int64
	iter := api.Charges.List(params)
	seen := 0
	for iter.Next() {
		ch := iter.Charge()
		if ch.Paid && ch.Amount > 0 {
			totalCents += ch.Amount
		}
		seen++
		if seen >= chargeWindow {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}

	return float64(totalCents) / 100, nil
}

func (s *stripeClient) estimateMRR(api *client.API) (float64, error) {
	params := &stripe.SubscriptionListParams{Status: stripe.String(string(stripe.SubscriptionStatusActive))}
	params.Limit = stripe.Int64(chargeWindow)

	var totalCents int64
	iter := api.Subscriptions.List(params)
	seen := 0
	for iter.Next() {
		sub := iter.Subscription()
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Plan != nil {
			totalCents += sub.Items.Data[0].Plan.Amount
		}
		seen++
		if seen >= chargeWindow {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}

	return float64(totalCents) / 100, nil
}

func midnightUTC(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
