package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrInvalidMonths = errors.New("months must be between 1 and 12")

// monthlyPriceCents is the flat sponsorship price: $20 per month.
const monthlyPriceCents = 2000

type CheckoutService interface {
	// CreateSession creates a Stripe Checkout session for a sponsorship
	// purchase and returns its redirect URL.
	CreateSession(ctx context.Context, startupID int64, months int) (string, error)
}

type checkoutService struct {
	api    *client.API
	appURL string
}

func NewCheckoutService(secretKey string) CheckoutService {
	api := &client.API{}
	api.Init(secretKey, nil)

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}

	return &checkoutService{api: api, appURL: appURL}
}

func (s *checkoutService) CreateSession(ctx context.Context, startupID int64, months int) (string, error) {
	if months < 1 || months > 12 {
		return "", ErrInvalidMonths
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Sidebar sponsorship"),
						Description: stripe.String(fmt.Sprintf("%d month(s) of sidebar placement", months)),
					},
					UnitAmount: stripe.Int64(int64(monthlyPriceCents * months)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.appURL + "/advertise?status=success"),
		CancelURL:  stripe.String(s.appURL + "/advertise?status=cancelled"),
	}
	params.Context = ctx
	params.AddMetadata("startup_id", fmt.Sprintf("%d", startupID))
	params.AddMetadata("months", fmt.Sprintf("%d", months))

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	return session.URL, nil
}
