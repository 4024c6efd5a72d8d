package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"truststartup/pkg/response"
	"truststartup/pkg/sponsor"
)

// SlotAssigner is the sponsorship side the webhook drives after a
// successful payment.
type SlotAssigner interface {
	Assign(ctx context.Context, startupID int64, paidMonths int) (sponsor.Grant, error)
}

// WebhookVerifier checks a webhook payload against its signature header.
// It is a field so handler tests can stub signature verification out.
type WebhookVerifier func(payload []byte, sigHeader, secret string) (stripe.Event, error)

type CheckoutHandler struct {
	service       CheckoutService
	assigner      SlotAssigner
	webhookSecret string
	verify        WebhookVerifier
}

func NewCheckoutHandler(service CheckoutService, assigner SlotAssigner, webhookSecret string) *CheckoutHandler {
	return &CheckoutHandler{
		service:       service,
		assigner:      assigner,
		webhookSecret: webhookSecret,
		verify:        webhook.ConstructEvent,
	}
}

func (h *CheckoutHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/advertise/checkout", h.createCheckout)
	router.POST("/stripe/webhook", h.handleWebhook)
}

type checkoutRequest struct {
	StartupID int64 `json:"startup_id" binding:"required"`
	Months    int   `json:"months" binding:"required"`
}

// @Summary      Start a sponsorship purchase
// @Description  Creates a Stripe Checkout session for N months of sidebar placement at $20/month
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body checkoutRequest true "Purchase request"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /advertise/checkout [post]
func (h *CheckoutHandler) createCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	url, err := h.service.CreateSession(c.Request.Context(), req.StartupID, req.Months)
	if err != nil {
		if errors.Is(err, ErrInvalidMonths) {
			response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "checkout session created", gin.H{"url": url})
}

// @Summary      Stripe webhook
// @Description  Consumes checkout.session.completed events and assigns sponsor slots
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /stripe/webhook [post]
func (h *CheckoutHandler) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 65536))
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "unreadable payload", nil)
		return
	}

	event, err := h.verify(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid webhook signature", nil)
		return
	}

	if event.Type != "checkout.session.completed" {
		response.SendAPIResponse(c, http.StatusOK, true, "event ignored", nil)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "malformed event data", nil)
		return
	}

	startupID, err := strconv.ParseInt(session.Metadata["startup_id"], 10, 64)
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "missing startup_id metadata", nil)
		return
	}
	// The paid duration must come from the session we created; guessing a
	// value here would grant the wrong period for real money.
	months, err := strconv.Atoi(session.Metadata["months"])
	if err != nil || months < 1 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "missing months metadata", nil)
		return
	}

	grant, err := h.assigner.Assign(c.Request.Context(), startupID, months)
	if err != nil {
		switch {
		case errors.Is(err, sponsor.ErrCapacityExceeded):
			// Acknowledge so Stripe stops retrying; ops are alerted
			// separately and will refund by hand.
			log.Printf("webhook: no free slot for startup %d, payment needs manual follow-up", startupID)
			response.SendAPIResponse(c, http.StatusOK, true, "no slot available", nil)
		case errors.Is(err, sponsor.ErrStartupNotFound):
			log.Printf("webhook: paid startup %d does not exist", startupID)
			response.SendAPIResponse(c, http.StatusOK, true, "unknown startup", nil)
		default:
			// Transient failure: a non-2xx makes Stripe redeliver.
			response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		}
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "sponsorship activated", gin.H{
		"slot":       grant.Slot,
		"expires_at": grant.ExpiresAt,
	})
}
