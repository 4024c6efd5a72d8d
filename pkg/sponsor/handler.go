package sponsor

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"truststartup/pkg/response"
)

type SponsorHandler struct {
	service SponsorService
	// trackLimiter guards the public tracking endpoints; nil means
	// unlimited (tests).
	trackLimiter gin.HandlerFunc
}

func NewSponsorHandler(service SponsorService, trackLimiter gin.HandlerFunc) *SponsorHandler {
	return &SponsorHandler{service: service, trackLimiter: trackLimiter}
}

func (h *SponsorHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/sponsors", h.listSponsored)
	router.POST("/startups/:id/sponsor/extend", h.extendSponsorship)
	router.POST("/startups/:id/sponsor/cancel", h.cancelSponsorship)

	track := router.Group("/ads")
	if h.trackLimiter != nil {
		track.Use(h.trackLimiter)
	}
	track.POST("/:id/view", h.trackView)
	track.POST("/:id/click", h.trackClick)
}

type extendRequest struct {
	Months int `json:"months" binding:"required"`
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid startup id", nil)
		return 0, false
	}
	return id, true
}

// @Summary      Current sponsors
// @Description  Sponsored startups ordered by sidebar slot, for ad rotation
// @Tags         sponsors
// @Produce      json
// @Param        limit query int false "Maximum entries" default(20)
// @Success      200 {object} response.APIResponse{data=[]SponsoredStartup}
// @Failure      500 {object} response.APIResponse
// @Router       /sponsors [get]
func (h *SponsorHandler) listSponsored(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		limit = 0
	}

	sponsored, err := h.service.ListSponsored(c.Request.Context(), limit)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "sponsors listed", sponsored)
}

// @Summary      Extend a sponsorship
// @Description  Owner-only; adds months on top of the current expiry. The startup must hold a slot.
// @Tags         sponsors
// @Accept       json
// @Produce      json
// @Param        id path int true "Startup ID"
// @Param        request body extendRequest true "Extension request"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse "Startup holds no slot"
// @Router       /startups/{id}/sponsor/extend [post]
func (h *SponsorHandler) extendSponsorship(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	newExpiry, err := h.service.Extend(c.Request.Context(), id, bearerToken(c), req.Months)
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "sponsorship extended", gin.H{"expires_at": newExpiry})
}

// @Summary      Cancel a sponsorship
// @Description  Owner-only; frees the slot immediately, ad counters are kept
// @Tags         sponsors
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id}/sponsor/cancel [post]
func (h *SponsorHandler) cancelSponsorship(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, bearerToken(c)); err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "sponsorship cancelled", nil)
}

// @Summary      Record an ad impression
// @Tags         ads
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /ads/{id}/view [post]
func (h *SponsorHandler) trackView(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.TrackView(c.Request.Context(), id); err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "view recorded", nil)
}

// @Summary      Record an ad click
// @Tags         ads
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /ads/{id}/click [post]
func (h *SponsorHandler) trackClick(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.TrackClick(c.Request.Context(), id); err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "click recorded", nil)
}

func (h *SponsorHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrStartupNotFound):
		response.SendAPIResponse(c, http.StatusNotFound, false, "startup not found", nil)
	case errors.Is(err, ErrUnauthorized):
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "not the startup owner", nil)
	case errors.Is(err, ErrNotSponsored):
		response.SendAPIResponse(c, http.StatusConflict, false, "startup holds no sponsor slot", nil)
	case errors.Is(err, ErrInvalidDuration):
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid sponsorship duration", nil)
	default:
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
	}
}
