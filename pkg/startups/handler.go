package startups

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"truststartup/pkg/response"
)

type StartupHandler struct {
	service StartupService
}

func NewStartupHandler(service StartupService) *StartupHandler {
	return &StartupHandler{service: service}
}

func (h *StartupHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/startups", h.createStartup)
	router.GET("/startups", h.listStartups)
	router.GET("/startups/search", h.searchStartups)
	router.GET("/startups/mine", h.listMyStartups)
	router.GET("/startups/:id", h.getStartupByID)
	router.PUT("/startups/:id", h.updateStartup)
	router.PATCH("/startups/:id/stripe-key", h.updateStripeKey)
	router.POST("/startups/:id/sync", h.syncRevenue)
	router.DELETE("/startups/:id", h.deleteStartup)
	router.GET("/startups/:id/metrics/summary", h.metricsSummary)
	router.GET("/startups/:id/metrics/history", h.revenueHistory)
}

type createStartupRequest struct {
	Name      string `json:"name" binding:"required"`
	Company   string `json:"company"`
	Website   string `json:"website"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Category  string `json:"category"`
	Twitter   string `json:"twitter"`
	StripeKey string `json:"stripe_key" binding:"required"`
}

type updateStartupRequest struct {
	Name   string `json:"name" binding:"required"`
	Bio    string `json:"bio"`
	Avatar string `json:"avatar"`
}

type updateStripeKeyRequest struct {
	StripeKey string `json:"stripe_key" binding:"required"`
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

// @Summary      Create a startup
// @Description  Registers a startup with a connected Stripe key and fetches initial revenue metrics
// @Tags         startups
// @Accept       json
// @Produce      json
// @Param        request body createStartupRequest true "Startup creation request"
// @Success      201 {object} response.APIResponse{data=Startup}
// @Failure      400 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /startups [post]
func (h *StartupHandler) createStartup(c *gin.Context) {
	var req createStartupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	startup, err := h.service.CreateStartup(c.Request.Context(), CreateStartupInput{
		Name:      req.Name,
		Company:   req.Company,
		Website:   req.Website,
		Avatar:    req.Avatar,
		Bio:       req.Bio,
		Category:  req.Category,
		Twitter:   req.Twitter,
		StripeKey: req.StripeKey,
		Token:     bearerToken(c),
	})
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "startup created", startup)
}

// @Summary      Leaderboard
// @Description  Paginated startups ordered by verified revenue
// @Tags         startups
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} response.APIResponse{data=StartupList}
// @Failure      500 {object} response.APIResponse
// @Router       /startups [get]
func (h *StartupHandler) listStartups(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	items, total, err := h.service.ListStartups(c.Request.Context(), page, limit)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	data := StartupList{Items: items, Total: total, Page: page, Limit: limit}
	response.SendAPIResponse(c, http.StatusOK, true, "startups listed", data)
}

// @Summary      Search startups
// @Tags         startups
// @Produce      json
// @Param        q query string true "Search query"
// @Success      200 {object} response.APIResponse{data=StartupList}
// @Failure      400 {object} response.APIResponse
// @Router       /startups/search [get]
func (h *StartupHandler) searchStartups(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "query must not be empty", nil)
		return
	}

	items, err := h.service.SearchStartups(c.Request.Context(), q)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	data := StartupList{Items: items, Total: int64(len(items))}
	response.SendAPIResponse(c, http.StatusOK, true, "startups found", data)
}

// @Summary      My startups
// @Description  Startups owned by the authenticated founder
// @Tags         startups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=StartupList}
// @Failure      401 {object} response.APIResponse
// @Router       /startups/mine [get]
func (h *StartupHandler) listMyStartups(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "missing token", nil)
		return
	}

	items, err := h.service.ListStartupsByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid token", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	data := StartupList{Items: items, Total: int64(len(items))}
	response.SendAPIResponse(c, http.StatusOK, true, "startups listed", data)
}

// @Summary      Get startup by ID
// @Tags         startups
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse{data=Startup}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id} [get]
func (h *StartupHandler) getStartupByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	startup, err := h.service.GetStartupByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrStartupNotFound) {
			response.SendAPIResponse(c, http.StatusNotFound, false, "startup not found", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "startup fetched", startup)
}

// @Summary      Update a startup
// @Description  Owner-only profile edit (name, bio, avatar)
// @Tags         startups
// @Accept       json
// @Produce      json
// @Param        id path int true "Startup ID"
// @Param        request body updateStartupRequest true "Startup update request"
// @Success      200 {object} response.APIResponse{data=Startup}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id} [put]
func (h *StartupHandler) updateStartup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateStartupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	startup, err := h.service.UpdateStartup(c.Request.Context(), id, bearerToken(c), req.Name, req.Bio, req.Avatar)
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "startup updated", startup)
}

// @Summary      Replace the connected Stripe key
// @Description  Owner-only; metrics are re-synced with the new key
// @Tags         startups
// @Accept       json
// @Produce      json
// @Param        id path int true "Startup ID"
// @Param        request body updateStripeKeyRequest true "Stripe key update request"
// @Success      200 {object} response.APIResponse{data=Startup}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id}/stripe-key [patch]
func (h *StartupHandler) updateStripeKey(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateStripeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	startup, err := h.service.UpdateStripeKey(c.Request.Context(), id, bearerToken(c), req.StripeKey)
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "stripe key updated", startup)
}

// @Summary      Sync revenue now
// @Description  Owner-only manual metrics refresh
// @Tags         startups
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse{data=Startup}
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id}/sync [post]
func (h *StartupHandler) syncRevenue(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	startup, err := h.service.SyncRevenue(c.Request.Context(), id, bearerToken(c))
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "revenue synced", startup)
}

// @Summary      Delete a startup
// @Description  Owner-only soft delete; releases any held sponsor slot
// @Tags         startups
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id} [delete]
func (h *StartupHandler) deleteStartup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteStartup(c.Request.Context(), id, bearerToken(c)); err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "startup deleted", nil)
}

// @Summary      Live metrics summary
// @Tags         metrics
// @Produce      json
// @Param        id path int true "Startup ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id}/metrics/summary [get]
func (h *StartupHandler) metricsSummary(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	summary, err := h.service.GetMetricsSummary(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "metrics fetched", summary)
}

// @Summary      Daily revenue history
// @Tags         metrics
// @Produce      json
// @Param        id    path  int    true  "Startup ID"
// @Param        range query string false "7d, 30d or 90d" default(90d)
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /startups/{id}/metrics/history [get]
func (h *StartupHandler) revenueHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	points, err := h.service.GetRevenueHistory(c.Request.Context(), id, c.DefaultQuery("range", "90d"))
	if err != nil {
		h.sendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusOK, true, "history fetched", points)
}

func (h *StartupHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrStartupNotFound):
		response.SendAPIResponse(c, http.StatusNotFound, false, "startup not found", nil)
	case errors.Is(err, ErrUnauthorized):
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "not the startup owner", nil)
	default:
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
	}
}
