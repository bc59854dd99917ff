package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
)

// summaryHandler handles the derived financial figure endpoints. Every read
// first gives MONTHLY rooms a chance to roll their period over, so a request
// early in a new month never reports against a stale period.
type summaryHandler struct {
	summaryService portssvc.SummarySvcFacade
	periodService  portssvc.PeriodSvcFacade
}

func newSummaryHandler(ss portssvc.SummarySvcFacade, ps portssvc.PeriodSvcFacade) *summaryHandler {
	return &summaryHandler{summaryService: ss, periodService: ps}
}

// registerSummaryRoutes registers the aggregation endpoints under a room group.
func registerSummaryRoutes(rg *gin.RouterGroup, summaryService portssvc.SummarySvcFacade, periodService portssvc.PeriodSvcFacade) {
	h := newSummaryHandler(summaryService, periodService)

	summary := rg.Group("/summary")
	{
		summary.GET("/meal-rate", h.mealRate)
		summary.GET("/balance", h.balance)
		summary.GET("/available-balance", h.availableBalance)
		summary.GET("/group", h.groupSummary)
	}
}

// mealRate godoc
// @Summary Get the meal rate
// @Description Returns total expenses divided by total meals for a scope. Zero meals means a zero rate.
// @Tags summary
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id query string false "Period ID (defaults to room-wide)"
// @Success 200 {object} domain.MealRateSummary
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/summary/meal-rate [get]
func (h *summaryHandler) mealRate(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	rate, err := h.summaryService.CalculateMealRate(c.Request.Context(), roomID, optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "calculate meal rate")
		return
	}
	c.JSON(http.StatusOK, rate)
}

// balance godoc
// @Summary Get a member's balance
// @Description Returns the total credited to a member in a scope. Defaults to the caller.
// @Tags summary
// @Produce json
// @Param room_id path string true "Room ID"
// @Param user_id query string false "User ID (defaults to the caller)"
// @Param period_id query string false "Period ID (defaults to room-wide)"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/summary/balance [get]
func (h *summaryHandler) balance(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	targetID := c.Query("user_id")
	if targetID == "" {
		targetID = userID
	}

	balance, err := h.summaryService.CalculateBalance(c.Request.Context(), targetID, roomID, optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "calculate balance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"userID": targetID, "balance": balance})
}

// availableBalance godoc
// @Summary Get a member's available balance
// @Description Returns balance minus imputed meal spend (meal rate times meal count). Defaults to the caller.
// @Tags summary
// @Produce json
// @Param room_id path string true "Room ID"
// @Param user_id query string false "User ID (defaults to the caller)"
// @Param period_id query string false "Period ID (defaults to room-wide)"
// @Success 200 {object} domain.AvailableBalance
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/summary/available-balance [get]
func (h *summaryHandler) availableBalance(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	targetID := c.Query("user_id")
	if targetID == "" {
		targetID = userID
	}

	available, err := h.summaryService.CalculateAvailableBalance(c.Request.Context(), targetID, roomID, optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "calculate available balance")
		return
	}
	c.JSON(http.StatusOK, available)
}

// groupSummary godoc
// @Summary Get the room's financial summary
// @Description Returns room-level totals for the active period, with per-member figures when detailed=true.
// @Tags summary
// @Produce json
// @Param room_id path string true "Room ID"
// @Param detailed query bool false "Include per-member breakdown"
// @Success 200 {object} domain.GroupBalanceSummary
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/summary/group [get]
func (h *summaryHandler) groupSummary(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	detailed := c.Query("detailed") == "true"
	summary, err := h.summaryService.GetGroupBalanceSummary(c.Request.Context(), roomID, userID, detailed)
	if err != nil {
		respondError(c, logger, err, "build group summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
