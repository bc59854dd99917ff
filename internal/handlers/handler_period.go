package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/messmate/messmate_backend/internal/core/domain"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// periodHandler handles the period lifecycle endpoints.
type periodHandler struct {
	periodService portssvc.PeriodSvcFacade
}

func newPeriodHandler(ps portssvc.PeriodSvcFacade) *periodHandler {
	return &periodHandler{periodService: ps}
}

// registerPeriodRoutes registers period lifecycle routes under a room group.
func registerPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.PeriodSvcFacade) {
	h := newPeriodHandler(periodService)

	periods := rg.Group("/periods")
	{
		periods.GET("", h.listPeriods)
		periods.POST("/start", h.startPeriod)
		periods.POST("/end", h.endPeriod)
		periods.GET("/:period_id", h.getPeriod)
		periods.POST("/:period_id/lock", h.lockPeriod)
		periods.POST("/:period_id/unlock", h.unlockPeriod)
		periods.POST("/:period_id/archive", h.archivePeriod)
		periods.POST("/:period_id/restart", h.restartPeriod)
		periods.GET("/:period_id/summary", h.periodSummary)
	}
}

// listPeriods godoc
// @Summary List a room's periods
// @Description Lists periods, newest first. Archived periods are included only with include_archived=true.
// @Tags periods
// @Produce json
// @Param room_id path string true "Room ID"
// @Param include_archived query bool false "Include archived periods"
// @Success 200 {array} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods [get]
func (h *periodHandler) listPeriods(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	includeArchived := c.Query("include_archived") == "true"
	periods, err := h.periodService.GetPeriods(c.Request.Context(), roomID, userID, includeArchived)
	if err != nil {
		respondError(c, logger, err, "list periods")
		return
	}
	c.JSON(http.StatusOK, periods)
}

// startPeriod godoc
// @Summary Start a new period
// @Description Opens a period for the room. Fails with 409 if one is already active. Manager only.
// @Tags periods
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period body dto.StartPeriodRequest true "Period details"
// @Success 201 {object} domain.Period
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "An active period already exists"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/start [post]
func (h *periodHandler) startPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.StartPeriodRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	period, err := h.periodService.StartPeriod(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "start period")
		return
	}

	logger.Info("Period started", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusCreated, period)
}

// endPeriod godoc
// @Summary End a period
// @Description Closes the room's active period (or an explicit one). Manager only.
// @Tags periods
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param body body dto.EndPeriodRequest false "Optional period ID and end date"
// @Success 200 {object} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "No active period"
// @Failure 409 {object} map[string]string "Period is not active"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/end [post]
func (h *periodHandler) endPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.EndPeriodRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, logger, &req) {
		return
	}

	period, err := h.periodService.EndPeriod(c.Request.Context(), roomID, userID, req.EndDate, req.PeriodID)
	if err != nil {
		respondError(c, logger, err, "end period")
		return
	}

	logger.Info("Period ended", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusOK, period)
}

// getPeriod godoc
// @Summary Get a period
// @Tags periods
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Period ID"
// @Success 200 {object} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Period not found"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id} [get]
func (h *periodHandler) getPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	period, err := h.periodService.GetPeriod(c.Request.Context(), c.Param("period_id"), c.Param("room_id"), userID)
	if err != nil {
		respondError(c, logger, err, "get period")
		return
	}
	c.JSON(http.StatusOK, period)
}

// lockPeriod godoc
// @Summary Lock a period
// @Description Makes an ended period's ledger rows immutable. Manager only.
// @Tags periods
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Period ID"
// @Success 200 {object} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is not ended"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id}/lock [post]
func (h *periodHandler) lockPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	period, err := h.periodService.LockPeriod(c.Request.Context(), c.Param("room_id"), userID, c.Param("period_id"))
	if err != nil {
		respondError(c, logger, err, "lock period")
		return
	}

	logger.Info("Period locked", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusOK, period)
}

// unlockPeriod godoc
// @Summary Unlock a period
// @Description Reverts a locked period to ENDED (or moves it to ARCHIVED). Manager only.
// @Tags periods
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Period ID"
// @Param body body dto.UnlockPeriodRequest true "Target status"
// @Success 200 {object} domain.Period
// @Failure 400 {object} map[string]string "Invalid target status"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is not locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id}/unlock [post]
func (h *periodHandler) unlockPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req dto.UnlockPeriodRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	period, err := h.periodService.UnlockPeriod(c.Request.Context(), c.Param("room_id"), userID, c.Param("period_id"), domain.PeriodStatus(req.TargetStatus))
	if err != nil {
		respondError(c, logger, err, "unlock period")
		return
	}

	logger.Info("Period unlocked", slog.String("period_id", period.PeriodID), slog.String("status", string(period.Status)))
	c.JSON(http.StatusOK, period)
}

// archivePeriod godoc
// @Summary Archive a period
// @Description Retires an ended or locked period permanently. Manager only.
// @Tags periods
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Period ID"
// @Success 200 {object} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period cannot be archived"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id}/archive [post]
func (h *periodHandler) archivePeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	period, err := h.periodService.ArchivePeriod(c.Request.Context(), c.Param("room_id"), userID, c.Param("period_id"))
	if err != nil {
		respondError(c, logger, err, "archive period")
		return
	}

	logger.Info("Period archived", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusOK, period)
}

// restartPeriod godoc
// @Summary Restart a period
// @Description Archives the source period and opens a fresh ACTIVE one, optionally carrying forward the closing balance and recurring shopping items. Manager only.
// @Tags periods
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Source period ID"
// @Param body body dto.RestartPeriodRequest false "Restart options"
// @Success 201 {object} domain.Period
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Source period is active or another period is"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id}/restart [post]
func (h *periodHandler) restartPeriod(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req dto.RestartPeriodRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, logger, &req) {
		return
	}

	period, err := h.periodService.RestartPeriod(c.Request.Context(), c.Param("room_id"), userID, c.Param("period_id"), req)
	if err != nil {
		respondError(c, logger, err, "restart period")
		return
	}

	logger.Info("Period restarted", slog.String("new_period_id", period.PeriodID))
	c.JSON(http.StatusCreated, period)
}

// periodSummary godoc
// @Summary Get a period's financial summary
// @Description Returns the meal rate, totals and closing balance of one period.
// @Tags periods
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id path string true "Period ID"
// @Success 200 {object} domain.PeriodSummary
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Period not found"
// @Security BearerAuth
// @Router /rooms/{room_id}/periods/{period_id}/summary [get]
func (h *periodHandler) periodSummary(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	summary, err := h.periodService.CalculatePeriodSummary(c.Request.Context(), c.Param("period_id"), c.Param("room_id"), userID)
	if err != nil {
		respondError(c, logger, err, "calculate period summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
