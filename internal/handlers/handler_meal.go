package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// mealHandler handles the meal ledger endpoints.
type mealHandler struct {
	mealService   portssvc.MealSvcFacade
	periodService portssvc.PeriodSvcFacade
}

func newMealHandler(ms portssvc.MealSvcFacade, ps portssvc.PeriodSvcFacade) *mealHandler {
	return &mealHandler{mealService: ms, periodService: ps}
}

// registerMealRoutes registers meal routes under a room group.
func registerMealRoutes(rg *gin.RouterGroup, mealService portssvc.MealSvcFacade, periodService portssvc.PeriodSvcFacade) {
	h := newMealHandler(mealService, periodService)

	meals := rg.Group("/meals")
	{
		meals.POST("", h.createMeals)
		meals.GET("", h.listMeals)
		meals.DELETE("/:meal_id", h.deleteMeal)
	}
}

// createMeals godoc
// @Summary Record meals
// @Description Records one or more meals for a member in the active period. Recording for another member requires the manager role.
// @Tags meals
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param meal body dto.CreateMealRequest true "Meal details"
// @Success 201 {array} domain.Meal
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/meals [post]
func (h *mealHandler) createMeals(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.CreateMealRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	meals, err := h.mealService.CreateMeals(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "record meals")
		return
	}

	logger.Info("Meals recorded", slog.Int("count", len(meals)))
	c.JSON(http.StatusCreated, meals)
}

// listMeals godoc
// @Summary List meals
// @Description Lists meals in the room, optionally scoped to a period or member.
// @Tags meals
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id query string false "Period ID"
// @Param user_id query string false "User ID"
// @Success 200 {array} domain.Meal
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/meals [get]
func (h *mealHandler) listMeals(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	meals, err := h.mealService.ListMeals(c.Request.Context(), roomID, optionalQuery(c, "period_id"), optionalQuery(c, "user_id"), userID)
	if err != nil {
		respondError(c, logger, err, "list meals")
		return
	}
	c.JSON(http.StatusOK, meals)
}

// deleteMeal godoc
// @Summary Delete a meal
// @Description Removes one meal row. Members delete their own rows; managers anyone's.
// @Tags meals
// @Param room_id path string true "Room ID"
// @Param meal_id path string true "Meal ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Meal not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/meals/{meal_id} [delete]
func (h *mealHandler) deleteMeal(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	if err := h.mealService.DeleteMeal(c.Request.Context(), c.Param("room_id"), c.Param("meal_id"), userID); err != nil {
		respondError(c, logger, err, "delete meal")
		return
	}
	c.Status(http.StatusNoContent)
}
