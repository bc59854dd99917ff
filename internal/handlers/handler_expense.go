package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// expenseHandler handles the extra-expense ledger endpoints.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
	periodService  portssvc.PeriodSvcFacade
}

func newExpenseHandler(es portssvc.ExpenseSvcFacade, ps portssvc.PeriodSvcFacade) *expenseHandler {
	return &expenseHandler{expenseService: es, periodService: ps}
}

// registerExpenseRoutes registers expense routes under a room group.
func registerExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade, periodService portssvc.PeriodSvcFacade) {
	h := newExpenseHandler(expenseService, periodService)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("", h.listExpenses)
		expenses.PUT("/:expense_id", h.updateExpense)
		expenses.DELETE("/:expense_id", h.deleteExpense)
	}
}

// createExpense godoc
// @Summary Record a shared expense
// @Description Records an expense against the active period. The amount feeds the meal rate numerator.
// @Tags expenses
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param expense body dto.CreateExpenseRequest true "Expense details"
// @Success 201 {object} domain.ExtraExpense
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/expenses [post]
func (h *expenseHandler) createExpense(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.CreateExpenseRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "record expense")
		return
	}

	logger.Info("Expense recorded", slog.String("expense_id", expense.ExpenseID))
	c.JSON(http.StatusCreated, expense)
}

// listExpenses godoc
// @Summary List expenses
// @Tags expenses
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id query string false "Period ID"
// @Success 200 {array} domain.ExtraExpense
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/expenses [get]
func (h *expenseHandler) listExpenses(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), c.Param("room_id"), optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "list expenses")
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// updateExpense godoc
// @Summary Update an expense
// @Description Edits an expense. Owners edit their own rows; managers anyone's.
// @Tags expenses
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param expense_id path string true "Expense ID"
// @Param expense body dto.UpdateExpenseRequest true "Fields to change"
// @Success 200 {object} domain.ExtraExpense
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Expense not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/expenses/{expense_id} [put]
func (h *expenseHandler) updateExpense(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateExpenseRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), c.Param("room_id"), c.Param("expense_id"), req, userID)
	if err != nil {
		respondError(c, logger, err, "update expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// deleteExpense godoc
// @Summary Delete an expense
// @Tags expenses
// @Param room_id path string true "Room ID"
// @Param expense_id path string true "Expense ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Expense not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/expenses/{expense_id} [delete]
func (h *expenseHandler) deleteExpense(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), c.Param("room_id"), c.Param("expense_id"), userID); err != nil {
		respondError(c, logger, err, "delete expense")
		return
	}
	c.Status(http.StatusNoContent)
}
