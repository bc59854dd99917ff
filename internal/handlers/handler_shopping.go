package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// shoppingHandler handles the shopping list endpoints.
type shoppingHandler struct {
	shoppingService portssvc.ShoppingSvcFacade
	periodService   portssvc.PeriodSvcFacade
}

func newShoppingHandler(ss portssvc.ShoppingSvcFacade, ps portssvc.PeriodSvcFacade) *shoppingHandler {
	return &shoppingHandler{shoppingService: ss, periodService: ps}
}

// registerShoppingRoutes registers shopping list routes under a room group.
func registerShoppingRoutes(rg *gin.RouterGroup, shoppingService portssvc.ShoppingSvcFacade, periodService portssvc.PeriodSvcFacade) {
	h := newShoppingHandler(shoppingService, periodService)

	shopping := rg.Group("/shopping")
	{
		shopping.POST("", h.createItem)
		shopping.GET("", h.listItems)
		shopping.PUT("/:item_id", h.updateItem)
		shopping.DELETE("/:item_id", h.deleteItem)
	}
}

// createItem godoc
// @Summary Add a shopping item
// @Description Adds a planned purchase to the room's list. Never enters the meal-rate math.
// @Tags shopping
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param item body dto.CreateShoppingItemRequest true "Item details"
// @Success 201 {object} domain.ShoppingItem
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/shopping [post]
func (h *shoppingHandler) createItem(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.CreateShoppingItemRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	item, err := h.shoppingService.CreateItem(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "add shopping item")
		return
	}

	logger.Info("Shopping item added", slog.String("item_id", item.ItemID))
	c.JSON(http.StatusCreated, item)
}

// listItems godoc
// @Summary List shopping items
// @Tags shopping
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id query string false "Period ID"
// @Success 200 {array} domain.ShoppingItem
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/shopping [get]
func (h *shoppingHandler) listItems(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	items, err := h.shoppingService.ListItems(c.Request.Context(), c.Param("room_id"), optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "list shopping items")
		return
	}
	c.JSON(http.StatusOK, items)
}

// updateItem godoc
// @Summary Update a shopping item
// @Description Edits an item, typically marking it purchased. Owners edit their own rows; managers anyone's.
// @Tags shopping
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param item_id path string true "Item ID"
// @Param item body dto.UpdateShoppingItemRequest true "Fields to change"
// @Success 200 {object} domain.ShoppingItem
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Item not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/shopping/{item_id} [put]
func (h *shoppingHandler) updateItem(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateShoppingItemRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	item, err := h.shoppingService.UpdateItem(c.Request.Context(), c.Param("room_id"), c.Param("item_id"), req, userID)
	if err != nil {
		respondError(c, logger, err, "update shopping item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// deleteItem godoc
// @Summary Delete a shopping item
// @Tags shopping
// @Param room_id path string true "Room ID"
// @Param item_id path string true "Item ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Item not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/shopping/{item_id} [delete]
func (h *shoppingHandler) deleteItem(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	if err := h.shoppingService.DeleteItem(c.Request.Context(), c.Param("room_id"), c.Param("item_id"), userID); err != nil {
		respondError(c, logger, err, "delete shopping item")
		return
	}
	c.Status(http.StatusNoContent)
}
