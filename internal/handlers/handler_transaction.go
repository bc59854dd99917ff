package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// transactionHandler handles the account-transaction endpoints.
type transactionHandler struct {
	txnService    portssvc.TransactionSvcFacade
	periodService portssvc.PeriodSvcFacade
}

func newTransactionHandler(ts portssvc.TransactionSvcFacade, ps portssvc.PeriodSvcFacade) *transactionHandler {
	return &transactionHandler{txnService: ts, periodService: ps}
}

// registerTransactionRoutes registers transaction routes under a room group.
func registerTransactionRoutes(rg *gin.RouterGroup, txnService portssvc.TransactionSvcFacade, periodService portssvc.PeriodSvcFacade) {
	h := newTransactionHandler(txnService, periodService)

	txns := rg.Group("/transactions")
	{
		txns.POST("", h.createTransaction)
		txns.GET("", h.listTransactions)
		txns.PUT("/:transaction_id", h.updateTransaction)
		txns.DELETE("/:transaction_id", h.deleteTransaction)
		txns.GET("/:transaction_id/history", h.listHistory)
	}
}

// createTransaction godoc
// @Summary Record a transaction
// @Description Records a deposit (no target), transfer, or manager adjustment against the active period.
// @Tags transactions
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param transaction body dto.CreateTransactionRequest true "Transaction details"
// @Success 201 {object} domain.AccountTransaction
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/transactions [post]
func (h *transactionHandler) createTransaction(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.CreateTransactionRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	h.periodService.EnsureMonthlyPeriod(c.Request.Context(), roomID, userID)

	txn, err := h.txnService.CreateTransaction(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "record transaction")
		return
	}

	logger.Info("Transaction recorded", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusCreated, txn)
}

// listTransactions godoc
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Param room_id path string true "Room ID"
// @Param period_id query string false "Period ID"
// @Success 200 {array} domain.AccountTransaction
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	txns, err := h.txnService.ListTransactions(c.Request.Context(), c.Param("room_id"), optionalQuery(c, "period_id"), userID)
	if err != nil {
		respondError(c, logger, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, txns)
}

// updateTransaction godoc
// @Summary Update a transaction
// @Description Edits a transaction; the pre-edit state is snapshotted into the audit trail.
// @Tags transactions
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param transaction_id path string true "Transaction ID"
// @Param transaction body dto.UpdateTransactionRequest true "Fields to change"
// @Success 200 {object} domain.AccountTransaction
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/transactions/{transaction_id} [put]
func (h *transactionHandler) updateTransaction(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	txn, err := h.txnService.UpdateTransaction(c.Request.Context(), c.Param("room_id"), c.Param("transaction_id"), req, userID)
	if err != nil {
		respondError(c, logger, err, "update transaction")
		return
	}
	c.JSON(http.StatusOK, txn)
}

// deleteTransaction godoc
// @Summary Delete a transaction
// @Description Removes a transaction; a DELETE snapshot is appended to the audit trail.
// @Tags transactions
// @Param room_id path string true "Room ID"
// @Param transaction_id path string true "Transaction ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Period is locked"
// @Security BearerAuth
// @Router /rooms/{room_id}/transactions/{transaction_id} [delete]
func (h *transactionHandler) deleteTransaction(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	if err := h.txnService.DeleteTransaction(c.Request.Context(), c.Param("room_id"), c.Param("transaction_id"), userID); err != nil {
		respondError(c, logger, err, "delete transaction")
		return
	}
	c.Status(http.StatusNoContent)
}

// listHistory godoc
// @Summary Get a transaction's audit trail
// @Description Lists the immutable history rows of one transaction, oldest first.
// @Tags transactions
// @Produce json
// @Param room_id path string true "Room ID"
// @Param transaction_id path string true "Transaction ID"
// @Success 200 {array} domain.TransactionHistory
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /rooms/{room_id}/transactions/{transaction_id}/history [get]
func (h *transactionHandler) listHistory(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	history, err := h.txnService.ListHistory(c.Request.Context(), c.Param("room_id"), c.Param("transaction_id"), userID)
	if err != nil {
		respondError(c, logger, err, "list transaction history")
		return
	}
	c.JSON(http.StatusOK, history)
}
