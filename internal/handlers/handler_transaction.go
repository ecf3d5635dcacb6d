package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// transactionHandler accepts transactions from ingestion and re-mapping requests.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

func newTransactionHandler(ts portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{transactionService: ts}
}

// RegisterTransactionRoutes registers the /transactions routes.
func RegisterTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade) {
	h := newTransactionHandler(transactionService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.submitTransaction)
		transactions.GET("/:transactionID", h.getTransaction)
		transactions.POST("/:transactionID/mappings", h.requestRemapping)
	}
}

func (h *transactionHandler) submitTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	txn, mapping, err := h.transactionService.SubmitTransaction(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to submit transaction")
		return
	}

	c.JSON(http.StatusCreated, dto.SubmitTransactionResponse{
		Transaction: dto.ToTransactionResponse(txn),
		Mapping:     dto.ToMappingResponse(mapping),
	})
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	transactionID := c.Param("transactionID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("transaction_id", transactionID))

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) requestRemapping(c *gin.Context) {
	transactionID := c.Param("transactionID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("transaction_id", transactionID))

	var req dto.RemapTransactionRequest
	// The body is optional.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for RequestRemapping", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	mapping, err := h.transactionService.RequestRemapping(c.Request.Context(), transactionID, req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to request remapping")
		return
	}
	c.JSON(http.StatusCreated, dto.ToMappingResponse(mapping))
}
