package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

type roundupHandler struct {
	roundupService portssvc.RoundupSvcFacade
}

func newRoundupHandler(rs portssvc.RoundupSvcFacade) *roundupHandler {
	return &roundupHandler{roundupService: rs}
}

func registerRoundupRoutes(rg *gin.RouterGroup, roundupService portssvc.RoundupSvcFacade) {
	h := newRoundupHandler(roundupService)

	roundups := rg.Group("/roundups")
	{
		roundups.GET("", h.listEntries)
		roundups.GET("/total", h.getTotal)
	}
}

func (h *roundupHandler) getTotal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.RoundupQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for GetRoundupTotal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	totals, err := h.roundupService.GetRoundupTotal(c.Request.Context(), params.Owner)
	if err != nil {
		respondWithError(c, logger, err, "Failed to total round-ups")
		return
	}
	c.JSON(http.StatusOK, dto.ToRoundupTotalResponse(params.Owner, totals))
}

func (h *roundupHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.RoundupQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListRoundupEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	entries, nextToken, err := h.roundupService.ListRoundupEntries(
		c.Request.Context(), params.Owner, params.Limit, optionalToken(params.NextToken))
	if err != nil {
		respondWithError(c, logger, err, "Failed to list round-ups")
		return
	}
	c.JSON(http.StatusOK, dto.ListRoundupEntriesResponse{
		Entries:   dto.ToRoundupEntryResponses(entries),
		NextToken: nextToken,
	})
}
