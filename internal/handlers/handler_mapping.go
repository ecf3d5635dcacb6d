package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// mappingHandler is the reviewer-facing surface of the approval workflow.
type mappingHandler struct {
	approvalService portssvc.ApprovalWorkflowSvcFacade
}

func newMappingHandler(as portssvc.ApprovalWorkflowSvcFacade) *mappingHandler {
	return &mappingHandler{approvalService: as}
}

// RegisterMappingRoutes registers the /mappings routes.
func RegisterMappingRoutes(rg *gin.RouterGroup, approvalService portssvc.ApprovalWorkflowSvcFacade) {
	registerValidators()
	h := newMappingHandler(approvalService)

	mappings := rg.Group("/mappings")
	{
		mappings.GET("", h.listMappings)
		mappings.GET("/:mappingID", h.getMapping)
		mappings.POST("/:mappingID/approve", h.approveMapping)
		mappings.POST("/:mappingID/reject", h.rejectMapping)
		mappings.POST("/:mappingID/reset", h.resetMapping)
	}
}

func (h *mappingHandler) listMappings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListMappingsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListMappings", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	mappings, nextToken, err := h.approvalService.ListMappingsByStatus(
		c.Request.Context(), domain.MappingStatus(params.Status), params.Limit, optionalToken(params.NextToken))
	if err != nil {
		respondWithError(c, logger, err, "Failed to list mappings")
		return
	}

	c.JSON(http.StatusOK, dto.ListMappingsResponse{
		Mappings:  dto.ToMappingResponses(mappings),
		NextToken: nextToken,
	})
}

func (h *mappingHandler) getMapping(c *gin.Context) {
	mappingID := c.Param("mappingID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("mapping_id", mappingID))

	mapping, err := h.approvalService.GetMapping(c.Request.Context(), mappingID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve mapping")
		return
	}
	c.JSON(http.StatusOK, dto.ToMappingResponse(mapping))
}

func (h *mappingHandler) approveMapping(c *gin.Context) {
	mappingID := c.Param("mappingID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("mapping_id", mappingID))

	reviewer, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	mapping, err := h.approvalService.ApproveMapping(c.Request.Context(), mappingID, reviewer)
	if err != nil {
		if mapping != nil {
			// Approved, but a downstream listener failed. The approval stands.
			logger.Error("Approval listeners failed", slog.String("error", err.Error()))
			c.JSON(http.StatusOK, dto.ToMappingResponse(mapping))
			return
		}
		respondWithError(c, logger, err, "Failed to approve mapping")
		return
	}
	c.JSON(http.StatusOK, dto.ToMappingResponse(mapping))
}

func (h *mappingHandler) rejectMapping(c *gin.Context) {
	mappingID := c.Param("mappingID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("mapping_id", mappingID))

	var req dto.RejectMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RejectMapping", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewer, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	mapping, err := h.approvalService.RejectMapping(c.Request.Context(), mappingID, reviewer, req.Reason)
	if err != nil {
		respondWithError(c, logger, err, "Failed to reject mapping")
		return
	}
	c.JSON(http.StatusOK, dto.ToMappingResponse(mapping))
}

func (h *mappingHandler) resetMapping(c *gin.Context) {
	mappingID := c.Param("mappingID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("mapping_id", mappingID))

	reviewer, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	mapping, err := h.approvalService.ResetMapping(c.Request.Context(), mappingID, reviewer)
	if err != nil {
		respondWithError(c, logger, err, "Failed to reset mapping")
		return
	}
	c.JSON(http.StatusOK, dto.ToMappingResponse(mapping))
}
