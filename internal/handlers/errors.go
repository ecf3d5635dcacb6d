package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
)

// respondWithError maps a service error onto an HTTP status and writes it.
// Unknown errors become 500 with fallbackMsg so internals are not leaked.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallbackMsg string) {
	var dupErr *apperrors.DuplicateMappingError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &dupErr):
		logger.Warn("Active mapping already exists", slog.String("existing_mapping_id", dupErr.ExistingMappingID))
		c.JSON(http.StatusConflict, gin.H{
			"error":             "Transaction already has an active mapping",
			"existingMappingID": dupErr.ExistingMappingID,
		})
	case errors.Is(err, apperrors.ErrDuplicateMapping):
		logger.Warn("Active mapping already exists", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction already has an active mapping"})
	case errors.Is(err, apperrors.ErrStaleWrite):
		logger.Warn("Concurrent modification", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "Record was modified concurrently, re-read and retry"})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already exists"})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		logger.Warn("Invalid state transition", slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.As(err, &appErr):
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
	default:
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
	}
}

func optionalToken(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}
