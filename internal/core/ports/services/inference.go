package services

import (
	"context"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// InferenceGateway classifies a transaction into a category. Implementations must
// honour ctx cancellation; the worker applies the timeout.
type InferenceGateway interface {
	Classify(ctx context.Context, req domain.InferenceRequest) (*domain.InferenceResult, error)
}
