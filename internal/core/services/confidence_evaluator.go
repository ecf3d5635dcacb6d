package services

import (
	"fmt"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// confidenceEvaluator routes inference outcomes by two configurable thresholds.
// It holds no state beyond them and never rejects.
type confidenceEvaluator struct {
	high decimal.Decimal
	low  decimal.Decimal
}

// NewConfidenceEvaluator validates the thresholds and returns an evaluator.
// Thresholds must satisfy 0 <= low <= high <= 1.
func NewConfidenceEvaluator(high, low decimal.Decimal) (portssvc.ConfidenceEvaluatorSvc, error) {
	one := decimal.NewFromInt(1)
	if low.IsNegative() || high.GreaterThan(one) || low.GreaterThan(high) {
		return nil, fmt.Errorf("%w: confidence thresholds must satisfy 0 <= low (%s) <= high (%s) <= 1",
			apperrors.ErrConfiguration, low, high)
	}
	return &confidenceEvaluator{high: high, low: low}, nil
}

var _ portssvc.ConfidenceEvaluatorSvc = (*confidenceEvaluator)(nil)

func (e *confidenceEvaluator) Evaluate(confidence decimal.Decimal) domain.Evaluation {
	switch {
	case confidence.GreaterThanOrEqual(e.high):
		return domain.Evaluation{Decision: domain.DecisionAutoApprove}
	case confidence.GreaterThanOrEqual(e.low):
		return domain.Evaluation{Decision: domain.DecisionPendingReview}
	default:
		return domain.Evaluation{Decision: domain.DecisionPendingReview, LowConfidence: true}
	}
}
