package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// maxFailureSummary bounds the error text stored in a mapping's reasoning.
const maxFailureSummary = 500

// sweepPageSize is how many stale claims one sweep query releases at a time.
const sweepPageSize = 100

// WorkerPolicy holds the retry and timing policy of the classification worker.
type WorkerPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	GatewayTimeout  time.Duration
	LivenessTimeout time.Duration
	BatchSize       int
}

// Validate reports a configuration error for policies the worker cannot honour.
func (p WorkerPolicy) Validate() error {
	switch {
	case p.MaxAttempts <= 0:
		return fmt.Errorf("%w: max attempts must be positive", apperrors.ErrConfiguration)
	case p.BaseDelay <= 0 || p.MaxDelay < p.BaseDelay:
		return fmt.Errorf("%w: retry delays must satisfy 0 < base <= max", apperrors.ErrConfiguration)
	case p.GatewayTimeout <= 0:
		return fmt.Errorf("%w: gateway timeout must be positive", apperrors.ErrConfiguration)
	case p.LivenessTimeout <= p.GatewayTimeout:
		return fmt.Errorf("%w: liveness timeout must exceed gateway timeout", apperrors.ErrConfiguration)
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", apperrors.ErrConfiguration)
	}
	return nil
}

// Backoff returns the delay before retrying a mapping that has failed attempts times:
// base * 2^(attempts-1), capped at MaxDelay.
func (p WorkerPolicy) Backoff(attempts int) time.Duration {
	if attempts <= 1 {
		return min(p.BaseDelay, p.MaxDelay)
	}
	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		if delay >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	return min(delay, p.MaxDelay)
}

// classificationWorker claims pending mappings, calls the inference gateway and
// records the outcome. All writes go through the store's compare-and-set update,
// so any number of workers may run against the same store.
type classificationWorker struct {
	BaseService
	mappingRepo portsrepo.MappingRepositoryFacade
	txnRepo     portsrepo.TransactionReader
	gateway     portssvc.InferenceGateway
	evaluator   portssvc.ConfidenceEvaluatorSvc
	events      portssvc.ApprovalPublisher
	policy      WorkerPolicy
}

// NewClassificationWorker creates a ClassificationWorkerSvc.
func NewClassificationWorker(
	mappingRepo portsrepo.MappingRepositoryFacade,
	txnRepo portsrepo.TransactionReader,
	gateway portssvc.InferenceGateway,
	evaluator portssvc.ConfidenceEvaluatorSvc,
	events portssvc.ApprovalPublisher,
	policy WorkerPolicy,
	opts ...Option,
) (portssvc.ClassificationWorkerSvc, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &classificationWorker{
		BaseService: newBaseService(opts),
		mappingRepo: mappingRepo,
		txnRepo:     txnRepo,
		gateway:     gateway,
		evaluator:   evaluator,
		events:      events,
		policy:      policy,
	}, nil
}

var _ portssvc.ClassificationWorkerSvc = (*classificationWorker)(nil)

func (w *classificationWorker) RunOnce(ctx context.Context) (int, error) {
	candidates, err := w.mappingRepo.ListClaimable(ctx, w.Now(), w.policy.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list claimable mappings: %w", err)
	}

	processed := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		claimed, err := w.ClaimMapping(ctx, candidate)
		if err != nil {
			if errors.Is(err, apperrors.ErrStaleWrite) || errors.Is(err, apperrors.ErrInvalidTransition) {
				w.LogDebug(ctx, "Lost claim race, skipping mapping", slog.String("mapping_id", candidate.MappingID))
				continue
			}
			return processed, err
		}

		updated, err := w.ProcessMapping(ctx, *claimed)
		if err != nil {
			w.LogError(ctx, err, "Failed to process mapping", slog.String("mapping_id", claimed.MappingID))
		}
		if updated != nil {
			processed++
		}
	}
	return processed, nil
}

func (w *classificationWorker) ClaimMapping(ctx context.Context, mapping domain.Mapping) (*domain.Mapping, error) {
	next := mapping
	if err := next.Claim(w.Now()); err != nil {
		return nil, err
	}
	claimed, err := w.mappingRepo.UpdateMapping(ctx, next, mapping.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to claim mapping %s: %w", mapping.MappingID, err)
	}
	return claimed, nil
}

func (w *classificationWorker) ProcessMapping(ctx context.Context, mapping domain.Mapping) (*domain.Mapping, error) {
	if mapping.Status != domain.MappingInProgress {
		return nil, fmt.Errorf("%w: mapping %s must be claimed before processing, status is %s",
			apperrors.ErrInvalidTransition, mapping.MappingID, mapping.Status)
	}

	result, callErr := w.infer(ctx, mapping)
	if callErr != nil && ctx.Err() != nil {
		// Shutting down: leave the claim for the sweep rather than burning an attempt.
		return nil, ctx.Err()
	}

	next := mapping
	now := w.Now()
	logger := w.GetLogger(ctx).With(slog.String("mapping_id", mapping.MappingID))

	if callErr != nil {
		exhausted := next.RecordFailure(summarize(callErr), w.policy.MaxAttempts,
			now.Add(w.policy.Backoff(mapping.AIAttempted+1)))
		logger.Warn("Inference attempt failed",
			slog.String("error", callErr.Error()),
			slog.Int("ai_attempted", next.AIAttempted),
			slog.Bool("exhausted", exhausted))
	} else {
		next.RecordSuccess(*result)
		next.ApplyEvaluation(w.evaluator.Evaluate(result.Confidence), now)
	}

	updated, err := w.mappingRepo.UpdateMapping(ctx, next, mapping.Version)
	if err != nil && !errors.Is(err, apperrors.ErrStaleWrite) && ctx.Err() == nil {
		// The store refused the outcome. Count it as a failed attempt so the mapping
		// still reaches review instead of cycling through the sweep.
		logger.Warn("Store rejected inference outcome, recording failed attempt", slog.String("error", err.Error()))
		updated, err = w.recordRejectedOutcome(ctx, mapping.MappingID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record inference outcome for mapping %s: %w", mapping.MappingID, err)
	}
	logger.Info("Mapping classified",
		slog.String("status", string(updated.Status)),
		slog.String("ai_status", string(updated.AIStatus)),
		slog.Int("ai_attempted", updated.AIAttempted))

	if updated.Status == domain.MappingApproved {
		return deliverApproval(ctx, w.mappingRepo, w.events, updated)
	}
	return updated, nil
}

// recordRejectedOutcome re-reads a claimed mapping and stores cause as a failed attempt.
func (w *classificationWorker) recordRejectedOutcome(ctx context.Context, mappingID string, cause error) (*domain.Mapping, error) {
	current, err := w.mappingRepo.FindMappingByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.MappingInProgress {
		return nil, fmt.Errorf("mapping %s moved to %s: %w", mappingID, current.Status, apperrors.ErrStaleWrite)
	}

	next := *current
	next.RecordFailure(summarize(cause), w.policy.MaxAttempts,
		w.Now().Add(w.policy.Backoff(current.AIAttempted+1)))
	return w.mappingRepo.UpdateMapping(ctx, next, current.Version)
}

// infer loads the transaction and calls the gateway under the configured timeout.
// All failures are normalised to ErrGateway or ErrGatewayTimeout.
func (w *classificationWorker) infer(ctx context.Context, mapping domain.Mapping) (*domain.InferenceResult, error) {
	txn, err := w.txnRepo.FindTransactionByID(ctx, mapping.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading transaction %s: %v", apperrors.ErrGateway, mapping.TransactionID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, w.policy.GatewayTimeout)
	defer cancel()

	result, err := w.gateway.Classify(callCtx, domain.NewInferenceRequest(*txn))
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s: %v", apperrors.ErrGatewayTimeout, w.policy.GatewayTimeout, err)
	case errors.Is(err, apperrors.ErrGateway) || errors.Is(err, apperrors.ErrGatewayTimeout):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}

	if result == nil || strings.TrimSpace(result.Category) == "" {
		return nil, fmt.Errorf("%w: empty category in response", apperrors.ErrGateway)
	}
	if err := domain.ValidateCategory(result.Category); err != nil {
		return nil, fmt.Errorf("%w: unusable category in response: %v", apperrors.ErrGateway, err)
	}
	if result.Confidence.IsNegative() || result.Confidence.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: confidence %s outside [0,1]", apperrors.ErrGateway, result.Confidence)
	}
	// Route on the value that will be stored.
	result.Confidence = result.Confidence.Round(domain.ConfidenceScale)
	return result, nil
}

func (w *classificationWorker) ResetMapping(ctx context.Context, mappingID string, actor string) (*domain.Mapping, error) {
	updated, err := resetMapping(ctx, w.mappingRepo, mappingID, w.Now())
	if err != nil {
		return nil, err
	}
	w.LogInfo(ctx, "Mapping reset", slog.String("mapping_id", mappingID), slog.String("actor", actor))
	return updated, nil
}

func (w *classificationWorker) SweepStaleClaims(ctx context.Context) (int, error) {
	released := 0
	for {
		now := w.Now()
		stale, err := w.mappingRepo.ListStaleClaims(ctx, now.Add(-w.policy.LivenessTimeout), sweepPageSize)
		if err != nil {
			return released, fmt.Errorf("failed to list stale claims: %w", err)
		}

		progressed := false
		for _, m := range stale {
			next := m
			if err := next.Release(now); err != nil {
				continue
			}
			if _, err := w.mappingRepo.UpdateMapping(ctx, next, m.Version); err != nil {
				if errors.Is(err, apperrors.ErrStaleWrite) {
					// The owning worker finished in the meantime.
					continue
				}
				return released, fmt.Errorf("failed to release mapping %s: %w", m.MappingID, err)
			}
			released++
			progressed = true
			w.LogInfo(ctx, "Released stale claim",
				slog.String("mapping_id", m.MappingID),
				slog.Int("ai_attempted", m.AIAttempted))
		}

		if len(stale) < sweepPageSize || !progressed {
			return released, nil
		}
	}
}

func (w *classificationWorker) RedeliverApprovalEvents(ctx context.Context) (int, error) {
	pending, err := w.mappingRepo.ListUndeliveredApprovals(ctx, w.Now().Add(-w.policy.LivenessTimeout), sweepPageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list undelivered approvals: %w", err)
	}

	delivered := 0
	for i := range pending {
		m := pending[i]
		updated, err := deliverApproval(ctx, w.mappingRepo, w.events, &m)
		if err != nil {
			w.LogError(ctx, err, "Approval redelivery failed", slog.String("mapping_id", m.MappingID))
			continue
		}
		if !updated.EventPending {
			delivered++
			w.LogInfo(ctx, "Redelivered approval event", slog.String("mapping_id", m.MappingID))
		}
	}
	return delivered, nil
}

// summarize bounds an error message to maxFailureSummary bytes without splitting a rune.
func summarize(err error) string {
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	if len(msg) <= maxFailureSummary {
		return msg
	}
	n := maxFailureSummary
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}
