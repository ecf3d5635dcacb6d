package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// resetMapping re-arms a mapping. Calling it on an already re-armed mapping is a
// no-op that returns the stored record unchanged.
func resetMapping(ctx context.Context, repo portsrepo.MappingRepositoryFacade, mappingID string, now time.Time) (*domain.Mapping, error) {
	current, err := repo.FindMappingByID(ctx, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping %s: %w", mappingID, err)
	}
	if current.IsReset() {
		return current, nil
	}

	next := *current
	if err := next.Reset(now); err != nil {
		return nil, err
	}
	updated, err := repo.UpdateMapping(ctx, next, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to reset mapping %s: %w", mappingID, err)
	}
	return updated, nil
}

// deliverApproval publishes the approval event of an approved mapping and, once every
// listener succeeded, clears its pending marker. On listener failure the marker stays
// set so the sweep redelivers the event; the approved record is returned either way.
func deliverApproval(ctx context.Context, repo portsrepo.MappingRepositoryFacade, events portssvc.ApprovalPublisher, approved *domain.Mapping) (*domain.Mapping, error) {
	if err := events.Publish(ctx, domain.NewApprovalEvent(*approved)); err != nil {
		return approved, fmt.Errorf("mapping %s approved but approval listeners failed: %w", approved.MappingID, err)
	}

	acked := *approved
	if err := acked.AckApprovalEvent(); err != nil {
		return approved, nil
	}
	updated, err := repo.UpdateMapping(ctx, acked, approved.Version)
	if err != nil {
		if errors.Is(err, apperrors.ErrStaleWrite) {
			// Acknowledged concurrently by a redelivery.
			return approved, nil
		}
		middleware.GetLoggerFromCtx(ctx).Warn("Approval event delivered but not acknowledged",
			slog.String("mapping_id", approved.MappingID),
			slog.String("error", err.Error()))
		return approved, nil
	}
	return updated, nil
}
