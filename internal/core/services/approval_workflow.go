package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
)

// approvalWorkflow implements the human review transitions of a mapping.
type approvalWorkflow struct {
	BaseService
	mappingRepo portsrepo.MappingRepositoryFacade
	events      portssvc.ApprovalPublisher
}

// NewApprovalWorkflow creates an ApprovalWorkflowSvcFacade.
func NewApprovalWorkflow(mappingRepo portsrepo.MappingRepositoryFacade, events portssvc.ApprovalPublisher, opts ...Option) portssvc.ApprovalWorkflowSvcFacade {
	return &approvalWorkflow{
		BaseService: newBaseService(opts),
		mappingRepo: mappingRepo,
		events:      events,
	}
}

var _ portssvc.ApprovalWorkflowSvcFacade = (*approvalWorkflow)(nil)

func (s *approvalWorkflow) GetMapping(ctx context.Context, mappingID string) (*domain.Mapping, error) {
	m, err := s.mappingRepo.FindMappingByID(ctx, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping %s: %w", mappingID, err)
	}
	return m, nil
}

func (s *approvalWorkflow) ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error) {
	if _, err := domain.ParseMappingStatus(string(status)); err != nil {
		return nil, nil, err
	}
	mappings, token, err := s.mappingRepo.ListMappingsByStatus(ctx, status, pagination.NormalizeLimit(limit), nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list mappings with status %s: %w", status, err)
	}
	if mappings == nil {
		mappings = []domain.Mapping{}
	}
	return mappings, token, nil
}

func (s *approvalWorkflow) ApproveMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, fmt.Errorf("%w: reviewer identity is required", apperrors.ErrUnauthorized)
	}

	current, err := s.mappingRepo.FindMappingByID(ctx, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping %s: %w", mappingID, err)
	}

	next := *current
	if err := next.Approve(reviewer, s.Now()); err != nil {
		return nil, err
	}
	updated, err := s.mappingRepo.UpdateMapping(ctx, next, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to approve mapping %s: %w", mappingID, err)
	}
	s.LogInfo(ctx, "Mapping approved",
		slog.String("mapping_id", mappingID),
		slog.String("reviewer", reviewer),
		slog.String("category", updated.ProposedCategory))

	return deliverApproval(ctx, s.mappingRepo, s.events, updated)
}

func (s *approvalWorkflow) RejectMapping(ctx context.Context, mappingID, reviewer, reason string) (*domain.Mapping, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, fmt.Errorf("%w: reviewer identity is required", apperrors.ErrUnauthorized)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}

	current, err := s.mappingRepo.FindMappingByID(ctx, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping %s: %w", mappingID, err)
	}

	next := *current
	if err := next.Reject(reviewer, reason, s.Now()); err != nil {
		return nil, err
	}
	updated, err := s.mappingRepo.UpdateMapping(ctx, next, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to reject mapping %s: %w", mappingID, err)
	}
	s.LogInfo(ctx, "Mapping rejected", slog.String("mapping_id", mappingID), slog.String("reviewer", reviewer))
	return updated, nil
}

func (s *approvalWorkflow) ResetMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, fmt.Errorf("%w: reviewer identity is required", apperrors.ErrUnauthorized)
	}
	updated, err := resetMapping(ctx, s.mappingRepo, mappingID, s.Now())
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Mapping reset to pending", slog.String("mapping_id", mappingID), slog.String("reviewer", reviewer))
	return updated, nil
}
