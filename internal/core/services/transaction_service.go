package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
)

// transactionService accepts transactions from ingestion and keeps their
// categorization status in step with their mappings.
type transactionService struct {
	BaseService
	txnRepo     portsrepo.TransactionRepositoryFacade
	mappingRepo portsrepo.MappingRepositoryFacade
}

// NewTransactionService creates a TransactionSvcFacade.
func NewTransactionService(txnRepo portsrepo.TransactionRepositoryFacade, mappingRepo portsrepo.MappingRepositoryFacade, opts ...Option) portssvc.TransactionSvcFacade {
	return &transactionService{
		BaseService: newBaseService(opts),
		txnRepo:     txnRepo,
		mappingRepo: mappingRepo,
	}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

func (s *transactionService) SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest) (*domain.Transaction, *domain.Mapping, error) {
	now := s.Now()
	txnID := strings.TrimSpace(req.TransactionID)
	if txnID == "" {
		txnID = uuid.NewString()
	}

	txn := domain.Transaction{
		TransactionID: txnID,
		Owner:         strings.TrimSpace(req.Owner),
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		CurrencyCode:  strings.ToUpper(req.CurrencyCode),
		OccurredAt:    req.OccurredAt.UTC(),
		AccountType:   domain.AccountType(req.AccountType),
		Status:        domain.TransactionPending,
		CreatedAt:     now,
	}
	if err := txn.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	mapping := domain.NewMapping(uuid.NewString(), txnID, strings.TrimSpace(req.CategoryHint), now)
	if err := s.txnRepo.SaveTransactionWithMapping(ctx, txn, mapping); err != nil {
		return nil, nil, fmt.Errorf("failed to submit transaction %s: %w", txnID, err)
	}

	s.LogInfo(ctx, "Transaction submitted",
		slog.String("transaction_id", txnID),
		slog.String("mapping_id", mapping.MappingID))
	return &txn, &mapping, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

func (s *transactionService) RequestRemapping(ctx context.Context, transactionID string, req dto.RemapTransactionRequest) (*domain.Mapping, error) {
	if _, err := s.txnRepo.FindTransactionByID(ctx, transactionID); err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}

	mapping := domain.NewMapping(uuid.NewString(), transactionID, strings.TrimSpace(req.CategoryHint), s.Now())
	if err := s.mappingRepo.CreateMapping(ctx, mapping); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateMapping) {
			return nil, s.duplicateMappingError(ctx, transactionID, err)
		}
		return nil, fmt.Errorf("failed to create mapping for transaction %s: %w", transactionID, err)
	}

	s.LogInfo(ctx, "Remapping requested",
		slog.String("transaction_id", transactionID),
		slog.String("mapping_id", mapping.MappingID))
	return &mapping, nil
}

// duplicateMappingError enriches a duplicate failure with the blocking mapping's id.
func (s *transactionService) duplicateMappingError(ctx context.Context, transactionID string, cause error) error {
	existing, err := s.mappingRepo.FindActiveMappingByTransactionID(ctx, transactionID)
	if err != nil {
		return cause
	}
	return &apperrors.DuplicateMappingError{TransactionID: transactionID, ExistingMappingID: existing.MappingID}
}

// OnMappingApproved flips the owning transaction to mapped.
func (s *transactionService) OnMappingApproved(ctx context.Context, event domain.ApprovalEvent) error {
	if err := s.txnRepo.UpdateTransactionStatus(ctx, event.TransactionID, domain.TransactionMapped); err != nil {
		return fmt.Errorf("failed to mark transaction %s mapped: %w", event.TransactionID, err)
	}
	return nil
}
