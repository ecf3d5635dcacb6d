package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) SaveTransactionWithMapping(ctx context.Context, txn domain.Transaction, mapping domain.Mapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	if mapping.TransactionID != txn.TransactionID {
		return fmt.Errorf("%w: mapping belongs to transaction %s, not %s", apperrors.ErrValidation, mapping.TransactionID, txn.TransactionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[txn.TransactionID]; exists {
		return fmt.Errorf("transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicate)
	}
	if err := s.insertMappingLocked(mapping); err != nil {
		return err
	}
	s.transactions[txn.TransactionID] = txn
	return nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[transactionID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	t.Status = status
	s.transactions[transactionID] = t
	return nil
}
