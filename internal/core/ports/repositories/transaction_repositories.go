package repositories

import (
	"context"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction by id. Returns apperrors.ErrNotFound if absent.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// TransactionWriter defines write operations for transaction data
type TransactionWriter interface {
	// SaveTransactionWithMapping stores a new transaction together with its first mapping atomically.
	SaveTransactionWithMapping(ctx context.Context, txn domain.Transaction, mapping domain.Mapping) error

	// UpdateTransactionStatus sets the categorization status of a transaction.
	UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
