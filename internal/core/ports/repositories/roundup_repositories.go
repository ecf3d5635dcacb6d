package repositories

import (
	"context"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// RoundupReader defines read operations for the round-up ledger
type RoundupReader interface {
	// ListEntriesByOwner returns one page of an owner's ledger entries, oldest first.
	ListEntriesByOwner(ctx context.Context, owner string, limit int, nextToken *string) ([]domain.RoundupLedgerEntry, *string, error)

	// SumByOwner totals an owner's ledger entries per currency.
	SumByOwner(ctx context.Context, owner string) ([]domain.RoundupTotal, error)
}

// RoundupWriter defines the append-only write of the round-up ledger
type RoundupWriter interface {
	AppendEntry(ctx context.Context, entry domain.RoundupLedgerEntry) error
}

// RoundupRepositoryFacade combines all ledger repository interfaces
type RoundupRepositoryFacade interface {
	RoundupReader
	RoundupWriter
}
