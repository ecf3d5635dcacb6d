package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// MappingReader defines read operations for mapping data
type MappingReader interface {
	// FindMappingByID retrieves a mapping by id. Returns apperrors.ErrNotFound if absent.
	FindMappingByID(ctx context.Context, mappingID string) (*domain.Mapping, error)

	// FindActiveMappingByTransactionID returns the non-rejected mapping of a transaction.
	FindActiveMappingByTransactionID(ctx context.Context, transactionID string) (*domain.Mapping, error)

	// ListMappingsByStatus returns one page of mappings in (created_at, id) order.
	ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error)

	// ListClaimable returns pending mappings whose next attempt time has passed.
	ListClaimable(ctx context.Context, now time.Time, limit int) ([]domain.Mapping, error)

	// ListStaleClaims returns in-progress mappings claimed before the cutoff.
	ListStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]domain.Mapping, error)

	// ListUndeliveredApprovals returns approved mappings reviewed before the cutoff whose
	// approval event has not been acknowledged.
	ListUndeliveredApprovals(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Mapping, error)
}

// MappingWriter defines write operations for mapping data
type MappingWriter interface {
	// CreateMapping persists a new mapping. Returns apperrors.ErrDuplicateMapping if the
	// transaction already has an active mapping.
	CreateMapping(ctx context.Context, mapping domain.Mapping) error

	// UpdateMapping is the compare-and-set write. It persists every mutable field of mapping
	// only if the stored version equals expectedVersion, and returns the stored record with
	// its new version. Fails with apperrors.ErrStaleWrite on a version mismatch and with
	// apperrors.ErrInvalidTransition if the change violates the state machine.
	UpdateMapping(ctx context.Context, mapping domain.Mapping, expectedVersion int64) (*domain.Mapping, error)
}

// MappingRepositoryFacade combines all mapping-related repository interfaces
type MappingRepositoryFacade interface {
	MappingReader
	MappingWriter
}
