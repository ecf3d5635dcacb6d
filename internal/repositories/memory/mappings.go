package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
)

func (s *Store) FindMappingByID(ctx context.Context, mappingID string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[mappingID]
	if !ok {
		return nil, fmt.Errorf("mapping %s: %w", mappingID, apperrors.ErrNotFound)
	}
	out := cloneMapping(m)
	return &out, nil
}

func (s *Store) FindActiveMappingByTransactionID(ctx context.Context, transactionID string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.activeMappingLocked(transactionID, ""); ok {
		out := cloneMapping(m)
		return &out, nil
	}
	return nil, fmt.Errorf("active mapping for transaction %s: %w", transactionID, apperrors.ErrNotFound)
}

// activeMappingLocked finds the active mapping of a transaction, ignoring excludeID.
func (s *Store) activeMappingLocked(transactionID, excludeID string) (domain.Mapping, bool) {
	for id, m := range s.mappings {
		if id != excludeID && m.TransactionID == transactionID && m.Active() {
			return m, true
		}
	}
	return domain.Mapping{}, false
}

func (s *Store) ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		cursor = &c
	}
	limit = pagination.NormalizeLimit(limit)

	s.mu.RLock()
	matched := make([]domain.Mapping, 0)
	for _, m := range s.mappings {
		if m.Status != status {
			continue
		}
		if cursor != nil && !cursor.After(m.CreatedAt, m.MappingID) {
			continue
		}
		matched = append(matched, cloneMapping(m))
	}
	s.mu.RUnlock()

	sortByCreated(matched)

	var token *string
	if len(matched) > limit {
		last := matched[limit-1]
		t := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.MappingID})
		token = &t
		matched = matched[:limit]
	}
	return matched, token, nil
}

func (s *Store) ListClaimable(ctx context.Context, now time.Time, limit int) ([]domain.Mapping, error) {
	s.mu.RLock()
	var out []domain.Mapping
	for _, m := range s.mappings {
		if m.Status == domain.MappingPending && !m.NextAttemptAt.After(now) {
			out = append(out, cloneMapping(m))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NextAttemptAt.Equal(out[j].NextAttemptAt) {
			return out[i].MappingID < out[j].MappingID
		}
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]domain.Mapping, error) {
	s.mu.RLock()
	var out []domain.Mapping
	for _, m := range s.mappings {
		if m.Status == domain.MappingInProgress && m.ClaimedAt != nil && m.ClaimedAt.Before(claimedBefore) {
			out = append(out, cloneMapping(m))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.Before(*out[j].ClaimedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListUndeliveredApprovals(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Mapping, error) {
	s.mu.RLock()
	var out []domain.Mapping
	for _, m := range s.mappings {
		if m.Status == domain.MappingApproved && m.EventPending && m.ReviewedAt != nil && m.ReviewedAt.Before(approvedBefore) {
			out = append(out, cloneMapping(m))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ReviewedAt.Before(*out[j].ReviewedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateMapping(ctx context.Context, mapping domain.Mapping) error {
	if mapping.MappingID == "" || mapping.TransactionID == "" {
		return fmt.Errorf("%w: mapping and transaction IDs are required", apperrors.ErrValidation)
	}
	if err := mapping.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[mapping.TransactionID]; !ok {
		return fmt.Errorf("transaction %s: %w", mapping.TransactionID, apperrors.ErrNotFound)
	}
	return s.insertMappingLocked(mapping)
}

func (s *Store) insertMappingLocked(mapping domain.Mapping) error {
	if _, exists := s.mappings[mapping.MappingID]; exists {
		return fmt.Errorf("mapping %s: %w", mapping.MappingID, apperrors.ErrDuplicate)
	}
	if mapping.Active() {
		if existing, ok := s.activeMappingLocked(mapping.TransactionID, ""); ok {
			return &apperrors.DuplicateMappingError{TransactionID: mapping.TransactionID, ExistingMappingID: existing.MappingID}
		}
	}
	if mapping.Version == 0 {
		mapping.Version = 1
	}
	s.mappings[mapping.MappingID] = cloneMapping(mapping)
	return nil
}

func (s *Store) UpdateMapping(ctx context.Context, mapping domain.Mapping, expectedVersion int64) (*domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.mappings[mapping.MappingID]
	if !ok {
		return nil, fmt.Errorf("mapping %s: %w", mapping.MappingID, apperrors.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("mapping %s at version %d, expected %d: %w",
			mapping.MappingID, current.Version, expectedVersion, apperrors.ErrStaleWrite)
	}

	// Identity fields are immutable.
	mapping.TransactionID = current.TransactionID
	mapping.CreatedAt = current.CreatedAt
	if err := domain.ValidateTransition(current, mapping); err != nil {
		return nil, err
	}
	if mapping.Active() && !current.Active() {
		if existing, ok := s.activeMappingLocked(mapping.TransactionID, mapping.MappingID); ok {
			return nil, &apperrors.DuplicateMappingError{TransactionID: mapping.TransactionID, ExistingMappingID: existing.MappingID}
		}
	}

	mapping.Version = current.Version + 1
	mapping.UpdatedAt = s.now()
	s.mappings[mapping.MappingID] = cloneMapping(mapping)

	out := cloneMapping(mapping)
	return &out, nil
}

func sortByCreated(ms []domain.Mapping) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].MappingID < ms[j].MappingID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}
