package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/utils/accounting"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

func (s *Store) AppendEntry(ctx context.Context, entry domain.RoundupLedgerEntry) error {
	if entry.Amount.IsNegative() {
		return fmt.Errorf("%w: round-up amount must be non-negative", apperrors.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.EntryID == entry.EntryID {
			return fmt.Errorf("ledger entry %s: %w", entry.EntryID, apperrors.ErrDuplicate)
		}
		if e.MappingID == entry.MappingID {
			return fmt.Errorf("ledger entry for mapping %s: %w", entry.MappingID, apperrors.ErrDuplicate)
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListEntriesByOwner(ctx context.Context, owner string, limit int, nextToken *string) ([]domain.RoundupLedgerEntry, *string, error) {
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
	out := make([]domain.RoundupLedgerEntry, 0)
	for _, e := range s.entries {
		if e.Owner != owner {
			continue
		}
		if cursor != nil && !cursor.After(e.CreatedAt, e.EntryID) {
			continue
		}
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].EntryID < out[j].EntryID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	var token *string
	if len(out) > limit {
		last := out[limit-1]
		t := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.EntryID})
		token = &t
		out = out[:limit]
	}
	return out, token, nil
}

func (s *Store) SumByOwner(ctx context.Context, owner string) ([]domain.RoundupTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCurrency := make(map[string][]decimal.Decimal)
	for _, e := range s.entries {
		if e.Owner != owner {
			continue
		}
		byCurrency[e.CurrencyCode] = append(byCurrency[e.CurrencyCode], e.Amount)
	}

	totals := make([]domain.RoundupTotal, 0, len(byCurrency))
	for code, amounts := range byCurrency {
		totals = append(totals, domain.RoundupTotal{
			Owner:        owner,
			CurrencyCode: code,
			Total:        accounting.SumAmounts(amounts),
			EntryCount:   len(amounts),
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].CurrencyCode < totals[j].CurrencyCode })
	return totals, nil
}
