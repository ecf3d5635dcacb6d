package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

func (s *Store) FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.currencies[currencyCode]
	if !ok {
		return nil, fmt.Errorf("currency %s: %w", currencyCode, apperrors.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	s.mu.RLock()
	out := make([]domain.Currency, 0, len(s.currencies))
	for _, c := range s.currencies {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out, nil
}

// SaveCurrency upserts a currency, keeping the original creation audit fields.
func (s *Store) SaveCurrency(ctx context.Context, currency domain.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.currencies[currency.CurrencyCode]; ok {
		currency.CreatedAt = existing.CreatedAt
		currency.CreatedBy = existing.CreatedBy
	}
	s.currencies[currency.CurrencyCode] = currency
	return nil
}
