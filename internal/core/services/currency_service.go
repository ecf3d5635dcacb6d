package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
)

type currencyService struct {
	BaseService
	currencyRepo portsrepo.CurrencyRepositoryFacade
}

// NewCurrencyService creates a CurrencySvcFacade.
func NewCurrencyService(currencyRepo portsrepo.CurrencyRepositoryFacade, opts ...Option) portssvc.CurrencySvcFacade {
	return &currencyService{BaseService: newBaseService(opts), currencyRepo: currencyRepo}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

func (s *currencyService) CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, creatorUserID string) (*domain.Currency, error) {
	// Basic validation already handled by DTO binding (required, len=3, uppercase)
	if req.Precision == nil || *req.Precision < 0 {
		return nil, fmt.Errorf("%w: precision must be non-negative", apperrors.ErrValidation)
	}
	now := s.Now()

	currency := domain.Currency{
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		Symbol:       req.Symbol,
		Name:         req.Name,
		Precision:    *req.Precision,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.currencyRepo.SaveCurrency(ctx, currency); err != nil {
		return nil, fmt.Errorf("failed to create currency in service: %w", err)
	}
	return &currency, nil
}

func (s *currencyService) GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, strings.ToUpper(currencyCode))
	if err != nil {
		return nil, fmt.Errorf("failed to get currency by code in service: %w", err)
	}
	return currency, nil
}

func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	currencies, err := s.currencyRepo.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies in service: %w", err)
	}
	// Return empty slice if no currencies found, not nil
	if currencies == nil {
		return []domain.Currency{}, nil
	}
	return currencies, nil
}

func (s *currencyService) PrecisionFor(ctx context.Context, currencyCode string) (int, error) {
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, strings.ToUpper(currencyCode))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Unknown currency, using default precision",
				slog.String("currency", currencyCode),
				slog.Int("precision", domain.DefaultCurrencyPrecision))
			return domain.DefaultCurrencyPrecision, nil
		}
		return 0, fmt.Errorf("failed to look up currency %s: %w", currencyCode, err)
	}
	return currency.Precision, nil
}
