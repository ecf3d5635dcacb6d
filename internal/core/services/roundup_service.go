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
	"github.com/SscSPs/txn_categorizer/internal/utils/accounting"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
)

// roundupLedger appends spare-change entries for approved transactions. Redelivered
// events for a mapping that already has an entry are absorbed by the store's
// one-entry-per-mapping guard.
type roundupLedger struct {
	BaseService
	roundupRepo portsrepo.RoundupRepositoryFacade
	txnRepo     portsrepo.TransactionReader
	currencies  portssvc.CurrencyReaderSvc
}

// NewRoundupLedger creates a RoundupSvcFacade.
func NewRoundupLedger(roundupRepo portsrepo.RoundupRepositoryFacade, txnRepo portsrepo.TransactionReader, currencies portssvc.CurrencyReaderSvc, opts ...Option) portssvc.RoundupSvcFacade {
	return &roundupLedger{
		BaseService: newBaseService(opts),
		roundupRepo: roundupRepo,
		txnRepo:     txnRepo,
		currencies:  currencies,
	}
}

var _ portssvc.RoundupSvcFacade = (*roundupLedger)(nil)

func (s *roundupLedger) OnMappingApproved(ctx context.Context, event domain.ApprovalEvent) error {
	txn, err := s.txnRepo.FindTransactionByID(ctx, event.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction %s for round-up: %w", event.TransactionID, err)
	}

	precision, err := s.currencies.PrecisionFor(ctx, txn.CurrencyCode)
	if err != nil {
		return fmt.Errorf("failed to resolve precision for %s: %w", txn.CurrencyCode, err)
	}

	delta, err := accounting.RoundUp(txn.Amount, precision)
	if err != nil {
		return fmt.Errorf("failed to compute round-up for transaction %s: %w", txn.TransactionID, err)
	}
	if delta.IsZero() {
		s.LogDebug(ctx, "No round-up for whole amount",
			slog.String("transaction_id", txn.TransactionID),
			slog.String("amount", txn.Amount.String()))
		return nil
	}

	entry := domain.RoundupLedgerEntry{
		EntryID:       uuid.NewString(),
		TransactionID: txn.TransactionID,
		MappingID:     event.MappingID,
		Owner:         txn.Owner,
		Amount:        delta,
		CurrencyCode:  txn.CurrencyCode,
		CreatedAt:     s.Now(),
	}
	if err := s.roundupRepo.AppendEntry(ctx, entry); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			s.LogDebug(ctx, "Round-up already recorded for mapping", slog.String("mapping_id", event.MappingID))
			return nil
		}
		return fmt.Errorf("failed to append round-up entry for transaction %s: %w", txn.TransactionID, err)
	}

	s.LogInfo(ctx, "Round-up recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("amount", delta.String()),
		slog.String("currency", txn.CurrencyCode))
	return nil
}

func (s *roundupLedger) GetRoundupTotal(ctx context.Context, owner string) ([]domain.RoundupTotal, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", apperrors.ErrValidation)
	}
	totals, err := s.roundupRepo.SumByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to total round-ups for %s: %w", owner, err)
	}
	if totals == nil {
		return []domain.RoundupTotal{}, nil
	}
	return totals, nil
}

func (s *roundupLedger) ListRoundupEntries(ctx context.Context, owner string, limit int, nextToken *string) ([]domain.RoundupLedgerEntry, *string, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, nil, fmt.Errorf("%w: owner is required", apperrors.ErrValidation)
	}
	entries, token, err := s.roundupRepo.ListEntriesByOwner(ctx, owner, pagination.NormalizeLimit(limit), nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list round-ups for %s: %w", owner, err)
	}
	if entries == nil {
		entries = []domain.RoundupLedgerEntry{}
	}
	return entries, token, nil
}
