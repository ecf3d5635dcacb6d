package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	"github.com/SscSPs/txn_categorizer/internal/models"
	"github.com/SscSPs/txn_categorizer/internal/utils/mapping"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxRoundupRepository struct {
	BaseRepository
}

func newPgxRoundupRepository(pool *pgxpool.Pool) portsrepo.RoundupRepositoryFacade {
	return &PgxRoundupRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.RoundupRepositoryFacade = (*PgxRoundupRepository)(nil)

// AppendEntry inserts a ledger entry. The ledger is never updated or deleted.
func (r *PgxRoundupRepository) AppendEntry(ctx context.Context, entry domain.RoundupLedgerEntry) error {
	m := mapping.ToModelRoundupEntry(entry)
	query := `
		INSERT INTO roundup_ledger (entry_id, transaction_id, mapping_id, owner, amount, currency_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.EntryID, m.TransactionID, m.MappingID, m.Owner, m.Amount, m.CurrencyCode, m.CreatedAt,
	)
	if err != nil {
		code, _, ok := pgErrorCode(err)
		switch {
		case ok && code == pgUniqueViolation:
			return fmt.Errorf("ledger entry %s: %w", m.EntryID, apperrors.ErrDuplicate)
		case ok && code == pgCheckViolation:
			return fmt.Errorf("%w: round-up amount must be non-negative", apperrors.ErrValidation)
		case ok && code == pgForeignKeyViolation:
			return fmt.Errorf("transaction %s: %w", m.TransactionID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to append ledger entry for transaction %s: %w", m.TransactionID, err)
	}
	return nil
}

// ListEntriesByOwner pages through an owner's entries, oldest first.
func (r *PgxRoundupRepository) ListEntriesByOwner(ctx context.Context, owner string, limit int, nextToken *string) ([]domain.RoundupLedgerEntry, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	fetchLimit := limit + 1

	const cols = `entry_id, transaction_id, mapping_id, owner, amount, currency_code, created_at`
	var (
		rows pgx.Rows
		err  error
	)
	if nextToken != nil && *nextToken != "" {
		cursor, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		rows, err = r.Pool.Query(ctx, `SELECT `+cols+` FROM roundup_ledger
			WHERE owner = $1 AND (created_at, entry_id) > ($2, $3)
			ORDER BY created_at, entry_id LIMIT $4;`, owner, cursor.CreatedAt, cursor.ID, fetchLimit)
	} else {
		rows, err = r.Pool.Query(ctx, `SELECT `+cols+` FROM roundup_ledger
			WHERE owner = $1
			ORDER BY created_at, entry_id LIMIT $2;`, owner, fetchLimit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query ledger for %s: %w", owner, err)
	}
	defer rows.Close()

	modelEntries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RoundupLedgerEntry, error) {
		var e models.RoundupLedgerEntry
		err := row.Scan(&e.EntryID, &e.TransactionID, &e.MappingID, &e.Owner, &e.Amount, &e.CurrencyCode, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan ledger entries: %w", err)
	}

	entries := mapping.ToDomainRoundupEntrySlice(modelEntries)
	var token *string
	if len(entries) > limit {
		last := entries[limit-1]
		t := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.EntryID})
		token = &t
		entries = entries[:limit]
	}
	return entries, token, nil
}

// SumByOwner totals an owner's ledger per currency.
func (r *PgxRoundupRepository) SumByOwner(ctx context.Context, owner string) ([]domain.RoundupTotal, error) {
	query := `
		SELECT currency_code, COALESCE(SUM(amount), 0), COUNT(*)
		FROM roundup_ledger
		WHERE owner = $1
		GROUP BY currency_code
		ORDER BY currency_code;
	`
	rows, err := r.Pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to total ledger for %s: %w", owner, err)
	}
	defer rows.Close()

	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RoundupTotal, error) {
		t := domain.RoundupTotal{Owner: owner}
		err := row.Scan(&t.CurrencyCode, &t.Total, &t.EntryCount)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger totals: %w", err)
	}
	return totals, nil
}
