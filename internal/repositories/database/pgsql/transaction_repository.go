package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	"github.com/SscSPs/txn_categorizer/internal/models"
	"github.com/SscSPs/txn_categorizer/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTransactionRepository struct {
	BaseRepository
	mappings *PgxMappingRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool, mappings *PgxMappingRepository) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
		mappings:       mappings,
	}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

// FindTransactionByID retrieves a transaction by id.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `
		SELECT transaction_id, owner, description, amount, currency_code, occurred_at, account_type, status, created_at
		FROM transactions
		WHERE transaction_id = $1;
	`
	var m models.Transaction
	err := r.Pool.QueryRow(ctx, query, transactionID).Scan(
		&m.TransactionID,
		&m.Owner,
		&m.Description,
		&m.Amount,
		&m.CurrencyCode,
		&m.OccurredAt,
		&m.AccountType,
		&m.Status,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// SaveTransactionWithMapping inserts a transaction and its first mapping in one database transaction.
func (r *PgxTransactionRepository) SaveTransactionWithMapping(ctx context.Context, txn domain.Transaction, first domain.Mapping) error {
	if err := first.Validate(); err != nil {
		return err
	}
	m := mapping.ToModelTransaction(txn)

	return r.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO transactions (transaction_id, owner, description, amount, currency_code, occurred_at, account_type, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`
		_, err := tx.Exec(ctx, query,
			m.TransactionID,
			m.Owner,
			m.Description,
			m.Amount,
			m.CurrencyCode,
			m.OccurredAt,
			m.AccountType,
			m.Status,
			m.CreatedAt,
		)
		if err != nil {
			if code, _, ok := pgErrorCode(err); ok && code == pgUniqueViolation {
				return fmt.Errorf("transaction %s: %w", m.TransactionID, apperrors.ErrDuplicate)
			}
			return fmt.Errorf("failed to insert transaction %s: %w", m.TransactionID, err)
		}
		return r.mappings.insert(ctx, tx, first)
	})
}

// UpdateTransactionStatus sets the categorization status of a transaction.
func (r *PgxTransactionRepository) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE transactions SET status = $2 WHERE transaction_id = $1;`, transactionID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %s: %w", transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return nil
}
