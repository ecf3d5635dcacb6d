package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	"github.com/SscSPs/txn_categorizer/internal/models"
	"github.com/SscSPs/txn_categorizer/internal/utils/mapping"
	"github.com/SscSPs/txn_categorizer/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activeMappingIndex is the partial unique index allowing one non-rejected mapping per transaction.
const activeMappingIndex = "mappings_active_transaction_uidx"

const mappingColumns = `mapping_id, transaction_id, proposed_category, confidence, reasoning,
	ai_attempted, ai_status, admin_approved, status, low_confidence, needs_attention,
	reviewer, reviewed_at, review_reason, next_attempt_at, claimed_at, event_pending,
	created_at, updated_at, version`

type PgxMappingRepository struct {
	BaseRepository
}

func newPgxMappingRepository(pool *pgxpool.Pool) *PgxMappingRepository {
	return &PgxMappingRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MappingRepositoryFacade = (*PgxMappingRepository)(nil)

func scanMapping(row pgx.Row) (models.Mapping, error) {
	var m models.Mapping
	err := row.Scan(
		&m.MappingID,
		&m.TransactionID,
		&m.ProposedCategory,
		&m.Confidence,
		&m.Reasoning,
		&m.AIAttempted,
		&m.AIStatus,
		&m.AdminApproved,
		&m.Status,
		&m.LowConfidence,
		&m.NeedsAttention,
		&m.Reviewer,
		&m.ReviewedAt,
		&m.ReviewReason,
		&m.NextAttemptAt,
		&m.ClaimedAt,
		&m.EventPending,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.Version,
	)
	return m, err
}

func (r *PgxMappingRepository) queryMappings(ctx context.Context, query string, args ...any) ([]domain.Mapping, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	modelMappings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Mapping, error) {
		return scanMapping(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan mappings: %w", err)
	}
	return mapping.ToDomainMappingSlice(modelMappings), nil
}

func (r *PgxMappingRepository) findByID(ctx context.Context, q querier, mappingID string, forUpdate bool) (*domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE mapping_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMapping(q.QueryRow(ctx, query, mappingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("mapping %s: %w", mappingID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find mapping %s: %w", mappingID, err)
	}
	d := mapping.ToDomainMapping(m)
	return &d, nil
}

// FindMappingByID retrieves a mapping by id.
func (r *PgxMappingRepository) FindMappingByID(ctx context.Context, mappingID string) (*domain.Mapping, error) {
	return r.findByID(ctx, r.Pool, mappingID, false)
}

// FindActiveMappingByTransactionID returns the non-rejected mapping of a transaction.
func (r *PgxMappingRepository) FindActiveMappingByTransactionID(ctx context.Context, transactionID string) (*domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE transaction_id = $1 AND status <> 'rejected';`
	m, err := scanMapping(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("active mapping for transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find active mapping for transaction %s: %w", transactionID, err)
	}
	d := mapping.ToDomainMapping(m)
	return &d, nil
}

// ListMappingsByStatus pages through mappings with a status in (created_at, mapping_id) order.
func (r *PgxMappingRepository) ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	var (
		mappings []domain.Mapping
		err      error
	)
	if nextToken != nil && *nextToken != "" {
		cursor, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		query := `SELECT ` + mappingColumns + ` FROM mappings
			WHERE status = $1 AND (created_at, mapping_id) > ($2, $3)
			ORDER BY created_at, mapping_id
			LIMIT $4;`
		mappings, err = r.queryMappings(ctx, query, string(status), cursor.CreatedAt, cursor.ID, fetchLimit)
	} else {
		query := `SELECT ` + mappingColumns + ` FROM mappings
			WHERE status = $1
			ORDER BY created_at, mapping_id
			LIMIT $2;`
		mappings, err = r.queryMappings(ctx, query, string(status), fetchLimit)
	}
	if err != nil {
		return nil, nil, err
	}

	var token *string
	if len(mappings) > limit {
		last := mappings[limit-1]
		t := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.MappingID})
		token = &t
		mappings = mappings[:limit]
	}
	return mappings, token, nil
}

// ListClaimable returns pending mappings whose backoff has elapsed, oldest first.
func (r *PgxMappingRepository) ListClaimable(ctx context.Context, now time.Time, limit int) ([]domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at, mapping_id
		LIMIT $2;`
	return r.queryMappings(ctx, query, now, limit)
}

// ListStaleClaims returns in-progress mappings claimed before the cutoff.
func (r *PgxMappingRepository) ListStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings
		WHERE status = 'in_progress' AND claimed_at < $1
		ORDER BY claimed_at, mapping_id
		LIMIT $2;`
	return r.queryMappings(ctx, query, claimedBefore, limit)
}

// ListUndeliveredApprovals returns approved mappings whose approval event is still unacknowledged.
func (r *PgxMappingRepository) ListUndeliveredApprovals(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings
		WHERE event_pending AND reviewed_at < $1
		ORDER BY reviewed_at, mapping_id
		LIMIT $2;`
	return r.queryMappings(ctx, query, approvedBefore, limit)
}

// CreateMapping inserts a new mapping.
func (r *PgxMappingRepository) CreateMapping(ctx context.Context, m domain.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return r.insert(ctx, r.Pool, m)
}

func (r *PgxMappingRepository) insert(ctx context.Context, q querier, d domain.Mapping) error {
	m := mapping.ToModelMapping(d)
	if m.Version == 0 {
		m.Version = 1
	}
	query := `INSERT INTO mappings (` + mappingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);`

	_, err := q.Exec(ctx, query,
		m.MappingID, m.TransactionID, m.ProposedCategory, m.Confidence, m.Reasoning,
		m.AIAttempted, m.AIStatus, m.AdminApproved, m.Status, m.LowConfidence, m.NeedsAttention,
		m.Reviewer, m.ReviewedAt, m.ReviewReason, m.NextAttemptAt, m.ClaimedAt, m.EventPending,
		m.CreatedAt, m.UpdatedAt, m.Version,
	)
	if err != nil {
		return r.translateWriteError(ctx, err, m.TransactionID, m.MappingID)
	}
	return nil
}

// UpdateMapping performs the compare-and-set write. The row is locked, its version
// compared with expectedVersion and the transition validated before the update,
// which itself is guarded by the version again.
func (r *PgxMappingRepository) UpdateMapping(ctx context.Context, next domain.Mapping, expectedVersion int64) (*domain.Mapping, error) {
	var updated *domain.Mapping
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := r.findByID(ctx, tx, next.MappingID, true)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("mapping %s at version %d, expected %d: %w",
				next.MappingID, current.Version, expectedVersion, apperrors.ErrStaleWrite)
		}

		next.TransactionID = current.TransactionID
		next.CreatedAt = current.CreatedAt
		if err := domain.ValidateTransition(*current, next); err != nil {
			return err
		}

		m := mapping.ToModelMapping(next)
		query := `UPDATE mappings SET
				proposed_category = $3, confidence = $4, reasoning = $5,
				ai_attempted = $6, ai_status = $7, admin_approved = $8, status = $9,
				low_confidence = $10, needs_attention = $11,
				reviewer = $12, reviewed_at = $13, review_reason = $14,
				next_attempt_at = $15, claimed_at = $16, event_pending = $17,
				updated_at = now(), version = version + 1
			WHERE mapping_id = $1 AND version = $2
			RETURNING ` + mappingColumns + `;`

		row, err := scanMapping(tx.QueryRow(ctx, query,
			m.MappingID, expectedVersion,
			m.ProposedCategory, m.Confidence, m.Reasoning,
			m.AIAttempted, m.AIStatus, m.AdminApproved, m.Status,
			m.LowConfidence, m.NeedsAttention,
			m.Reviewer, m.ReviewedAt, m.ReviewReason,
			m.NextAttemptAt, m.ClaimedAt, m.EventPending,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("mapping %s: %w", next.MappingID, apperrors.ErrStaleWrite)
			}
			return r.translateWriteError(ctx, err, m.TransactionID, m.MappingID)
		}
		d := mapping.ToDomainMapping(row)
		updated = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// translateWriteError maps constraint violations to the error taxonomy.
func (r *PgxMappingRepository) translateWriteError(ctx context.Context, err error, transactionID, mappingID string) error {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return fmt.Errorf("failed to write mapping %s: %w", mappingID, err)
	}
	switch {
	case code == pgUniqueViolation && constraint == activeMappingIndex:
		dup := &apperrors.DuplicateMappingError{TransactionID: transactionID}
		if existing, findErr := r.FindActiveMappingByTransactionID(ctx, transactionID); findErr == nil {
			dup.ExistingMappingID = existing.MappingID
		}
		return dup
	case code == pgUniqueViolation:
		return fmt.Errorf("mapping %s: %w", mappingID, apperrors.ErrDuplicate)
	case code == pgForeignKeyViolation:
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	case code == pgCheckViolation:
		return fmt.Errorf("%w: mapping %s violates %s", apperrors.ErrInvalidTransition, mappingID, constraint)
	case code == pgStringTooLong || code == pgCharacterNotInRepertoire:
		return fmt.Errorf("%w: mapping %s: %v", apperrors.ErrValidation, mappingID, err)
	}
	return fmt.Errorf("failed to write mapping %s: %w", mappingID, err)
}
