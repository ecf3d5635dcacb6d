package pgsql

import (
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every PostgreSQL repository to one pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	mappingRepo := newPgxMappingRepository(dbPool)

	return portsrepo.RepositoryProvider{
		TransactionRepo: newPgxTransactionRepository(dbPool, mappingRepo),
		MappingRepo:     mappingRepo,
		RoundupRepo:     newPgxRoundupRepository(dbPool),
		CurrencyRepo:    newPgxCurrencyRepository(dbPool),
	}
}
