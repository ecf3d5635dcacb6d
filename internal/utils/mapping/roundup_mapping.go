package mapping

import (
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/models"
)

// ToModelRoundupEntry converts a domain ledger entry to its row representation.
func ToModelRoundupEntry(d domain.RoundupLedgerEntry) models.RoundupLedgerEntry {
	return models.RoundupLedgerEntry{
		EntryID:       d.EntryID,
		TransactionID: d.TransactionID,
		MappingID:     d.MappingID,
		Owner:         d.Owner,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		CreatedAt:     d.CreatedAt,
	}
}

// ToDomainRoundupEntry converts a ledger row to a domain entry.
func ToDomainRoundupEntry(m models.RoundupLedgerEntry) domain.RoundupLedgerEntry {
	return domain.RoundupLedgerEntry{
		EntryID:       m.EntryID,
		TransactionID: m.TransactionID,
		MappingID:     m.MappingID,
		Owner:         m.Owner,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		CreatedAt:     m.CreatedAt,
	}
}

// ToDomainRoundupEntrySlice converts ledger rows to domain entries.
func ToDomainRoundupEntrySlice(ms []models.RoundupLedgerEntry) []domain.RoundupLedgerEntry {
	ds := make([]domain.RoundupLedgerEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainRoundupEntry(m)
	}
	return ds
}
