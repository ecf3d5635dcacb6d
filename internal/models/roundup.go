package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundupLedgerEntry represents a row of the roundup_ledger table.
type RoundupLedgerEntry struct {
	EntryID       string          `db:"entry_id"`
	TransactionID string          `db:"transaction_id"`
	MappingID     string          `db:"mapping_id"`
	Owner         string          `db:"owner"`
	Amount        decimal.Decimal `db:"amount"`
	CurrencyCode  string          `db:"currency_code"`
	CreatedAt     time.Time       `db:"created_at"`
}
