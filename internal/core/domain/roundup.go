package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundupLedgerEntry is an append-only record of spare change swept into savings.
type RoundupLedgerEntry struct {
	EntryID       string          `json:"entryID"`
	TransactionID string          `json:"transactionID"`
	MappingID     string          `json:"mappingID"`
	Owner         string          `json:"owner"`
	Amount        decimal.Decimal `json:"amount"` // non-negative round-up delta
	CurrencyCode  string          `json:"currencyCode"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RoundupTotal is the sum of an owner's ledger entries in one currency.
type RoundupTotal struct {
	Owner        string          `json:"owner"`
	CurrencyCode string          `json:"currencyCode"`
	Total        decimal.Decimal `json:"total"`
	EntryCount   int             `json:"entryCount"`
}
