package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a row of the transactions table.
type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	Owner         string          `db:"owner"`
	Description   string          `db:"description"`
	Amount        decimal.Decimal `db:"amount"`
	CurrencyCode  string          `db:"currency_code"`
	OccurredAt    time.Time       `db:"occurred_at"`
	AccountType   string          `db:"account_type"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
}
