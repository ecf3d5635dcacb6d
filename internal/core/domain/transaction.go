package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType describes who owns the account a transaction was drawn on.
type AccountType string

const (
	Individual AccountType = "individual"
	Family     AccountType = "family"
	Business   AccountType = "business"
)

// TransactionStatus reflects categorization progress of a transaction.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionMapped  TransactionStatus = "mapped"
)

// Transaction is a raw financial transaction produced by ingestion.
// It is immutable after creation except for Status.
type Transaction struct {
	TransactionID string            `json:"transactionID"`
	Owner         string            `json:"owner"`
	Description   string            `json:"description"` // raw merchant text
	Amount        decimal.Decimal   `json:"amount"`      // signed; debits are negative
	CurrencyCode  string            `json:"currencyCode"`
	OccurredAt    time.Time         `json:"occurredAt"`
	AccountType   AccountType       `json:"accountType"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Validate checks the fields ingestion must always supply.
func (t Transaction) Validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if strings.TrimSpace(t.Owner) == "" {
		return fmt.Errorf("owner is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if len(t.CurrencyCode) != 3 {
		return fmt.Errorf("currency code must be 3 letters, got %q", t.CurrencyCode)
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("occurred at is required")
	}
	switch t.AccountType {
	case Individual, Family, Business:
	default:
		return fmt.Errorf("unknown account type %q", t.AccountType)
	}
	switch t.Status {
	case TransactionPending, TransactionMapped:
	default:
		return fmt.Errorf("unknown transaction status %q", t.Status)
	}
	return nil
}
