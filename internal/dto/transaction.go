package dto

import (
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitTransactionRequest is what ingestion hands over for categorization.
type SubmitTransactionRequest struct {
	TransactionID string          `json:"transactionID" binding:"omitempty,max=64"` // generated when empty
	Owner         string          `json:"owner" binding:"required,max=128"`
	Description   string          `json:"description" binding:"required,max=512"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode" binding:"required,uppercase,len=3"`
	OccurredAt    time.Time       `json:"occurredAt" binding:"required"`
	AccountType   string          `json:"accountType" binding:"required,oneof=individual family business"`
	CategoryHint  string          `json:"categoryHint" binding:"omitempty,max=128"`
}

// SubmitTransactionResponse returns the stored transaction and its pending mapping.
type SubmitTransactionResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Mapping     MappingResponse     `json:"mapping"`
}

// RemapTransactionRequest asks for a brand-new mapping after a rejection.
type RemapTransactionRequest struct {
	CategoryHint string `json:"categoryHint" binding:"omitempty,max=128"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string          `json:"transactionID"`
	Owner         string          `json:"owner"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	OccurredAt    time.Time       `json:"occurredAt"`
	AccountType   string          `json:"accountType"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		Owner:         t.Owner,
		Description:   t.Description,
		Amount:        t.Amount,
		CurrencyCode:  t.CurrencyCode,
		OccurredAt:    t.OccurredAt,
		AccountType:   string(t.AccountType),
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
	}
}
