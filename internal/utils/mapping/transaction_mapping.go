package mapping

import (
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID: d.TransactionID,
		Owner:         d.Owner,
		Description:   d.Description,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		OccurredAt:    d.OccurredAt,
		AccountType:   string(d.AccountType),
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID: m.TransactionID,
		Owner:         m.Owner,
		Description:   m.Description,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		OccurredAt:    m.OccurredAt,
		AccountType:   domain.AccountType(m.AccountType),
		Status:        domain.TransactionStatus(m.Status),
		CreatedAt:     m.CreatedAt,
	}
}
