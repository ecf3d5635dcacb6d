package domain

import "github.com/shopspring/decimal"

// InferenceRequest is what the inference gateway is asked to classify.
type InferenceRequest struct {
	Description  string
	Amount       decimal.Decimal
	CurrencyCode string
}

// NewInferenceRequest builds the gateway request for a transaction.
func NewInferenceRequest(t Transaction) InferenceRequest {
	return InferenceRequest{
		Description:  t.Description,
		Amount:       t.Amount,
		CurrencyCode: t.CurrencyCode,
	}
}

// InferenceResult is what the inference gateway returns for one transaction.
type InferenceResult struct {
	Category   string
	Confidence decimal.Decimal // in [0, 1]
	Reasoning  string
}
