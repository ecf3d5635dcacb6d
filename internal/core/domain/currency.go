package domain

// DefaultCurrencyPrecision is used when a currency is unknown to the store.
const DefaultCurrencyPrecision = 2

// Currency represents a supported currency in the domain.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // Primary Key (e.g., "USD")
	Symbol       string `json:"symbol"`       // e.g., "$"
	Name         string `json:"name"`         // e.g., "US Dollar"
	Precision    int    `json:"precision"`    // minor-unit exponent: 2 for USD, 0 for JPY
	AuditFields
}
