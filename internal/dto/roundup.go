package dto

import (
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RoundupQueryParams selects the owner whose ledger is read.
type RoundupQueryParams struct {
	Owner     string `form:"owner" binding:"required"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken string `form:"nextToken"`
}

// RoundupTotalResponse is the owner's total per currency.
type RoundupTotalResponse struct {
	Owner  string                 `json:"owner"`
	Totals []RoundupCurrencyTotal `json:"totals"`
}

// RoundupCurrencyTotal is one currency line of a total.
type RoundupCurrencyTotal struct {
	CurrencyCode string          `json:"currencyCode"`
	Total        decimal.Decimal `json:"total"`
	EntryCount   int             `json:"entryCount"`
}

// RoundupEntryResponse defines the data returned for a ledger entry.
type RoundupEntryResponse struct {
	EntryID       string          `json:"entryID"`
	TransactionID string          `json:"transactionID"`
	MappingID     string          `json:"mappingID"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ListRoundupEntriesResponse is one page of ledger entries.
type ListRoundupEntriesResponse struct {
	Entries   []RoundupEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToRoundupTotalResponse converts domain totals for one owner.
func ToRoundupTotalResponse(owner string, totals []domain.RoundupTotal) RoundupTotalResponse {
	res := RoundupTotalResponse{Owner: owner, Totals: make([]RoundupCurrencyTotal, len(totals))}
	for i, t := range totals {
		res.Totals[i] = RoundupCurrencyTotal{CurrencyCode: t.CurrencyCode, Total: t.Total, EntryCount: t.EntryCount}
	}
	return res
}

// ToRoundupEntryResponses converts ledger entries.
func ToRoundupEntryResponses(entries []domain.RoundupLedgerEntry) []RoundupEntryResponse {
	res := make([]RoundupEntryResponse, len(entries))
	for i, e := range entries {
		res[i] = RoundupEntryResponse{
			EntryID:       e.EntryID,
			TransactionID: e.TransactionID,
			MappingID:     e.MappingID,
			Amount:        e.Amount,
			CurrencyCode:  e.CurrencyCode,
			CreatedAt:     e.CreatedAt,
		}
	}
	return res
}
