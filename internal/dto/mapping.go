package dto

import (
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ListMappingsParams defines the query parameters for listing mappings by status.
type ListMappingsParams struct {
	Status    string `form:"status" binding:"required,mapping_status"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken string `form:"nextToken"`
}

// ListMappingsResponse is one page of mappings.
type ListMappingsResponse struct {
	Mappings  []MappingResponse `json:"mappings"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// RejectMappingRequest carries the reviewer's reason for a rejection.
type RejectMappingRequest struct {
	Reason string `json:"reason" binding:"required,max=1024"`
}

// MappingResponse defines the data returned for a mapping.
type MappingResponse struct {
	MappingID        string           `json:"mappingID"`
	TransactionID    string           `json:"transactionID"`
	ProposedCategory string           `json:"proposedCategory"`
	Confidence       *decimal.Decimal `json:"confidence"`
	Reasoning        *string          `json:"reasoning"`
	AIAttempted      int              `json:"aiAttempted"`
	AIStatus         string           `json:"aiStatus"`
	AdminApproved    *bool            `json:"adminApproved"`
	Status           string           `json:"status"`
	LowConfidence    bool             `json:"lowConfidence"`
	NeedsAttention   bool             `json:"needsAttention"`
	Reviewer         string           `json:"reviewer,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewedAt,omitempty"`
	ReviewReason     string           `json:"reviewReason,omitempty"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Version          int64            `json:"version"`
}

// ToMappingResponse converts a domain.Mapping to MappingResponse DTO.
func ToMappingResponse(m *domain.Mapping) MappingResponse {
	return MappingResponse{
		MappingID:        m.MappingID,
		TransactionID:    m.TransactionID,
		ProposedCategory: m.ProposedCategory,
		Confidence:       m.Confidence,
		Reasoning:        m.Reasoning,
		AIAttempted:      m.AIAttempted,
		AIStatus:         string(m.AIStatus),
		AdminApproved:    m.AdminApproved,
		Status:           string(m.Status),
		LowConfidence:    m.LowConfidence,
		NeedsAttention:   m.NeedsAttention,
		Reviewer:         m.Reviewer,
		ReviewedAt:       m.ReviewedAt,
		ReviewReason:     m.ReviewReason,
		UpdatedAt:        m.UpdatedAt,
		Version:          m.Version,
	}
}

// ToMappingResponses converts a slice of domain.Mapping to []MappingResponse.
func ToMappingResponses(ms []domain.Mapping) []MappingResponse {
	res := make([]MappingResponse, len(ms))
	for i := range ms {
		res[i] = ToMappingResponse(&ms[i])
	}
	return res
}
