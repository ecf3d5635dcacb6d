package mapping

import (
	"database/sql"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelMapping converts a domain Mapping to its row representation.
func ToModelMapping(d domain.Mapping) models.Mapping {
	m := models.Mapping{
		MappingID:        d.MappingID,
		TransactionID:    d.TransactionID,
		ProposedCategory: d.ProposedCategory,
		AIAttempted:      d.AIAttempted,
		AIStatus:         string(d.AIStatus),
		Status:           string(d.Status),
		LowConfidence:    d.LowConfidence,
		NeedsAttention:   d.NeedsAttention,
		EventPending:     d.EventPending,
		Reviewer:         nullString(d.Reviewer),
		ReviewReason:     nullString(d.ReviewReason),
		ReviewedAt:       nullTime(d.ReviewedAt),
		ClaimedAt:        nullTime(d.ClaimedAt),
		NextAttemptAt:    d.NextAttemptAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}
	if d.Confidence != nil {
		m.Confidence = decimal.NewNullDecimal(*d.Confidence)
	}
	if d.Reasoning != nil {
		m.Reasoning = sql.NullString{String: *d.Reasoning, Valid: true}
	}
	if d.AdminApproved != nil {
		m.AdminApproved = sql.NullBool{Bool: *d.AdminApproved, Valid: true}
	}
	return m
}

// ToDomainMapping converts a mapping row to a domain Mapping.
func ToDomainMapping(m models.Mapping) domain.Mapping {
	d := domain.Mapping{
		MappingID:        m.MappingID,
		TransactionID:    m.TransactionID,
		ProposedCategory: m.ProposedCategory,
		AIAttempted:      m.AIAttempted,
		AIStatus:         domain.AIStatus(m.AIStatus),
		Status:           domain.MappingStatus(m.Status),
		LowConfidence:    m.LowConfidence,
		NeedsAttention:   m.NeedsAttention,
		EventPending:     m.EventPending,
		Reviewer:         m.Reviewer.String,
		ReviewReason:     m.ReviewReason.String,
		NextAttemptAt:    m.NextAttemptAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		Version:          m.Version,
	}
	if m.Confidence.Valid {
		c := m.Confidence.Decimal
		d.Confidence = &c
	}
	if m.Reasoning.Valid {
		r := m.Reasoning.String
		d.Reasoning = &r
	}
	if m.AdminApproved.Valid {
		a := m.AdminApproved.Bool
		d.AdminApproved = &a
	}
	if m.ReviewedAt.Valid {
		t := m.ReviewedAt.Time
		d.ReviewedAt = &t
	}
	if m.ClaimedAt.Valid {
		t := m.ClaimedAt.Time
		d.ClaimedAt = &t
	}
	return d
}

// ToDomainMappingSlice converts mapping rows to domain Mappings.
func ToDomainMappingSlice(ms []models.Mapping) []domain.Mapping {
	ds := make([]domain.Mapping, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainMapping(m)
	}
	return ds
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
