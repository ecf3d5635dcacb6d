package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingRowNullability(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fresh := domain.NewMapping("map_1", "txn_1", "", now)

	row := ToModelMapping(fresh)
	assert.False(t, row.Confidence.Valid)
	assert.False(t, row.Reasoning.Valid)
	assert.False(t, row.AdminApproved.Valid)
	assert.False(t, row.Reviewer.Valid)
	assert.False(t, row.ClaimedAt.Valid)

	back := ToDomainMapping(row)
	assert.Nil(t, back.Confidence)
	assert.Nil(t, back.Reasoning)
	assert.Nil(t, back.AdminApproved)
	assert.Nil(t, back.ReviewedAt)
	assert.Equal(t, domain.MappingPending, back.Status)
}

func TestMappingRowCarriesReviewedState(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := domain.NewMapping("map_1", "txn_1", "", now)
	require.NoError(t, m.Claim(now))
	m.RecordSuccess(domain.InferenceResult{Category: "Groceries", Confidence: decimal.RequireFromString("0.97"), Reasoning: "supermarket"})
	m.ApplyEvaluation(domain.Evaluation{Decision: domain.DecisionAutoApprove}, now)

	row := ToModelMapping(m)
	require.True(t, row.AdminApproved.Valid)
	assert.True(t, row.AdminApproved.Bool)
	assert.Equal(t, domain.SystemReviewer, row.Reviewer.String)
	assert.True(t, decimal.RequireFromString("0.97").Equal(row.Confidence.Decimal))
	assert.True(t, row.EventPending)

	back := ToDomainMapping(row)
	require.NoError(t, back.Validate())
	assert.Equal(t, domain.MappingApproved, back.Status)
	assert.True(t, back.EventPending)
	require.NotNil(t, back.ReviewedAt)
	assert.True(t, now.Equal(*back.ReviewedAt))
}
