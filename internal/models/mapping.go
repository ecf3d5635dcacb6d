package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Mapping represents a row of the mappings table. Nullable columns use
// sql.Null* so rows scan without sentinel values.
type Mapping struct {
	MappingID        string              `db:"mapping_id"`
	TransactionID    string              `db:"transaction_id"`
	ProposedCategory string              `db:"proposed_category"`
	Confidence       decimal.NullDecimal `db:"confidence"`
	Reasoning        sql.NullString      `db:"reasoning"`
	AIAttempted      int                 `db:"ai_attempted"`
	AIStatus         string              `db:"ai_status"`
	AdminApproved    sql.NullBool        `db:"admin_approved"`
	Status           string              `db:"status"`
	LowConfidence    bool                `db:"low_confidence"`
	NeedsAttention   bool                `db:"needs_attention"`
	Reviewer         sql.NullString      `db:"reviewer"`
	ReviewedAt       sql.NullTime        `db:"reviewed_at"`
	ReviewReason     sql.NullString      `db:"review_reason"`
	NextAttemptAt    time.Time           `db:"next_attempt_at"`
	ClaimedAt        sql.NullTime        `db:"claimed_at"`
	EventPending     bool                `db:"event_pending"`
	CreatedAt        time.Time           `db:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at"`
	Version          int64               `db:"version"`
}
