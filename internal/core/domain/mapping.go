package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/shopspring/decimal"
)

// MappingStatus is the lifecycle state of a mapping.
type MappingStatus string

const (
	MappingPending       MappingStatus = "pending"
	MappingInProgress    MappingStatus = "in_progress"
	MappingMapped        MappingStatus = "mapped"
	MappingPendingReview MappingStatus = "pending-review"
	MappingApproved      MappingStatus = "approved"
	MappingRejected      MappingStatus = "rejected"
)

// AIStatus tracks the inference side of a mapping.
type AIStatus string

const (
	AIPending    AIStatus = "pending"
	AIInProgress AIStatus = "in_progress"
	AISuccess    AIStatus = "success"
	AIFailed     AIStatus = "failed"
)

// SystemReviewer is recorded as the approver of auto-approved mappings.
const SystemReviewer = "system"

// MaxCategoryLength is the longest proposed category, in characters, a mapping can store.
const MaxCategoryLength = 128

// ConfidenceScale is the number of decimal places a stored confidence keeps.
const ConfidenceScale = 4

// ParseMappingStatus converts free text into a MappingStatus, rejecting unknown values.
func ParseMappingStatus(s string) (MappingStatus, error) {
	st := MappingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown mapping status %q", apperrors.ErrInvalidTransition, s)
	}
	return st, nil
}

// Valid reports whether s is one of the known mapping statuses.
func (s MappingStatus) Valid() bool {
	switch s {
	case MappingPending, MappingInProgress, MappingMapped, MappingPendingReview, MappingApproved, MappingRejected:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition can happen.
func (s MappingStatus) Terminal() bool {
	return s == MappingApproved || s == MappingRejected
}

// Reviewable reports whether a human may approve or reject from this status.
func (s MappingStatus) Reviewable() bool {
	return s == MappingMapped || s == MappingPendingReview
}

// Valid reports whether s is one of the known AI statuses.
func (s AIStatus) Valid() bool {
	switch s {
	case AIPending, AIInProgress, AISuccess, AIFailed:
		return true
	}
	return false
}

// allowedTransitions is the mapping state machine. Same-state writes are allowed
// separately (field updates that keep the status).
var allowedTransitions = map[MappingStatus][]MappingStatus{
	MappingPending:       {MappingInProgress},
	MappingInProgress:    {MappingApproved, MappingMapped, MappingPendingReview, MappingPending},
	MappingMapped:        {MappingApproved, MappingRejected, MappingPending},
	MappingPendingReview: {MappingApproved, MappingRejected, MappingPending},
	MappingRejected:      {MappingPending},
	MappingApproved:      {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to MappingStatus) bool {
	if from == to {
		return from != MappingApproved
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Mapping links a transaction to a proposed category and carries its
// classification lifecycle.
type Mapping struct {
	MappingID        string           `json:"mappingID"`
	TransactionID    string           `json:"transactionID"`
	ProposedCategory string           `json:"proposedCategory"`
	Confidence       *decimal.Decimal `json:"confidence,omitempty"`
	Reasoning        *string          `json:"reasoning,omitempty"`
	AIAttempted      int              `json:"aiAttempted"`
	AIStatus         AIStatus         `json:"aiStatus"`
	AdminApproved    *bool            `json:"adminApproved,omitempty"`
	Status           MappingStatus    `json:"status"`
	LowConfidence    bool             `json:"lowConfidence"`
	NeedsAttention   bool             `json:"needsAttention"`
	Reviewer         string           `json:"reviewer,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewedAt,omitempty"`
	ReviewReason     string           `json:"reviewReason,omitempty"`
	NextAttemptAt    time.Time        `json:"nextAttemptAt"`
	ClaimedAt        *time.Time       `json:"claimedAt,omitempty"`
	EventPending     bool             `json:"eventPending"` // approved, listeners not yet acknowledged
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Version          int64            `json:"version"`
}

// NewMapping returns a fresh pending mapping for a transaction.
func NewMapping(mappingID, transactionID, proposedCategory string, now time.Time) Mapping {
	return Mapping{
		MappingID:        mappingID,
		TransactionID:    transactionID,
		ProposedCategory: proposedCategory,
		AIStatus:         AIPending,
		Status:           MappingPending,
		NextAttemptAt:    now,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
}

// Active reports whether the mapping blocks creation of another mapping for its transaction.
func (m Mapping) Active() bool {
	return m.Status != MappingRejected
}

// Validate checks enum values and the record-level invariants.
func (m Mapping) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown mapping status %q", apperrors.ErrInvalidTransition, m.Status)
	}
	if !m.AIStatus.Valid() {
		return fmt.Errorf("%w: unknown ai status %q", apperrors.ErrInvalidTransition, m.AIStatus)
	}
	approved := m.AdminApproved != nil && *m.AdminApproved
	if approved != (m.Status == MappingApproved) {
		return fmt.Errorf("%w: admin_approved must be true exactly when status is approved", apperrors.ErrInvalidTransition)
	}
	if m.AIStatus == AISuccess && (m.Confidence == nil || m.Reasoning == nil) {
		return fmt.Errorf("%w: successful inference requires confidence and reasoning", apperrors.ErrInvalidTransition)
	}
	if m.AIAttempted < 0 {
		return fmt.Errorf("%w: negative ai_attempted", apperrors.ErrInvalidTransition)
	}
	if m.EventPending && m.Status != MappingApproved {
		return fmt.Errorf("%w: only approved mappings can have a pending approval event", apperrors.ErrInvalidTransition)
	}
	if err := ValidateCategory(m.ProposedCategory); err != nil {
		return err
	}
	if m.Reasoning != nil && !utf8.ValidString(*m.Reasoning) {
		return fmt.Errorf("%w: reasoning is not valid UTF-8", apperrors.ErrValidation)
	}
	return nil
}

// ValidateCategory checks that a category label fits the mapping store.
func ValidateCategory(category string) error {
	if !utf8.ValidString(category) {
		return fmt.Errorf("%w: category is not valid UTF-8", apperrors.ErrValidation)
	}
	if n := utf8.RuneCountInString(category); n > MaxCategoryLength {
		return fmt.Errorf("%w: category has %d characters, at most %d allowed", apperrors.ErrValidation, n, MaxCategoryLength)
	}
	return nil
}

// ValidateTransition checks next against the state machine relative to prev.
func ValidateTransition(prev, next Mapping) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if prev.Status == MappingApproved && next.Status == MappingApproved {
		if !acknowledgesEvent(prev, next) {
			return fmt.Errorf("%w: approved mappings are immutable", apperrors.ErrInvalidTransition)
		}
		return nil
	}
	if !CanTransition(prev.Status, next.Status) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, prev.Status, next.Status)
	}
	if next.AIAttempted < prev.AIAttempted && !next.IsReset() {
		return fmt.Errorf("%w: ai_attempted may only decrease through reset", apperrors.ErrInvalidTransition)
	}
	return nil
}

// acknowledgesEvent reports whether next differs from the approved prev only by
// clearing the pending approval event.
func acknowledgesEvent(prev, next Mapping) bool {
	if !prev.EventPending || next.EventPending {
		return false
	}
	sameTime := func(a, b *time.Time) bool {
		return (a == nil && b == nil) || (a != nil && b != nil && a.Equal(*b))
	}
	sameConfidence := (prev.Confidence == nil && next.Confidence == nil) ||
		(prev.Confidence != nil && next.Confidence != nil && prev.Confidence.Equal(*next.Confidence))
	return prev.ProposedCategory == next.ProposedCategory &&
		prev.Reviewer == next.Reviewer &&
		prev.AIAttempted == next.AIAttempted &&
		prev.AIStatus == next.AIStatus &&
		sameConfidence &&
		sameTime(prev.ReviewedAt, next.ReviewedAt)
}

// IsReset reports whether the mapping is in the freshly re-armed shape produced by Reset.
func (m Mapping) IsReset() bool {
	return m.Status == MappingPending &&
		m.AIStatus == AIPending &&
		m.AIAttempted == 0 &&
		m.Confidence == nil &&
		m.Reasoning == nil
}

// Claim marks the mapping as taken by a worker.
func (m *Mapping) Claim(now time.Time) error {
	if m.Status != MappingPending {
		return fmt.Errorf("%w: cannot claim mapping in status %s", apperrors.ErrInvalidTransition, m.Status)
	}
	m.Status = MappingInProgress
	m.AIStatus = AIInProgress
	m.ClaimedAt = &now
	return nil
}

// RecordSuccess stores a completed inference. The routing decision is applied separately.
func (m *Mapping) RecordSuccess(res InferenceResult) {
	conf := res.Confidence
	reasoning := res.Reasoning
	m.ProposedCategory = res.Category
	m.Confidence = &conf
	m.Reasoning = &reasoning
	m.AIStatus = AISuccess
	m.AIAttempted++
	m.ClaimedAt = nil
}

// RecordFailure stores a failed inference attempt. It returns true when attempts are exhausted,
// in which case the mapping is routed to mandatory review; otherwise it goes back to pending
// and becomes claimable at nextAttempt.
func (m *Mapping) RecordFailure(summary string, maxAttempts int, nextAttempt time.Time) bool {
	m.AIStatus = AIFailed
	m.AIAttempted++
	m.Confidence = nil
	m.Reasoning = &summary
	m.ClaimedAt = nil
	if m.AIAttempted >= maxAttempts {
		m.Status = MappingPendingReview
		m.NeedsAttention = true
		return true
	}
	m.Status = MappingPending
	m.NextAttemptAt = nextAttempt
	return false
}

// ApplyEvaluation routes a successfully inferred mapping.
func (m *Mapping) ApplyEvaluation(ev Evaluation, now time.Time) {
	switch ev.Decision {
	case DecisionAutoApprove:
		m.approve(SystemReviewer, now)
	default:
		m.LowConfidence = ev.LowConfidence
		if ev.LowConfidence {
			m.Status = MappingPendingReview
		} else {
			m.Status = MappingMapped
		}
	}
}

// Approve records a human approval.
func (m *Mapping) Approve(reviewer string, now time.Time) error {
	if !m.Status.Reviewable() {
		return fmt.Errorf("%w: cannot approve mapping in status %s", apperrors.ErrInvalidTransition, m.Status)
	}
	m.approve(reviewer, now)
	return nil
}

func (m *Mapping) approve(reviewer string, now time.Time) {
	approved := true
	m.AdminApproved = &approved
	m.Status = MappingApproved
	m.Reviewer = reviewer
	m.ReviewedAt = &now
	m.ClaimedAt = nil
	m.EventPending = true
}

// AckApprovalEvent records that every approval listener has handled this mapping's event.
func (m *Mapping) AckApprovalEvent() error {
	if m.Status != MappingApproved || !m.EventPending {
		return fmt.Errorf("%w: mapping %s has no pending approval event", apperrors.ErrInvalidTransition, m.MappingID)
	}
	m.EventPending = false
	return nil
}

// Reject records a human rejection.
func (m *Mapping) Reject(reviewer, reason string, now time.Time) error {
	if !m.Status.Reviewable() {
		return fmt.Errorf("%w: cannot reject mapping in status %s", apperrors.ErrInvalidTransition, m.Status)
	}
	approved := false
	m.AdminApproved = &approved
	m.Status = MappingRejected
	m.Reviewer = reviewer
	m.ReviewedAt = &now
	m.ReviewReason = reason
	return nil
}

// Reset re-arms the mapping for another inference pass. Approved mappings are immutable.
func (m *Mapping) Reset(now time.Time) error {
	if m.Status == MappingApproved {
		return fmt.Errorf("%w: approved mappings cannot be reset", apperrors.ErrInvalidTransition)
	}
	m.AIAttempted = 0
	m.AIStatus = AIPending
	m.Confidence = nil
	m.Reasoning = nil
	m.Status = MappingPending
	m.AdminApproved = nil
	m.LowConfidence = false
	m.NeedsAttention = false
	m.Reviewer = ""
	m.ReviewedAt = nil
	m.ReviewReason = ""
	m.ClaimedAt = nil
	m.NextAttemptAt = now
	return nil
}

// Release returns a stuck in-progress mapping to pending without touching attempts.
func (m *Mapping) Release(now time.Time) error {
	if m.Status != MappingInProgress {
		return fmt.Errorf("%w: only in-progress mappings can be released, got %s", apperrors.ErrInvalidTransition, m.Status)
	}
	m.Status = MappingPending
	if m.AIStatus == AIInProgress {
		m.AIStatus = AIPending
	}
	m.ClaimedAt = nil
	m.NextAttemptAt = now
	return nil
}

// Decision is the routing outcome of the confidence evaluator.
type Decision string

const (
	DecisionAutoApprove   Decision = "auto-approve"
	DecisionPendingReview Decision = "pending-review"
)

// Evaluation is a Decision plus the low-confidence flag used for review prioritization.
type Evaluation struct {
	Decision      Decision
	LowConfidence bool
}

// ApprovalEvent is emitted once per mapping that reaches approved.
type ApprovalEvent struct {
	MappingID     string
	TransactionID string
	Category      string
	Reviewer      string
	ApprovedAt    time.Time
}

// NewApprovalEvent builds the event for an approved mapping.
func NewApprovalEvent(m Mapping) ApprovalEvent {
	ev := ApprovalEvent{
		MappingID:     m.MappingID,
		TransactionID: m.TransactionID,
		Category:      m.ProposedCategory,
		Reviewer:      m.Reviewer,
	}
	if m.ReviewedAt != nil {
		ev.ApprovedAt = *m.ReviewedAt
	}
	return ev
}
