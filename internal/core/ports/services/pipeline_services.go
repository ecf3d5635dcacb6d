package services

import (
	"context"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	"github.com/SscSPs/txn_categorizer/internal/dto"
	"github.com/shopspring/decimal"
)

// ConfidenceEvaluatorSvc routes a completed inference by its confidence.
type ConfidenceEvaluatorSvc interface {
	Evaluate(confidence decimal.Decimal) domain.Evaluation
}

// ClassificationWorkerSvc claims pending mappings and runs them through inference.
type ClassificationWorkerSvc interface {
	// RunOnce claims up to one batch of claimable mappings and processes the ones it won.
	// It returns the number of mappings processed.
	RunOnce(ctx context.Context) (int, error)

	// ClaimMapping moves a pending mapping to in_progress. Losing the race yields apperrors.ErrStaleWrite.
	ClaimMapping(ctx context.Context, mapping domain.Mapping) (*domain.Mapping, error)

	// ProcessMapping calls the gateway for a claimed mapping and records the outcome.
	ProcessMapping(ctx context.Context, mapping domain.Mapping) (*domain.Mapping, error)

	// ResetMapping re-arms a mapping for another inference pass.
	ResetMapping(ctx context.Context, mappingID string, actor string) (*domain.Mapping, error)

	// SweepStaleClaims returns mappings stuck in_progress past the liveness timeout to pending.
	SweepStaleClaims(ctx context.Context) (int, error)

	// RedeliverApprovalEvents publishes approval events that were never acknowledged,
	// e.g. after a listener failure or a crash between approval and publish.
	RedeliverApprovalEvents(ctx context.Context) (int, error)
}

// ApprovalReaderSvc defines reviewer-facing reads of mappings.
type ApprovalReaderSvc interface {
	GetMapping(ctx context.Context, mappingID string) (*domain.Mapping, error)
	ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error)
}

// ApprovalWriterSvc defines reviewer-facing transitions.
type ApprovalWriterSvc interface {
	ApproveMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error)
	RejectMapping(ctx context.Context, mappingID, reviewer, reason string) (*domain.Mapping, error)
	ResetMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error)
}

// ApprovalWorkflowSvcFacade combines the approval workflow interfaces
type ApprovalWorkflowSvcFacade interface {
	ApprovalReaderSvc
	ApprovalWriterSvc
}

// TransactionSvcFacade is the ingestion-facing side of the pipeline.
type TransactionSvcFacade interface {
	// SubmitTransaction stores a transaction together with its pending mapping.
	SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest) (*domain.Transaction, *domain.Mapping, error)

	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// RequestRemapping opens a brand-new mapping for a transaction whose mapping was rejected.
	RequestRemapping(ctx context.Context, transactionID string, req dto.RemapTransactionRequest) (*domain.Mapping, error)

	ApprovalListener
}

// RoundupSvcFacade reads and feeds the round-up ledger.
type RoundupSvcFacade interface {
	GetRoundupTotal(ctx context.Context, owner string) ([]domain.RoundupTotal, error)
	ListRoundupEntries(ctx context.Context, owner string, limit int, nextToken *string) ([]domain.RoundupLedgerEntry, *string, error)

	ApprovalListener
}
