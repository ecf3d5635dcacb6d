package services

import (
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/platform/config"
)

// WorkerPolicyFromConfig extracts the classification worker policy.
func WorkerPolicyFromConfig(cfg *config.Config) WorkerPolicy {
	return WorkerPolicy{
		MaxAttempts:     cfg.MaxAIAttempts,
		BaseDelay:       cfg.RetryBaseDelay,
		MaxDelay:        cfg.RetryMaxDelay,
		GatewayTimeout:  cfg.GatewayTimeout,
		LivenessTimeout: cfg.ClaimLivenessTimeout,
		BatchSize:       cfg.WorkerBatchSize,
	}
}

// NewServiceContainer creates a new service container with properly initialized dependencies.
// It fails with apperrors.ErrConfiguration on invalid thresholds or worker policy.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, gateway portssvc.InferenceGateway, opts ...Option) (*portssvc.ServiceContainer, error) {
	evaluator, err := NewConfidenceEvaluator(cfg.HighConfidenceThreshold, cfg.LowConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	container := &portssvc.ServiceContainer{
		Evaluator: evaluator,
		Events:    NewApprovalEventBus(),
	}

	container.Currency = NewCurrencyService(repos.CurrencyRepo, opts...)
	container.Transaction = NewTransactionService(repos.TransactionRepo, repos.MappingRepo, opts...)
	container.Roundup = NewRoundupLedger(repos.RoundupRepo, repos.TransactionRepo, container.Currency, opts...)

	// Transaction status first, then the ledger.
	container.Events.Subscribe(container.Transaction)
	container.Events.Subscribe(container.Roundup)

	container.Approval = NewApprovalWorkflow(repos.MappingRepo, container.Events, opts...)

	container.Worker, err = NewClassificationWorker(
		repos.MappingRepo,
		repos.TransactionRepo,
		gateway,
		evaluator,
		container.Events,
		WorkerPolicyFromConfig(cfg),
		opts...,
	)
	if err != nil {
		return nil, err
	}

	return container, nil
}
