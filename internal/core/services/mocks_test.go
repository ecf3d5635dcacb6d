package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
)

// --- Mock MappingRepository ---
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) FindMappingByID(ctx context.Context, mappingID string) (*domain.Mapping, error) {
	args := m.Called(ctx, mappingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveMappingByTransactionID(ctx context.Context, transactionID string) (*domain.Mapping, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error) {
	args := m.Called(ctx, status, limit, nextToken)
	var token *string
	if t := args.Get(1); t != nil {
		token = t.(*string)
	}
	if args.Get(0) == nil {
		return nil, token, args.Error(2)
	}
	return args.Get(0).([]domain.Mapping), token, args.Error(2)
}

func (m *MockMappingRepository) ListClaimable(ctx context.Context, now time.Time, limit int) ([]domain.Mapping, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) ListStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]domain.Mapping, error) {
	args := m.Called(ctx, claimedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) ListUndeliveredApprovals(ctx context.Context, approvedBefore time.Time, limit int) ([]domain.Mapping, error) {
	args := m.Called(ctx, approvedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) CreateMapping(ctx context.Context, mapping domain.Mapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) UpdateMapping(ctx context.Context, mapping domain.Mapping, expectedVersion int64) (*domain.Mapping, error) {
	args := m.Called(ctx, mapping, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

var _ portsrepo.MappingRepositoryFacade = (*MockMappingRepository)(nil)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SaveTransactionWithMapping(ctx context.Context, txn domain.Transaction, mapping domain.Mapping) error {
	args := m.Called(ctx, txn, mapping)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	args := m.Called(ctx, transactionID, status)
	return args.Error(0)
}

var _ portsrepo.TransactionRepositoryFacade = (*MockTransactionRepository)(nil)

// --- Mock CurrencyRepository ---
type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) SaveCurrency(ctx context.Context, currency domain.Currency) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

func (m *MockCurrencyRepository) FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	args := m.Called(ctx, currencyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Currency), args.Error(1)
}

var _ portsrepo.CurrencyRepositoryFacade = (*MockCurrencyRepository)(nil)

// --- Mock InferenceGateway ---
type MockInferenceGateway struct {
	mock.Mock
}

func (m *MockInferenceGateway) Classify(ctx context.Context, req domain.InferenceRequest) (*domain.InferenceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InferenceResult), args.Error(1)
}

var _ portssvc.InferenceGateway = (*MockInferenceGateway)(nil)

// --- Mock ApprovalPublisher ---
type MockApprovalPublisher struct {
	mock.Mock
}

func (m *MockApprovalPublisher) Subscribe(listener portssvc.ApprovalListener) {
	m.Called(listener)
}

func (m *MockApprovalPublisher) Publish(ctx context.Context, event domain.ApprovalEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ portssvc.ApprovalPublisher = (*MockApprovalPublisher)(nil)

// --- Mock ApprovalListener ---
type MockApprovalListener struct {
	mock.Mock
}

func (m *MockApprovalListener) OnMappingApproved(ctx context.Context, event domain.ApprovalEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ portssvc.ApprovalListener = (*MockApprovalListener)(nil)
