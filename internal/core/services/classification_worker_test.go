package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/core/services"
)

var workerNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() services.WorkerPolicy {
	return services.WorkerPolicy{
		MaxAttempts:     3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        5 * time.Minute,
		GatewayTimeout:  50 * time.Millisecond,
		LivenessTimeout: time.Minute,
		BatchSize:       10,
	}
}

func TestWorkerPolicy_Backoff(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, 2*time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Minute, p.Backoff(10))
	assert.Equal(t, 5*time.Minute, p.Backoff(1000))
}

func TestWorkerPolicy_Validate(t *testing.T) {
	assert.NoError(t, testPolicy().Validate())

	bad := testPolicy()
	bad.LivenessTimeout = bad.GatewayTimeout
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfiguration)

	bad = testPolicy()
	bad.MaxAttempts = 0
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfiguration)

	bad = testPolicy()
	bad.MaxDelay = time.Second
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfiguration)
}

// --- Test Suite ---
type ClassificationWorkerTestSuite struct {
	suite.Suite
	mappingRepo *MockMappingRepository
	txnRepo     *MockTransactionRepository
	gateway     *MockInferenceGateway
	events      *MockApprovalPublisher
	worker      portssvc.ClassificationWorkerSvc
	txn         domain.Transaction
}

func (suite *ClassificationWorkerTestSuite) SetupTest() {
	suite.mappingRepo = new(MockMappingRepository)
	suite.txnRepo = new(MockTransactionRepository)
	suite.gateway = new(MockInferenceGateway)
	suite.events = new(MockApprovalPublisher)

	evaluator, err := services.NewConfidenceEvaluator(d("0.90"), d("0.50"))
	suite.Require().NoError(err)

	suite.worker, err = services.NewClassificationWorker(
		suite.mappingRepo, suite.txnRepo, suite.gateway, evaluator, suite.events, testPolicy(),
		services.WithClock(func() time.Time { return workerNow }),
	)
	suite.Require().NoError(err)

	suite.txn = domain.Transaction{
		TransactionID: "t1",
		Owner:         "alice",
		Description:   "TESCO STORES",
		Amount:        d("-4.37"),
		CurrencyCode:  "GBP",
		OccurredAt:    workerNow.Add(-24 * time.Hour),
		AccountType:   domain.Individual,
		Status:        domain.TransactionPending,
	}
}

func (suite *ClassificationWorkerTestSuite) claimedMapping(id string, attempts int) domain.Mapping {
	m := domain.NewMapping(id, suite.txn.TransactionID, "", workerNow.Add(-time.Hour))
	m.AIAttempted = attempts
	suite.Require().NoError(m.Claim(workerNow.Add(-time.Second)))
	m.Version = 2
	return m
}

// expectUpdate registers a CAS write matching match and echoes it back with a bumped version.
func (suite *ClassificationWorkerTestSuite) expectUpdate(expectedVersion int64, match func(domain.Mapping) bool) *domain.Mapping {
	stored := &domain.Mapping{}
	suite.mappingRepo.On("UpdateMapping", mock.Anything, mock.MatchedBy(match), expectedVersion).
		Run(func(args mock.Arguments) {
			*stored = args.Get(1).(domain.Mapping)
			stored.Version = expectedVersion + 1
		}).
		Return(stored, nil).Once()
	return stored
}

func (suite *ClassificationWorkerTestSuite) expectInference(result *domain.InferenceResult, err error) {
	suite.txnRepo.On("FindTransactionByID", mock.Anything, suite.txn.TransactionID).Return(&suite.txn, nil)
	suite.gateway.On("Classify", mock.Anything, domain.NewInferenceRequest(suite.txn)).Return(result, err).Once()
}

// --- Test Cases ---

func (suite *ClassificationWorkerTestSuite) TestProcess_HighConfidenceAutoApproves() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Groceries", Confidence: d("0.95"), Reasoning: "Supermarket"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingApproved &&
			next.AdminApproved != nil && *next.AdminApproved &&
			next.Reviewer == domain.SystemReviewer &&
			next.AIStatus == domain.AISuccess &&
			next.AIAttempted == 1 &&
			next.EventPending
	})
	suite.events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.ApprovalEvent) bool {
		return e.MappingID == "m1" && e.TransactionID == "t1" && e.Category == "Groceries" && e.Reviewer == domain.SystemReviewer
	})).Return(nil).Once()
	suite.expectUpdate(3, func(next domain.Mapping) bool {
		return next.Status == domain.MappingApproved && !next.EventPending
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Equal(domain.MappingApproved, updated.Status)
	suite.False(updated.EventPending)
	suite.Equal(int64(4), updated.Version)
	suite.True(d("0.95").Equal(*updated.Confidence))
	suite.mappingRepo.AssertExpectations(suite.T())
	suite.events.AssertExpectations(suite.T())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_MidConfidenceAwaitsReview() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Dining", Confidence: d("0.70"), Reasoning: "Restaurant"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingMapped && !next.LowConfidence && next.AdminApproved == nil
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Equal(domain.MappingMapped, updated.Status)
	suite.events.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_LowConfidenceFlagged() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Other", Confidence: d("0.10"), Reasoning: "Unclear"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingPendingReview && next.LowConfidence && !next.NeedsAttention
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.True(updated.LowConfidence)
	suite.events.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_FailureSchedulesRetry() {
	m := suite.claimedMapping("m1", 1)
	suite.expectInference(nil, assert.AnError)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingPending &&
			next.AIStatus == domain.AIFailed &&
			next.AIAttempted == 2 &&
			next.Confidence == nil &&
			next.ClaimedAt == nil &&
			next.NextAttemptAt.Equal(workerNow.Add(4*time.Second))
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Require().NotNil(updated.Reasoning)
	suite.Contains(*updated.Reasoning, apperrors.ErrGateway.Error())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_ExhaustionNeedsAttention() {
	m := suite.claimedMapping("m1", 2)
	suite.expectInference(nil, apperrors.ErrGateway)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingPendingReview &&
			next.AIStatus == domain.AIFailed &&
			next.AIAttempted == 3 &&
			next.NeedsAttention
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.True(updated.NeedsAttention)
	suite.events.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_GatewayTimeout() {
	m := suite.claimedMapping("m1", 0)
	suite.txnRepo.On("FindTransactionByID", mock.Anything, "t1").Return(&suite.txn, nil)
	suite.gateway.On("Classify", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingPending && next.AIStatus == domain.AIFailed && next.AIAttempted == 1
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Contains(*updated.Reasoning, apperrors.ErrGatewayTimeout.Error())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_InvalidConfidenceIsAFailure() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Bills", Confidence: d("1.5"), Reasoning: "?"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.AIStatus == domain.AIFailed && next.Status == domain.MappingPending
	})

	_, err := suite.worker.ProcessMapping(context.Background(), m)
	suite.Require().NoError(err)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_OversizedCategoryIsAFailure() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: strings.Repeat("Groceries ", 20), Confidence: d("0.70"), Reasoning: "Supermarket"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.AIStatus == domain.AIFailed &&
			next.Status == domain.MappingPending &&
			next.AIAttempted == 1 &&
			next.ProposedCategory == ""
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Contains(*updated.Reasoning, apperrors.ErrGateway.Error())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_ConfidenceRoundedBeforeRouting() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Groceries", Confidence: d("0.89996"), Reasoning: "Supermarket"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingApproved && next.Confidence.Equal(d("0.9"))
	})
	suite.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	suite.expectUpdate(3, func(next domain.Mapping) bool { return !next.EventPending })

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Equal(domain.MappingApproved, updated.Status, "stored confidence 0.9000 must route like 0.9000")
}

func (suite *ClassificationWorkerTestSuite) TestProcess_StoreRejectionCountsAsAttempt() {
	m := suite.claimedMapping("m1", 2)
	suite.expectInference(&domain.InferenceResult{Category: "Dining", Confidence: d("0.70"), Reasoning: "Restaurant"}, nil)
	suite.mappingRepo.On("UpdateMapping", mock.Anything, mock.MatchedBy(func(next domain.Mapping) bool {
		return next.AIStatus == domain.AISuccess
	}), int64(2)).Return(nil, fmt.Errorf("%w: value too long", apperrors.ErrValidation)).Once()
	suite.mappingRepo.On("FindMappingByID", mock.Anything, "m1").Return(&m, nil).Once()
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.Status == domain.MappingPendingReview &&
			next.AIStatus == domain.AIFailed &&
			next.AIAttempted == 3 &&
			next.NeedsAttention
	})

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.Require().NoError(err)
	suite.Equal(domain.MappingPendingReview, updated.Status)
	suite.Contains(*updated.Reasoning, "value too long")
	suite.mappingRepo.AssertExpectations(suite.T())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_StaleOutcomeIsNotRetried() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Dining", Confidence: d("0.70"), Reasoning: "Restaurant"}, nil)
	suite.mappingRepo.On("UpdateMapping", mock.Anything, mock.Anything, int64(2)).Return(nil, apperrors.ErrStaleWrite).Once()

	_, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.ErrorIs(err, apperrors.ErrStaleWrite)
	suite.mappingRepo.AssertNotCalled(suite.T(), "FindMappingByID", mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_ListenerFailureLeavesEventPending() {
	m := suite.claimedMapping("m1", 0)
	suite.expectInference(&domain.InferenceResult{Category: "Groceries", Confidence: d("0.95"), Reasoning: "Supermarket"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool { return next.Status == domain.MappingApproved })
	suite.events.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	updated, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.ErrorIs(err, assert.AnError)
	suite.Require().NotNil(updated)
	suite.True(updated.EventPending)
	suite.mappingRepo.AssertNumberOfCalls(suite.T(), "UpdateMapping", 1)
}

func (suite *ClassificationWorkerTestSuite) TestRedeliverApprovalEvents() {
	reviewedAt := workerNow.Add(-time.Hour)
	yes := true
	approved := func(id string) domain.Mapping {
		m := domain.NewMapping(id, "t1", "Groceries", workerNow.Add(-2*time.Hour))
		m.Status = domain.MappingApproved
		m.AdminApproved = &yes
		m.Reviewer = "alice"
		m.ReviewedAt = &reviewedAt
		m.EventPending = true
		m.Version = 4
		return m
	}
	ok, failing := approved("m1"), approved("m2")
	suite.mappingRepo.On("ListUndeliveredApprovals", mock.Anything, workerNow.Add(-time.Minute), 100).
		Return([]domain.Mapping{ok, failing}, nil).Once()
	suite.events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.ApprovalEvent) bool { return e.MappingID == "m1" })).Return(nil).Once()
	suite.events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.ApprovalEvent) bool { return e.MappingID == "m2" })).Return(assert.AnError).Once()
	suite.expectUpdate(4, func(next domain.Mapping) bool { return next.MappingID == "m1" && !next.EventPending })

	delivered, err := suite.worker.RedeliverApprovalEvents(context.Background())

	suite.Require().NoError(err)
	suite.Equal(1, delivered)
	suite.mappingRepo.AssertExpectations(suite.T())
	suite.events.AssertExpectations(suite.T())
}

func (suite *ClassificationWorkerTestSuite) TestProcess_ShutdownDoesNotBurnAttempt() {
	m := suite.claimedMapping("m1", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	suite.expectInference(nil, context.Canceled)

	updated, err := suite.worker.ProcessMapping(ctx, m)

	suite.ErrorIs(err, context.Canceled)
	suite.Nil(updated)
	suite.mappingRepo.AssertNotCalled(suite.T(), "UpdateMapping", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestProcess_RequiresClaim() {
	m := domain.NewMapping("m1", "t1", "", workerNow)

	_, err := suite.worker.ProcessMapping(context.Background(), m)

	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.gateway.AssertNotCalled(suite.T(), "Classify", mock.Anything, mock.Anything)
}

func (suite *ClassificationWorkerTestSuite) TestRunOnce_SkipsLostClaims() {
	lost := domain.NewMapping("m1", "t1", "", workerNow.Add(-time.Minute))
	won := domain.NewMapping("m2", "t1", "", workerNow.Add(-time.Minute))
	suite.mappingRepo.On("ListClaimable", mock.Anything, workerNow, 10).Return([]domain.Mapping{lost, won}, nil).Once()

	suite.mappingRepo.On("UpdateMapping", mock.Anything, mock.MatchedBy(func(next domain.Mapping) bool {
		return next.MappingID == "m1"
	}), int64(1)).Return(nil, apperrors.ErrStaleWrite).Once()
	suite.expectUpdate(1, func(next domain.Mapping) bool {
		return next.MappingID == "m2" && next.Status == domain.MappingInProgress && next.ClaimedAt != nil
	})
	suite.expectInference(&domain.InferenceResult{Category: "Dining", Confidence: d("0.70"), Reasoning: "Cafe"}, nil)
	suite.expectUpdate(2, func(next domain.Mapping) bool {
		return next.MappingID == "m2" && next.Status == domain.MappingMapped
	})

	processed, err := suite.worker.RunOnce(context.Background())

	suite.Require().NoError(err)
	suite.Equal(1, processed)
	suite.mappingRepo.AssertExpectations(suite.T())
	suite.gateway.AssertNumberOfCalls(suite.T(), "Classify", 1)
}

func (suite *ClassificationWorkerTestSuite) TestRunOnce_ListError() {
	suite.mappingRepo.On("ListClaimable", mock.Anything, workerNow, 10).Return(nil, assert.AnError).Once()

	processed, err := suite.worker.RunOnce(context.Background())

	suite.ErrorIs(err, assert.AnError)
	suite.Zero(processed)
}

func (suite *ClassificationWorkerTestSuite) TestSweepStaleClaims_ReleasesWithoutTouchingAttempts() {
	stale := suite.claimedMapping("m1", 1)
	stale.Version = 5
	finished := suite.claimedMapping("m2", 0)
	suite.mappingRepo.On("ListStaleClaims", mock.Anything, workerNow.Add(-time.Minute), 100).
		Return([]domain.Mapping{stale, finished}, nil).Once()

	suite.expectUpdate(5, func(next domain.Mapping) bool {
		return next.MappingID == "m1" &&
			next.Status == domain.MappingPending &&
			next.AIStatus == domain.AIPending &&
			next.AIAttempted == 1 &&
			next.ClaimedAt == nil
	})
	suite.mappingRepo.On("UpdateMapping", mock.Anything, mock.MatchedBy(func(next domain.Mapping) bool {
		return next.MappingID == "m2"
	}), int64(2)).Return(nil, apperrors.ErrStaleWrite).Once()

	released, err := suite.worker.SweepStaleClaims(context.Background())

	suite.Require().NoError(err)
	suite.Equal(1, released)
	suite.mappingRepo.AssertExpectations(suite.T())
}

func (suite *ClassificationWorkerTestSuite) TestResetMapping() {
	approved := suite.claimedMapping("m1", 1)
	approved.Status = domain.MappingApproved
	yes := true
	approved.AdminApproved = &yes
	suite.mappingRepo.On("FindMappingByID", mock.Anything, "m1").Return(&approved, nil).Once()

	_, err := suite.worker.ResetMapping(context.Background(), "m1", "ops")
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)

	fresh := domain.NewMapping("m2", "t1", "", workerNow)
	suite.mappingRepo.On("FindMappingByID", mock.Anything, "m2").Return(&fresh, nil).Once()

	got, err := suite.worker.ResetMapping(context.Background(), "m2", "ops")
	suite.Require().NoError(err)
	suite.Equal(fresh.Version, got.Version)
	suite.mappingRepo.AssertNotCalled(suite.T(), "UpdateMapping", mock.Anything, mock.Anything, mock.Anything)
}

// --- Run Test Suite ---
func TestClassificationWorker(t *testing.T) {
	suite.Run(t, new(ClassificationWorkerTestSuite))
}
