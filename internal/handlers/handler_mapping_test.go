package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/dto"
	"github.com/SscSPs/txn_categorizer/internal/handlers"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// --- Mock ApprovalWorkflowService ---
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) GetMapping(ctx context.Context, mappingID string) (*domain.Mapping, error) {
	args := m.Called(ctx, mappingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockApprovalService) ListMappingsByStatus(ctx context.Context, status domain.MappingStatus, limit int, nextToken *string) ([]domain.Mapping, *string, error) {
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

func (m *MockApprovalService) ApproveMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error) {
	args := m.Called(ctx, mappingID, reviewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockApprovalService) RejectMapping(ctx context.Context, mappingID, reviewer, reason string) (*domain.Mapping, error) {
	args := m.Called(ctx, mappingID, reviewer, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockApprovalService) ResetMapping(ctx context.Context, mappingID, reviewer string) (*domain.Mapping, error) {
	args := m.Called(ctx, mappingID, reviewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

var _ portssvc.ApprovalWorkflowSvcFacade = (*MockApprovalService)(nil)

// --- Mock TransactionService ---
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest) (*domain.Transaction, *domain.Mapping, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Transaction), args.Get(1).(*domain.Mapping), args.Error(2)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) RequestRemapping(ctx context.Context, transactionID string, req dto.RemapTransactionRequest) (*domain.Mapping, error) {
	args := m.Called(ctx, transactionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockTransactionService) OnMappingApproved(ctx context.Context, event domain.ApprovalEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ portssvc.TransactionSvcFacade = (*MockTransactionService)(nil)

// --- Test Suite ---
type MappingHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	approvalService *MockApprovalService
	txnService      *MockTransactionService
	jwtSecret       string
}

func (suite *MappingHandlerTestSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *MappingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret, ""))

	suite.approvalService = new(MockApprovalService)
	suite.txnService = new(MockTransactionService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterMappingRoutes(v1, suite.approvalService)
	handlers.RegisterTransactionRoutes(v1, suite.txnService)
}

func (suite *MappingHandlerTestSuite) do(method, url, body, userID string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(userID))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func sampleMapping(status domain.MappingStatus) *domain.Mapping {
	m := domain.NewMapping("map-1", "txn-1", "Dining", time.Now().UTC())
	m.Status = status
	conf := decimal.RequireFromString("0.7")
	m.Confidence = &conf
	return &m
}

// --- Test Cases ---

func (suite *MappingHandlerTestSuite) TestListMappings_Success() {
	next := "tok"
	suite.approvalService.On("ListMappingsByStatus", mock.Anything, domain.MappingPendingReview, 5, (*string)(nil)).
		Return([]domain.Mapping{*sampleMapping(domain.MappingPendingReview)}, &next, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/mappings?status=pending-review&limit=5", "", "reviewer-1")

	suite.Equal(http.StatusOK, w.Code)
	var body dto.ListMappingsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Len(body.Mappings, 1)
	suite.Equal("pending-review", body.Mappings[0].Status)
	suite.Require().NotNil(body.NextToken)
	suite.Equal("tok", *body.NextToken)
	suite.approvalService.AssertExpectations(suite.T())
}

func (suite *MappingHandlerTestSuite) TestListMappings_UnknownStatus() {
	w := suite.do(http.MethodGet, "/api/v1/mappings?status=done", "", "reviewer-1")

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.approvalService.AssertNotCalled(suite.T(), "ListMappingsByStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MappingHandlerTestSuite) TestApprove_UsesTokenSubjectAsReviewer() {
	approved := sampleMapping(domain.MappingApproved)
	approved.Reviewer = "reviewer-7"
	suite.approvalService.On("ApproveMapping", mock.Anything, "map-1", "reviewer-7").Return(approved, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/approve", "", "reviewer-7")

	suite.Equal(http.StatusOK, w.Code)
	var body dto.MappingResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal("reviewer-7", body.Reviewer)
	suite.approvalService.AssertExpectations(suite.T())
}

func (suite *MappingHandlerTestSuite) TestApprove_ListenerFailureStillReturnsApproval() {
	suite.approvalService.On("ApproveMapping", mock.Anything, "map-1", "reviewer-1").
		Return(sampleMapping(domain.MappingApproved), assert.AnError).Once()

	w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/approve", "", "reviewer-1")

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *MappingHandlerTestSuite) TestApprove_ErrorMapping() {
	cases := []struct {
		err  error
		code int
	}{
		{apperrors.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrStaleWrite, http.StatusConflict},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		suite.approvalService.On("ApproveMapping", mock.Anything, "map-1", "reviewer-1").Return(nil, tc.err).Once()

		w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/approve", "", "reviewer-1")

		suite.Equal(tc.code, w.Code, "error %v", tc.err)
	}
}

func (suite *MappingHandlerTestSuite) TestReject_RequiresReason() {
	w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/reject", `{}`, "reviewer-1")

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.approvalService.AssertNotCalled(suite.T(), "RejectMapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MappingHandlerTestSuite) TestReject_Success() {
	suite.approvalService.On("RejectMapping", mock.Anything, "map-1", "reviewer-1", "wrong merchant").
		Return(sampleMapping(domain.MappingRejected), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/reject", `{"reason":"wrong merchant"}`, "reviewer-1")

	suite.Equal(http.StatusOK, w.Code)
	suite.approvalService.AssertExpectations(suite.T())
}

func (suite *MappingHandlerTestSuite) TestReset_Success() {
	suite.approvalService.On("ResetMapping", mock.Anything, "map-1", "reviewer-1").
		Return(sampleMapping(domain.MappingPending), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/mappings/map-1/reset", "", "reviewer-1")

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *MappingHandlerTestSuite) TestRemap_DuplicateReturnsExistingID() {
	suite.txnService.On("RequestRemapping", mock.Anything, "txn-1", dto.RemapTransactionRequest{}).
		Return(nil, &apperrors.DuplicateMappingError{TransactionID: "txn-1", ExistingMappingID: "map-1"}).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/txn-1/mappings", "", "reviewer-1")

	suite.Equal(http.StatusConflict, w.Code)
	var body map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal("map-1", body["existingMappingID"])
}

func (suite *MappingHandlerTestSuite) TestMissingToken() {
	w := suite.do(http.MethodGet, "/api/v1/mappings/map-1", "", "")

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.approvalService.AssertNotCalled(suite.T(), "GetMapping", mock.Anything, mock.Anything)
}

// --- Run Test Suite ---
func TestMappingHandler(t *testing.T) {
	suite.Run(t, new(MappingHandlerTestSuite))
}
