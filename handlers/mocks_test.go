package handlers

import (
	"context"

	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/stretchr/testify/mock"
)

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) CalculateEntityBalances(ctx context.Context, eventID string) ([]types.Balance, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Balance), args.Error(1)
}

func (m *MockSettlementService) GenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SettlementPlan), args.Error(1)
}

func (m *MockSettlementService) RegenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SettlementPlan), args.Error(1)
}

func (m *MockSettlementService) ApproveSettlementReview(ctx context.Context, eventID, userID string) (*types.ApprovalResult, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ApprovalResult), args.Error(1)
}

func (m *MockSettlementService) GetEventSettlements(ctx context.Context, eventID string) ([]*types.Settlement, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Settlement), args.Error(1)
}

func (m *MockSettlementService) GetPendingSettlementTotal(ctx context.Context, eventID string) (valueobjects.Amount, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(valueobjects.Amount), args.Error(1)
}

func (m *MockSettlementService) PreviewSplits(ctx context.Context, req types.SplitPreviewRequest) ([]types.Split, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Split), args.Error(1)
}

var _ SettlementServiceInterface = (*MockSettlementService)(nil)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) settlement(args mock.Arguments) (*types.Settlement, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Settlement), args.Error(1)
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error) {
	return m.settlement(m.Called(ctx, settlementID, userID, opts))
}

func (m *MockPaymentService) RetryPayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error) {
	return m.settlement(m.Called(ctx, settlementID, userID, opts))
}

func (m *MockPaymentService) ApprovePayment(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
	return m.settlement(m.Called(ctx, settlementID, userID))
}

func (m *MockPaymentService) RejectPayment(ctx context.Context, settlementID, userID, reason string) (*types.Settlement, error) {
	return m.settlement(m.Called(ctx, settlementID, userID, reason))
}

func (m *MockPaymentService) MarkPaidByPayee(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
	return m.settlement(m.Called(ctx, settlementID, userID))
}

var _ PaymentServiceInterface = (*MockPaymentService)(nil)

type MockStatusCoordinator struct {
	mock.Mock
}

func (m *MockStatusCoordinator) GetEventLockStatus(ctx context.Context, eventID string) (types.LockStatus, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(types.LockStatus), args.Error(1)
}

func (m *MockStatusCoordinator) RequireEditableEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockStatusCoordinator) MarkStaleIfInReview(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockStatusCoordinator) CloseEvent(ctx context.Context, eventID, userID string) (*types.Event, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Event), args.Error(1)
}

var _ StatusCoordinatorInterface = (*MockStatusCoordinator)(nil)
