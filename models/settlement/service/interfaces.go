package service

import (
	"context"

	"github.com/NomadCrew/nomad-crew-settlement/internal/payment"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/services"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/shopspring/decimal"
)

// FXProvider supplies exchange rates and payment provider names. Satisfied by *fx.Provider.
type FXProvider interface {
	GetRate(ctx context.Context, from, to string, predefined map[string]decimal.Decimal, mode types.FXMode) (decimal.Decimal, error)
	Convert(amount valueobjects.Amount, rate decimal.Decimal) valueobjects.Amount
	PaymentProvider(currency string) string
}

// PaymentGateway starts checkout sessions. Satisfied by *payment.Router.
type PaymentGateway interface {
	StartPayment(ctx context.Context, provider string, req payment.PaymentRequest, opts payment.StartOptions) (*payment.PaymentSession, error)
}

// JobSubmitter queues background work. Satisfied by *services.WorkerPool.
type JobSubmitter interface {
	Submit(job services.Job) bool
}

// SettlementServiceInterface is the plan and approval surface used by handlers.
type SettlementServiceInterface interface {
	CalculateEntityBalances(ctx context.Context, eventID string) ([]types.Balance, error)
	GenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error)
	RegenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error)
	ApproveSettlementReview(ctx context.Context, eventID, userID string) (*types.ApprovalResult, error)
	GetEventSettlements(ctx context.Context, eventID string) ([]*types.Settlement, error)
	GetPendingSettlementTotal(ctx context.Context, eventID string) (valueobjects.Amount, error)
	PreviewSplits(ctx context.Context, req types.SplitPreviewRequest) ([]types.Split, error)
}

// PaymentServiceInterface is the per-transaction payment surface used by handlers.
type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error)
	RetryPayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error)
	ApprovePayment(ctx context.Context, settlementID, userID string) (*types.Settlement, error)
	RejectPayment(ctx context.Context, settlementID, userID, reason string) (*types.Settlement, error)
	MarkPaidByPayee(ctx context.Context, settlementID, userID string) (*types.Settlement, error)
}

// StatusCoordinatorInterface gates edits on the event lifecycle.
type StatusCoordinatorInterface interface {
	GetEventLockStatus(ctx context.Context, eventID string) (types.LockStatus, error)
	RequireEditableEvent(ctx context.Context, eventID string) error
	MarkStaleIfInReview(ctx context.Context, eventID string) error
	CloseEvent(ctx context.Context, eventID, userID string) (*types.Event, error)
}
