package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/internal/payment"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"go.uber.org/zap"
)

// PaymentService drives the per-transaction payment state machine.
type PaymentService struct {
	store   store.Store
	fx      FXProvider
	gateway PaymentGateway
	emitter *eventEmitter
	metrics *settlementMetrics
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewPaymentService creates a new payment service. publisher and pool may be nil.
func NewPaymentService(st store.Store, fx FXProvider, gateway PaymentGateway, publisher types.EventPublisher, pool JobSubmitter) *PaymentService {
	return &PaymentService{
		store:   st,
		fx:      fx,
		gateway: gateway,
		emitter: newEventEmitter(publisher, pool),
		metrics: newSettlementMetrics(),
		log:     logger.GetLogger().Named("payments"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ PaymentServiceInterface = (*PaymentService)(nil)

func (s *PaymentService) getSettlement(ctx context.Context, settlementID string) (*types.Settlement, error) {
	st, err := s.store.Settlements().GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, translateStoreError(err, "Settlement", settlementID)
	}
	return st, nil
}

func requirePayer(st *types.Settlement, userID string) error {
	if userID == "" || st.FromUserID != userID {
		return apperrors.Forbidden("not the payer", "only the paying user can perform this action")
	}
	return nil
}

func requirePayee(st *types.Settlement, userID string) error {
	if userID == "" || st.ToUserID != userID {
		return apperrors.Forbidden("not the payee", "only the receiving user can perform this action")
	}
	return nil
}

// save persists st if its stored status still equals expected. A status
// change must be an allowed payment transition; rewriting fields under the
// same status is always allowed.
func (s *PaymentService) save(ctx context.Context, st *types.Settlement, expected types.SettlementStatus) error {
	if st.Status != expected && !expected.IsValidTransition(st.Status) {
		return apperrors.InvalidStatusTransition(string(expected), string(st.Status))
	}
	err := s.store.Settlements().UpdateSettlement(ctx, st, expected)
	if errors.Is(err, store.ErrConflict) {
		s.metrics.conflicts.WithLabelValues("payment").Inc()
		return apperrors.NewConflictError("settlement was modified concurrently", "please reload and retry")
	}
	if err != nil {
		return translateStoreError(err, "Settlement", st.ID)
	}
	s.metrics.paymentTransitions.WithLabelValues(string(st.Status)).Inc()
	return nil
}

// InitiatePayment starts a payment for a pending or failed transaction.
func (s *PaymentService) InitiatePayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error) {
	st, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if err := requirePayer(st, userID); err != nil {
		return nil, err
	}
	if st.Status != types.SettlementStatusPending && st.Status != types.SettlementStatusFailed {
		return nil, apperrors.InvalidState("cannot initiate payment", "settlement status is "+string(st.Status))
	}
	return s.initiate(ctx, st, userID, opts)
}

func (s *PaymentService) initiate(ctx context.Context, st *types.Settlement, userID string, opts types.InitiateOptions) (*types.Settlement, error) {
	amount, currency := st.ChargeAmount()
	provider := s.fx.PaymentProvider(currency)

	description := "Settlement payment"
	if event, err := s.store.Events().GetEvent(ctx, st.EventID); err == nil && event.Name != "" {
		description = fmt.Sprintf("Settlement for %s", event.Name)
	}

	session, err := s.gateway.StartPayment(ctx, provider, payment.PaymentRequest{
		SettlementID: st.ID,
		Amount:       amount,
		Currency:     currency,
		Description:  description,
	}, payment.StartOptions{UseRealGateway: opts.UseRealGateway, UserID: userID})
	if err != nil {
		s.log.Errorw("Payment gateway failed", "settlementID", st.ID, "provider", provider, "error", err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ProviderFailed(provider, err)
	}

	next := st.Clone()
	now := s.now()
	if st.Status == types.SettlementStatusFailed {
		next.RetryCount++
	}
	next.Status = types.SettlementStatusInitiated
	next.PaymentMethod = session.Provider
	next.PaymentID = session.ProviderPaymentID
	next.CheckoutURL = session.CheckoutURL
	next.FailureReason = ""
	next.InitiatedAt = &now

	if err := s.save(ctx, next, st.Status); err != nil {
		return nil, err
	}

	s.log.Infow("Payment initiated",
		"settlementID", next.ID,
		"eventID", next.EventID,
		"provider", session.Provider,
		"retryCount", next.RetryCount)
	s.emitPayment(types.EventTypePaymentInitiated, next, userID)

	if err := s.ensureEventInPayment(ctx, next.EventID, userID); err != nil {
		s.log.Warnw("Failed to move event to payment", "eventID", next.EventID, "error", err)
	}
	return next, nil
}

// ensureEventInPayment moves an event still marked active into payment.
func (s *PaymentService) ensureEventInPayment(ctx context.Context, eventID, userID string) error {
	before, after, err := updateEventState(ctx, s.store.Events(), s.metrics, "payment-status", eventID, func(event *types.Event) (*types.EventStateUpdate, error) {
		if event.Status != types.EventStatusActive {
			return nil, nil
		}
		update := types.StateOf(event)
		update.Status = types.EventStatusPayment
		return &update, nil
	})
	if err != nil {
		return err
	}
	s.emitter.emitStatusChange(before, after, userID)
	return nil
}

// RetryPayment restarts a payment. An in-flight or failed attempt is first
// marked failed so the retry is visible in the row history.
func (s *PaymentService) RetryPayment(ctx context.Context, settlementID, userID string, opts types.InitiateOptions) (*types.Settlement, error) {
	st, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if err := requirePayer(st, userID); err != nil {
		return nil, err
	}

	switch st.Status {
	case types.SettlementStatusCompleted:
		return nil, apperrors.InvalidState("cannot retry payment", "settlement is already completed")
	case types.SettlementStatusPending:
		return s.initiate(ctx, st, userID, opts)
	}

	previous := st.Status
	now := s.now()
	st.Status = types.SettlementStatusFailed
	st.FailureReason = types.FailureReasonRetryRequested
	st.FailedAt = &now
	if err := s.save(ctx, st, previous); err != nil {
		return nil, err
	}

	result, err := s.initiate(ctx, st, userID, opts)
	if err != nil {
		failedAt := s.now()
		st.Status = types.SettlementStatusFailed
		st.FailureReason = err.Error()
		st.FailedAt = &failedAt
		if saveErr := s.save(ctx, st, types.SettlementStatusFailed); saveErr != nil {
			s.log.Warnw("Failed to record retry failure", "settlementID", st.ID, "error", saveErr)
		}
		s.emitPayment(types.EventTypePaymentFailed, st, userID)
		return nil, err
	}
	return result, nil
}

// ApprovePayment confirms receipt of an initiated payment.
func (s *PaymentService) ApprovePayment(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
	st, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if err := requirePayee(st, userID); err != nil {
		return nil, err
	}
	if st.Status != types.SettlementStatusInitiated {
		return nil, apperrors.InvalidState("cannot approve payment", "only initiated payments can be approved")
	}
	return s.complete(ctx, st, userID)
}

// MarkPaidByPayee completes a transaction the payee received out of band.
func (s *PaymentService) MarkPaidByPayee(ctx context.Context, settlementID, userID string) (*types.Settlement, error) {
	st, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if err := requirePayee(st, userID); err != nil {
		return nil, err
	}
	if st.Status == types.SettlementStatusCompleted {
		return nil, apperrors.InvalidState("cannot mark as paid", "settlement is already completed")
	}
	return s.complete(ctx, st, userID)
}

func (s *PaymentService) complete(ctx context.Context, st *types.Settlement, userID string) (*types.Settlement, error) {
	next := st.Clone()
	now := s.now()
	next.Status = types.SettlementStatusCompleted
	next.CompletedAt = &now
	next.FailureReason = ""
	if next.PaymentMethod == "" {
		next.PaymentMethod = types.PaymentMethodManual
	}
	if err := s.save(ctx, next, st.Status); err != nil {
		return nil, err
	}

	s.log.Infow("Payment completed", "settlementID", next.ID, "eventID", next.EventID, "userID", userID)
	s.emitPayment(types.EventTypePaymentCompleted, next, userID)

	if err := s.settleIfAllComplete(ctx, next.EventID, userID); err != nil {
		s.log.Warnw("Failed to settle event after payment", "eventID", next.EventID, "error", err)
	}
	return next, nil
}

// settleIfAllComplete moves the event to settled once every transaction is completed.
func (s *PaymentService) settleIfAllComplete(ctx context.Context, eventID, userID string) error {
	settlements, err := s.store.Settlements().ListEventSettlements(ctx, eventID)
	if err != nil {
		return translateStoreError(err, "Event", eventID)
	}
	for _, st := range settlements {
		if st.Status != types.SettlementStatusCompleted {
			return nil
		}
	}

	before, after, err := updateEventState(ctx, s.store.Events(), s.metrics, "settle", eventID, func(event *types.Event) (*types.EventStateUpdate, error) {
		if event.Status == types.EventStatusSettled || !event.Status.IsValidTransition(types.EventStatusSettled) {
			return nil, nil
		}
		update := types.StateOf(event)
		update.Status = types.EventStatusSettled
		return &update, nil
	})
	if err != nil {
		return err
	}
	if before.Status != after.Status {
		s.log.Infow("All settlements completed, event settled", "eventID", eventID)
	}
	s.emitter.emitStatusChange(before, after, userID)
	return nil
}

// RejectPayment lets the payee refuse an initiated payment. The payer must retry.
func (s *PaymentService) RejectPayment(ctx context.Context, settlementID, userID, reason string) (*types.Settlement, error) {
	st, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if err := requirePayee(st, userID); err != nil {
		return nil, err
	}
	if st.Status != types.SettlementStatusInitiated {
		return nil, apperrors.InvalidState("cannot reject payment", "only initiated payments can be rejected")
	}

	next := st.Clone()
	now := s.now()
	next.Status = types.SettlementStatusFailed
	next.FailedAt = &now
	next.FailureReason = reason
	if next.FailureReason == "" {
		next.FailureReason = types.FailureReasonRejectedByPayee
	}
	if err := s.save(ctx, next, st.Status); err != nil {
		return nil, err
	}

	s.log.Infow("Payment rejected", "settlementID", next.ID, "eventID", next.EventID, "reason", next.FailureReason)
	s.emitPayment(types.EventTypePaymentRejected, next, userID)
	return next, nil
}

func (s *PaymentService) emitPayment(eventType types.DomainEventType, st *types.Settlement, userID string) {
	s.emitter.emit(eventType, st.EventID, userID, types.PaymentPayload{
		SettlementID:  st.ID,
		Status:        st.Status,
		FromUserID:    st.FromUserID,
		ToUserID:      st.ToUserID,
		PaymentMethod: st.PaymentMethod,
		FailureReason: st.FailureReason,
		RetryCount:    st.RetryCount,
	})
}
