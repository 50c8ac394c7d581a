package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"go.uber.org/zap"
)

// SettlementService computes balances, commits settlement plans and runs the
// approval workflow.
type SettlementService struct {
	store   store.Store
	fx      FXProvider
	emitter *eventEmitter
	metrics *settlementMetrics
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewSettlementService creates a new settlement service. publisher and pool may be nil.
func NewSettlementService(st store.Store, fx FXProvider, publisher types.EventPublisher, pool JobSubmitter) *SettlementService {
	return &SettlementService{
		store:   st,
		fx:      fx,
		emitter: newEventEmitter(publisher, pool),
		metrics: newSettlementMetrics(),
		log:     logger.GetLogger().Named("settlement"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ SettlementServiceInterface = (*SettlementService)(nil)

func (s *SettlementService) getEvent(ctx context.Context, eventID string) (*types.Event, error) {
	event, err := s.store.Events().GetEvent(ctx, eventID)
	if err != nil {
		return nil, translateStoreError(err, "Event", eventID)
	}
	return event, nil
}

// CalculateEntityBalances returns the current net balance of every entity in the event.
func (s *SettlementService) CalculateEntityBalances(ctx context.Context, eventID string) ([]types.Balance, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	balances, _, err := s.loadBalances(ctx, event)
	return balances, err
}

func (s *SettlementService) loadBalances(ctx context.Context, event *types.Event) ([]types.Balance, []*types.Group, error) {
	expenses, err := s.store.Expenses().ListEventExpenses(ctx, event.ID)
	if err != nil {
		return nil, nil, translateStoreError(err, "Event", event.ID)
	}
	groups, err := s.store.Directory().GetEventGroups(ctx, event.ID)
	if err != nil {
		return nil, nil, translateStoreError(err, "Event", event.ID)
	}
	balances, err := CalculateBalances(event.Currency, expenses, groups)
	if err != nil {
		return nil, nil, err
	}
	return balances, groups, nil
}

// buildPlan recomputes balances and the FX-converted plan for event.
func (s *SettlementService) buildPlan(ctx context.Context, event *types.Event) (*types.SettlementPlan, []*types.Group, error) {
	balances, groups, err := s.loadBalances(ctx, event)
	if err != nil {
		return nil, nil, err
	}

	plan := PlanSettlements(event.ID, balances, event.Currency, groups, s.now())

	if event.NeedsConversion() && len(plan.Settlements) > 0 {
		rate, err := s.fx.GetRate(ctx, event.Currency, event.SettlementCurrency, event.PredefinedRates, event.FXMode)
		if err != nil {
			return nil, nil, err
		}
		applyFX(plan, event.SettlementCurrency, rate, s.fx.Convert)
	}
	return plan, groups, nil
}

func (s *SettlementService) seedApprovals(ctx context.Context, eventID string, groups []*types.Group) (types.Approvals, error) {
	participants, err := s.store.Directory().GetParticipants(ctx, eventID)
	if err != nil {
		return nil, translateStoreError(err, "Event", eventID)
	}
	return BuildApprovalsMap(groups, participants), nil
}

// GenerateSettlement replaces the event's settlement plan and opens review.
// A plan with no transactions settles the event immediately.
func (s *SettlementService) GenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error) {
	for attempt := 1; attempt <= maxStateAttempts; attempt++ {
		event, err := s.getEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if !event.IsAdmin(userID) {
			return nil, apperrors.Forbidden("not allowed to generate settlement", "only the event creator or an admin can generate settlements")
		}
		switch event.Status {
		case types.EventStatusPayment, types.EventStatusSettled, types.EventStatusClosed:
			return nil, apperrors.InvalidState("cannot generate settlement", "event status is "+string(event.Status))
		}

		plan, groups, err := s.buildPlan(ctx, event)
		if err != nil {
			return nil, err
		}

		update := types.EventStateUpdate{
			Status:              types.EventStatusSettled,
			SettlementApprovals: types.Approvals{},
		}
		if plan.TotalTransactions > 0 {
			approvals, err := s.seedApprovals(ctx, eventID, groups)
			if err != nil {
				return nil, err
			}
			update = types.EventStateUpdate{
				Status:              types.EventStatusReview,
				SettlementApprovals: approvals,
			}
		}
		if !event.Status.IsValidTransition(update.Status) {
			return nil, apperrors.InvalidStatusTransition(string(event.Status), string(update.Status))
		}

		updated, err := s.store.Settlements().CommitSettlementPlan(ctx, eventID, event.Version, plan.Settlements, update)
		if errors.Is(err, store.ErrConflict) {
			s.metrics.conflicts.WithLabelValues("generate").Inc()
			continue
		}
		if err != nil {
			return nil, translateStoreError(err, "Event", eventID)
		}

		s.metrics.plansGenerated.WithLabelValues("generate").Inc()
		s.metrics.planTransactions.Observe(float64(plan.TotalTransactions))
		s.log.Infow("Settlement plan generated",
			"eventID", eventID,
			"userID", userID,
			"transactions", plan.TotalTransactions,
			"totalAmount", plan.TotalAmount.String(),
			"status", updated.Status)

		s.emitter.emit(types.EventTypeSettlementGenerated, eventID, userID, types.PlanPayload{
			TotalTransactions: plan.TotalTransactions,
			TotalAmount:       plan.TotalAmount.String(),
			Currency:          plan.Currency,
			Status:            updated.Status,
		})
		s.emitter.emitStatusChange(event, updated, userID)
		return plan, nil
	}
	return nil, apperrors.NewConflictError("event was modified concurrently", "please retry the request")
}

// canRegenerate reports whether userID is an admin or acts for any group.
func canRegenerate(event *types.Event, groups []*types.Group, userID string) bool {
	if event.IsAdmin(userID) {
		return true
	}
	for _, g := range groups {
		if g.CanActFor(userID) {
			return true
		}
	}
	return false
}

// RegenerateSettlement rebuilds a stale plan during review. Entities whose net
// position did not change keep their approval.
func (s *SettlementService) RegenerateSettlement(ctx context.Context, eventID, userID string) (*types.SettlementPlan, error) {
	for attempt := 1; attempt <= maxStateAttempts; attempt++ {
		event, err := s.getEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if event.Status != types.EventStatusReview {
			return nil, apperrors.InvalidState("cannot regenerate settlement", "settlement can only be regenerated during review")
		}

		previous, err := s.store.Settlements().ListEventSettlements(ctx, eventID)
		if err != nil {
			return nil, translateStoreError(err, "Event", eventID)
		}

		plan, groups, err := s.buildPlan(ctx, event)
		if err != nil {
			return nil, err
		}
		if !canRegenerate(event, groups, userID) {
			return nil, apperrors.Forbidden("not allowed to regenerate settlement", "only admins or group representatives can regenerate settlements")
		}

		affected := affectedEntities(entityNets(previous), entityNets(plan.Settlements))

		var update types.EventStateUpdate
		if plan.TotalTransactions == 0 {
			update = types.EventStateUpdate{Status: types.EventStatusSettled, SettlementApprovals: types.Approvals{}}
		} else {
			fresh, err := s.seedApprovals(ctx, eventID, groups)
			if err != nil {
				return nil, err
			}
			approvals := carryForwardApprovals(fresh, event.SettlementApprovals, affected)
			status := types.EventStatusReview
			if approvals.AllApproved() {
				status = types.EventStatusPayment
			}
			update = types.EventStateUpdate{Status: status, SettlementApprovals: approvals}
		}

		updated, err := s.store.Settlements().CommitSettlementPlan(ctx, eventID, event.Version, plan.Settlements, update)
		if errors.Is(err, store.ErrConflict) {
			s.metrics.conflicts.WithLabelValues("regenerate").Inc()
			continue
		}
		if err != nil {
			return nil, translateStoreError(err, "Event", eventID)
		}

		affectedIDs := make([]string, 0, len(affected))
		for id := range affected {
			affectedIDs = append(affectedIDs, id)
		}

		s.metrics.plansGenerated.WithLabelValues("regenerate").Inc()
		s.metrics.planTransactions.Observe(float64(plan.TotalTransactions))
		s.log.Infow("Settlement plan regenerated",
			"eventID", eventID,
			"userID", userID,
			"transactions", plan.TotalTransactions,
			"affectedEntities", len(affectedIDs),
			"status", updated.Status)

		s.emitter.emit(types.EventTypeSettlementRegenerated, eventID, userID, types.PlanPayload{
			TotalTransactions: plan.TotalTransactions,
			TotalAmount:       plan.TotalAmount.String(),
			Currency:          plan.Currency,
			Status:            updated.Status,
			AffectedEntities:  affectedIDs,
		})
		s.emitter.emitStatusChange(event, updated, userID)
		return plan, nil
	}
	return nil, apperrors.NewConflictError("event was modified concurrently", "please retry the request")
}

// ApproveSettlementReview records userID's approval for themselves or for a
// group they represent. The event moves to payment once every entry approves.
func (s *SettlementService) ApproveSettlementReview(ctx context.Context, eventID, userID string) (*types.ApprovalResult, error) {
	groups, err := s.store.Directory().GetEventGroups(ctx, eventID)
	if err != nil {
		return nil, translateStoreError(err, "Event", eventID)
	}

	var approvedEntity string
	before, after, err := updateEventState(ctx, s.store.Events(), s.metrics, "approve", eventID, func(event *types.Event) (*types.EventStateUpdate, error) {
		if event.Status != types.EventStatusReview {
			return nil, apperrors.InvalidState("settlement is not in review", "event status is "+string(event.Status))
		}
		if event.SettlementStale {
			return nil, apperrors.InvalidState("settlement is stale", "expenses changed during review; regenerate the settlement first")
		}

		entityID, err := resolveApprovalEntity(event.SettlementApprovals, groups, userID)
		if err != nil {
			return nil, err
		}
		approvedEntity = entityID

		update := types.StateOf(event)
		update.SettlementApprovals = recordApproval(event.SettlementApprovals, entityID, s.now())
		if update.SettlementApprovals.AllApproved() {
			update.Status = types.EventStatusPayment
		}
		return &update, nil
	})
	if err != nil {
		return nil, err
	}

	allApproved := after.SettlementApprovals.AllApproved()
	s.metrics.approvalsRecorded.Inc()
	s.log.Infow("Settlement approval recorded",
		"eventID", eventID,
		"userID", userID,
		"entityID", approvedEntity,
		"allApproved", allApproved)

	s.emitter.emit(types.EventTypeSettlementApproved, eventID, userID, types.ApprovalPayload{
		EntityID:    approvedEntity,
		AllApproved: allApproved,
	})
	s.emitter.emitStatusChange(before, after, userID)

	return &types.ApprovalResult{
		Approvals:   after.SettlementApprovals,
		AllApproved: allApproved,
		Status:      after.Status,
	}, nil
}

// GetEventSettlements lists the event's current settlement transactions.
func (s *SettlementService) GetEventSettlements(ctx context.Context, eventID string) ([]*types.Settlement, error) {
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return nil, err
	}
	settlements, err := s.store.Settlements().ListEventSettlements(ctx, eventID)
	if err != nil {
		return nil, translateStoreError(err, "Event", eventID)
	}
	return settlements, nil
}

// GetPendingSettlementTotal sums the ledger amount of every transaction not yet completed.
func (s *SettlementService) GetPendingSettlementTotal(ctx context.Context, eventID string) (valueobjects.Amount, error) {
	settlements, err := s.GetEventSettlements(ctx, eventID)
	if err != nil {
		return 0, err
	}
	var total valueobjects.Amount
	for _, st := range settlements {
		if st.Status != types.SettlementStatusCompleted {
			total += st.Amount
		}
	}
	return total, nil
}

// PreviewSplits computes the splits an expense would get without storing anything.
func (s *SettlementService) PreviewSplits(ctx context.Context, req types.SplitPreviewRequest) ([]types.Split, error) {
	return CalculateSplits(req.SplitType, req.Amount, req.Shares)
}
