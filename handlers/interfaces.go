package handlers

import (
	settlementSvc "github.com/NomadCrew/nomad-crew-settlement/models/settlement/service"
)

// Handlers depend on the service interfaces so they can be tested with mocks.
type (
	SettlementServiceInterface = settlementSvc.SettlementServiceInterface
	PaymentServiceInterface    = settlementSvc.PaymentServiceInterface
	StatusCoordinatorInterface = settlementSvc.StatusCoordinatorInterface
)

// Ensure the concrete services satisfy the interfaces at compile time.
var (
	_ SettlementServiceInterface = (*settlementSvc.SettlementService)(nil)
	_ PaymentServiceInterface    = (*settlementSvc.PaymentService)(nil)
	_ StatusCoordinatorInterface = (*settlementSvc.StatusCoordinator)(nil)
)
