package payment

import (
	"context"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"go.uber.org/zap"
)

// Router sends payments to the real gateway only when the caller asks for it
// and the environment allows it; everything else goes to the mock.
type Router struct {
	real        Gateway
	mock        Gateway
	environment config.Environment
	cfg         config.PaymentConfig
	realEnabled bool
	log         *zap.SugaredLogger
}

func NewRouter(real, mock Gateway, environment config.Environment, cfg config.PaymentConfig, flags config.FeatureFlags) *Router {
	return &Router{
		real:        real,
		mock:        mock,
		environment: environment,
		cfg:         cfg,
		realEnabled: flags.EnableRealPaymentGateway,
		log:         logger.GetLogger().Named("payments"),
	}
}

// AllowsRealGateway reports whether a request from userID may reach a real provider.
func (r *Router) AllowsRealGateway(opts StartOptions) bool {
	if !opts.UseRealGateway || !r.realEnabled || r.real == nil {
		return false
	}
	if r.environment == config.EnvProduction {
		return true
	}
	return r.cfg.AllowNonProdRealGateway && r.cfg.IsInternalTester(opts.UserID)
}

func (r *Router) StartPayment(ctx context.Context, provider string, req PaymentRequest, opts StartOptions) (*PaymentSession, error) {
	if r.AllowsRealGateway(opts) {
		r.log.Infow("Starting payment with real gateway",
			"provider", provider,
			"settlementID", req.SettlementID,
			"currency", req.Currency)
		return r.real.StartPayment(ctx, provider, req, opts)
	}

	if opts.UseRealGateway {
		r.log.Warnw("Real gateway requested but not allowed, using mock",
			"provider", provider,
			"settlementID", req.SettlementID,
			"userID", opts.UserID,
			"environment", r.environment)
	}
	return r.mock.StartPayment(ctx, provider, req, opts)
}
