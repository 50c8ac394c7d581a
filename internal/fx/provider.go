package fx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource returns a live end-of-day rate. Satisfied by *EODClient.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// ProviderResolver maps a currency to a payment provider name.
// Satisfied by *config.PaymentConfig.
type ProviderResolver interface {
	ProviderForCurrency(currency string) string
}

// Provider resolves exchange rates and payment providers for settlements.
type Provider struct {
	eod       RateSource
	cache     RateCache
	table     *RateTable
	providers ProviderResolver
	now       func() time.Time
	log       *zap.SugaredLogger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRateSource sets the live EOD rate source.
func WithRateSource(src RateSource) Option {
	return func(p *Provider) { p.eod = src }
}

// WithRateCache caches EOD rates until the end of their UTC day.
func WithRateCache(cache RateCache) Option {
	return func(p *Provider) { p.cache = cache }
}

// WithRateTable sets the static table used when an event has no predefined rate.
func WithRateTable(table *RateTable) Option {
	return func(p *Provider) { p.table = table }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(providers ProviderResolver, opts ...Option) *Provider {
	p := &Provider{
		providers: providers,
		now:       time.Now,
		log:       logger.GetLogger().Named("fx"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetRate returns the rate converting one unit of from into to.
//
// In predefined mode the event's own rates are keyed by target currency and
// quoted against the event currency; a missing entry falls back to the static
// rate table. In eod mode the live source is used, cached per UTC day.
func (p *Provider) GetRate(ctx context.Context, fromCode, toCode string, predefined map[string]decimal.Decimal, mode types.FXMode) (decimal.Decimal, error) {
	fromCurrency, err := valueobjects.ParseCurrency(fromCode)
	if err != nil {
		return decimal.Zero, err
	}
	toCurrency, err := valueobjects.ParseCurrency(toCode)
	if err != nil {
		return decimal.Zero, err
	}
	from, to := fromCurrency.String(), toCurrency.String()
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	switch mode {
	case types.FXModeEOD:
		return p.eodRate(ctx, from, to)
	case types.FXModePredefined, "":
		return p.predefinedRate(from, to, predefined)
	default:
		return decimal.Zero, apperrors.ValidationFailed("invalid fx mode", fmt.Sprintf("unknown fx mode %q", mode))
	}
}

func (p *Provider) predefinedRate(from, to string, predefined map[string]decimal.Decimal) (decimal.Decimal, error) {
	for code, rate := range predefined {
		if strings.EqualFold(code, to) && rate.IsPositive() {
			return rate, nil
		}
	}
	if p.table != nil {
		if rate, ok := p.table.Rate(from, to); ok {
			return rate, nil
		}
	}
	return decimal.Zero, apperrors.ValidationFailed(
		"missing exchange rate",
		fmt.Sprintf("no predefined rate for %s to %s", from, to),
	)
}

func (p *Provider) eodRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	now := p.now().UTC()
	day := now.Format("2006-01-02")

	if p.cache != nil {
		rate, ok, err := p.cache.Get(ctx, day, from, to)
		if err != nil {
			p.log.Warnw("Failed to read cached rate", "from", from, "to", to, "error", err)
		} else if ok {
			return rate, nil
		}
	}

	if p.eod == nil {
		return decimal.Zero, apperrors.ProviderFailed("fx", ErrNotConfigured)
	}
	rate, err := p.eod.Rate(ctx, from, to)
	if err != nil {
		p.log.Errorw("Failed to fetch EOD rate", "from", from, "to", to, "error", err)
		return decimal.Zero, apperrors.ProviderFailed("fx", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, day, from, to, rate, untilEndOfDay(now)); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Warnw("Failed to cache rate", "from", from, "to", to, "error", err)
		}
	}
	return rate, nil
}

// Convert applies rate to amount, rounding to whole cents.
func (p *Provider) Convert(amount valueobjects.Amount, rate decimal.Decimal) valueobjects.Amount {
	return valueobjects.Convert(amount, rate)
}

// PaymentProvider returns the gateway provider used for charges in currency.
func (p *Provider) PaymentProvider(currency string) string {
	if p.providers == nil {
		return ""
	}
	return p.providers.ProviderForCurrency(currency)
}
