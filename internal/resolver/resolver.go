// Package resolver maps human-entered symbols to canonical tradable
// instruments using a fresh snapshot of the exchange's instrument catalog.
package resolver

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/pricing"
)

// UnderlyingQuoter supplies the underlying's current value when resolving
// a derivative contract to its at-the-money strike.
type UnderlyingQuoter interface {
	UnderlyingValue(ctx context.Context, symbol string) (float64, error)
}

// Resolver resolves instruments against the broker's catalogs. Each call
// re-downloads the catalog; callers needing performance should cache it
// externally.
type Resolver struct {
	gateway broker.Gateway
	quotes  UnderlyingQuoter
	logger  zerolog.Logger
}

// New creates a Resolver.
func New(gateway broker.Gateway, quotes UnderlyingQuoter, logger zerolog.Logger) *Resolver {
	return &Resolver{
		gateway: gateway,
		quotes:  quotes,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// DerivativeSpec selects an F&O contract. All three fields are required on
// the derivative path.
type DerivativeSpec struct {
	ContractType models.InstrumentType // CE, PE or FUT
	StrikeStep   int
	Expiry       time.Time
}

// ResolveEquity resolves a cash-market tradingsymbol on NSE.
func (r *Resolver) ResolveEquity(ctx context.Context, symbol string) (models.Instrument, error) {
	catalog, err := r.gateway.GetInstruments(ctx, models.NSE)
	if err != nil {
		return models.Instrument{}, err
	}

	var matches []models.Instrument
	for _, inst := range catalog {
		if inst.Symbol == symbol {
			matches = append(matches, inst)
		}
	}

	if len(matches) == 0 {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrInstrumentNotFound, "equity %s on NSE", symbol)
	}

	inst, err := pickDeterministic(matches)
	if err != nil {
		return models.Instrument{}, apperrors.Wrapf(err, "equity %s on NSE", symbol)
	}
	r.logger.Debug().Str("symbol", inst.Symbol).Uint32("token", inst.Token).Msg("Resolved equity")
	return inst, nil
}

// ResolveDerivative resolves the NFO contract one strike step above the
// underlying's at-the-money level, for the given expiry and contract type.
func (r *Resolver) ResolveDerivative(ctx context.Context, underlying string, spec DerivativeSpec) (models.Instrument, error) {
	value, err := r.quotes.UnderlyingValue(ctx, underlying)
	if err != nil {
		return models.Instrument{}, err
	}

	strike, err := pricing.NextStrike(value, spec.StrikeStep)
	if err != nil {
		return models.Instrument{}, err
	}

	catalog, err := r.gateway.GetInstruments(ctx, models.NFO)
	if err != nil {
		return models.Instrument{}, err
	}

	var matches []models.Instrument
	for _, inst := range catalog {
		if inst.Name != underlying {
			continue
		}
		if inst.Type != spec.ContractType {
			continue
		}
		if !sameDay(inst.Expiry, spec.Expiry) {
			continue
		}
		// Futures carry no strike; options must sit on the computed grid
		if spec.ContractType != models.InstrumentFuture && int(inst.Strike) != strike {
			continue
		}
		matches = append(matches, inst)
	}

	if len(matches) == 0 {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrInstrumentNotFound,
			"%s %s %d expiring %s", underlying, spec.ContractType, strike, spec.Expiry.Format("2006-01-02"))
	}

	inst, err := pickDeterministic(matches)
	if err != nil {
		return models.Instrument{}, apperrors.Wrapf(err, "%s %s %d", underlying, spec.ContractType, strike)
	}
	r.logger.Debug().
		Str("symbol", inst.Symbol).
		Int("strike", strike).
		Float64("underlying_value", value).
		Msg("Resolved derivative")
	return inst, nil
}

// pickDeterministic returns the lexicographically smallest tradingsymbol so
// the same catalog always resolves the same way. Rows that share a
// tradingsymbol cannot be told apart at all and are reported as ambiguous.
func pickDeterministic(matches []models.Instrument) (models.Instrument, error) {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Symbol < matches[j].Symbol
	})
	if len(matches) > 1 && matches[0].Symbol == matches[1].Symbol {
		return models.Instrument{}, apperrors.ErrAmbiguousInstrument
	}
	return matches[0], nil
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
