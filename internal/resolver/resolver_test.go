package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// staticQuoter returns a fixed underlying value, or an error.
type staticQuoter struct {
	value float64
	err   error
}

func (q staticQuoter) UnderlyingValue(ctx context.Context, symbol string) (float64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.value, nil
}

func newTestResolver(gateway broker.Gateway, quotes UnderlyingQuoter) *Resolver {
	return New(gateway, quotes, zerolog.Nop())
}

func expiry(day string) time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return t
}

func niftyChain() []models.Instrument {
	var chain []models.Instrument
	for strike := 24400; strike <= 24700; strike += 50 {
		chain = append(chain, models.Instrument{
			Token:    uint32(strike),
			Symbol:   "NIFTY2590" + string(rune('A'+((strike-24400)/50))) + "CE",
			Name:     "NIFTY",
			Exchange: models.NFO,
			LotSize:  75,
			Expiry:   expiry("2026-09-03"),
			Strike:   float64(strike),
			Type:     models.InstrumentCall,
		})
	}
	return chain
}

func TestResolveEquity(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NSE, []models.Instrument{
		{Token: 738561, Symbol: "RELIANCE", Name: "RELIANCE", Exchange: models.NSE, LotSize: 1, Type: models.InstrumentEquity},
		{Token: 408065, Symbol: "INFY", Name: "INFY", Exchange: models.NSE, LotSize: 1, Type: models.InstrumentEquity},
	})

	res := newTestResolver(gateway, staticQuoter{})

	inst, err := res.ResolveEquity(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatalf("ResolveEquity returned error: %v", err)
	}
	if inst.Token != 738561 {
		t.Errorf("resolved token = %d, want 738561", inst.Token)
	}
}

func TestResolveEquityNotFound(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NSE, []models.Instrument{
		{Token: 408065, Symbol: "INFY", Name: "INFY", Exchange: models.NSE},
	})

	res := newTestResolver(gateway, staticQuoter{})

	_, err := res.ResolveEquity(context.Background(), "NOSUCH")
	if !errors.Is(err, apperrors.ErrInstrumentNotFound) {
		t.Errorf("error = %v, want ErrInstrumentNotFound", err)
	}
}

func TestResolveDerivative(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NFO, niftyChain())

	// 24532.65 sits on the 24550 grid point; the traded contract is one
	// step above, at 24600. The chain carries both rows, so a resolver
	// stopping at the ATM strike would pick the wrong one.
	res := newTestResolver(gateway, staticQuoter{value: 24532.65})

	inst, err := res.ResolveDerivative(context.Background(), "NIFTY", DerivativeSpec{
		ContractType: models.InstrumentCall,
		StrikeStep:   50,
		Expiry:       expiry("2026-09-03"),
	})
	if err != nil {
		t.Fatalf("ResolveDerivative returned error: %v", err)
	}
	if inst.Strike != 24600 {
		t.Errorf("resolved strike = %v, want 24600", inst.Strike)
	}
}

func TestResolveDerivativeWrongExpiry(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NFO, niftyChain())

	res := newTestResolver(gateway, staticQuoter{value: 24532.65})

	_, err := res.ResolveDerivative(context.Background(), "NIFTY", DerivativeSpec{
		ContractType: models.InstrumentCall,
		StrikeStep:   50,
		Expiry:       expiry("2026-09-10"),
	})
	if !errors.Is(err, apperrors.ErrInstrumentNotFound) {
		t.Errorf("error = %v, want ErrInstrumentNotFound", err)
	}
}

func TestResolveDerivativeQuoteFailure(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NFO, niftyChain())

	res := newTestResolver(gateway, staticQuoter{err: apperrors.ErrNoData})

	_, err := res.ResolveDerivative(context.Background(), "NIFTY", DerivativeSpec{
		ContractType: models.InstrumentCall,
		StrikeStep:   50,
		Expiry:       expiry("2026-09-03"),
	})
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestResolveFuturesIgnoresStrike(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NFO, []models.Instrument{
		{Token: 1, Symbol: "NIFTY25SEPFUT", Name: "NIFTY", Exchange: models.NFO,
			LotSize: 75, Expiry: expiry("2026-09-24"), Type: models.InstrumentFuture},
	})

	res := newTestResolver(gateway, staticQuoter{value: 24532.65})

	inst, err := res.ResolveDerivative(context.Background(), "NIFTY", DerivativeSpec{
		ContractType: models.InstrumentFuture,
		StrikeStep:   50,
		Expiry:       expiry("2026-09-24"),
	})
	if err != nil {
		t.Fatalf("ResolveDerivative returned error: %v", err)
	}
	if inst.Symbol != "NIFTY25SEPFUT" {
		t.Errorf("resolved symbol = %s, want NIFTY25SEPFUT", inst.Symbol)
	}
}

func TestResolveCatalogFetchFailure(t *testing.T) {
	// Nothing seeded: every catalog download fails. The failure must reach
	// the caller as a CatalogError, never as a not-found.
	gateway := broker.NewPaperGateway()
	res := newTestResolver(gateway, staticQuoter{value: 24532.65})

	t.Run("equity", func(t *testing.T) {
		_, err := res.ResolveEquity(context.Background(), "RELIANCE")
		var catErr *apperrors.CatalogError
		if !errors.As(err, &catErr) {
			t.Fatalf("error = %v, want CatalogError", err)
		}
		if errors.Is(err, apperrors.ErrInstrumentNotFound) {
			t.Error("catalog failure must not report ErrInstrumentNotFound")
		}
	})

	t.Run("derivative", func(t *testing.T) {
		_, err := res.ResolveDerivative(context.Background(), "NIFTY", DerivativeSpec{
			ContractType: models.InstrumentCall,
			StrikeStep:   50,
			Expiry:       expiry("2026-09-03"),
		})
		var catErr *apperrors.CatalogError
		if !errors.As(err, &catErr) {
			t.Fatalf("error = %v, want CatalogError", err)
		}
	})
}

func TestPickDeterministic(t *testing.T) {
	t.Run("ties break to smallest symbol", func(t *testing.T) {
		inst, err := pickDeterministic([]models.Instrument{
			{Symbol: "RELIANCE-B", Token: 2},
			{Symbol: "RELIANCE-A", Token: 1},
		})
		if err != nil {
			t.Fatalf("pickDeterministic returned error: %v", err)
		}
		if inst.Symbol != "RELIANCE-A" {
			t.Errorf("picked %s, want RELIANCE-A", inst.Symbol)
		}
	})

	t.Run("duplicate symbols are ambiguous", func(t *testing.T) {
		_, err := pickDeterministic([]models.Instrument{
			{Symbol: "RELIANCE", Token: 1},
			{Symbol: "RELIANCE", Token: 2},
		})
		if !errors.Is(err, apperrors.ErrAmbiguousInstrument) {
			t.Errorf("error = %v, want ErrAmbiguousInstrument", err)
		}
	})
}
