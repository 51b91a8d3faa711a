package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/bracket"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/config"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/flatten"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/notify"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/resolver"
)

type staticQuoter struct{ value float64 }

func (q staticQuoter) UnderlyingValue(ctx context.Context, symbol string) (float64, error) {
	return q.value, nil
}

func newTestRunner(gateway *broker.PaperGateway, cfg *config.Config) *Runner {
	logger := zerolog.Nop()
	return NewRunner(cfg,
		resolver.New(gateway, staticQuoter{value: 100}, logger),
		bracket.NewEngine(gateway, logger),
		flatten.New(gateway, models.ProductMIS, logger),
		notify.New(config.NotificationConfig{}),
		logger)
}

func equityConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{DefaultProduct: "MIS", DefaultExchange: "NSE"},
		Bracket: config.BracketConfig{
			Symbol:   "RELIANCE",
			Side:     "BUY",
			Quantity: 10,
		},
	}
}

func TestBracketJobSkipsOverlappingTrigger(t *testing.T) {
	gateway := broker.NewPaperGateway()
	runner := newTestRunner(gateway, equityConfig())

	if !runner.locks.TryAcquire("RELIANCE") {
		t.Fatal("could not take the symbol lock")
	}
	defer runner.locks.Release("RELIANCE")

	err := runner.BracketJob(context.Background())
	if !errors.Is(err, apperrors.ErrJobOverlap) {
		t.Errorf("error = %v, want ErrJobOverlap", err)
	}

	// Nothing was placed while the previous run held the symbol
	orders, _ := gateway.GetOrders(context.Background())
	if len(orders) != 0 {
		t.Errorf("order count = %d, want 0", len(orders))
	}
}

func TestBracketJobReleasesLockAfterRun(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NSE, []models.Instrument{
		{Token: 738561, Symbol: "RELIANCE", Name: "RELIANCE", Exchange: models.NSE, LotSize: 1},
	})
	gateway.SeedPrice(738561, 100)
	runner := newTestRunner(gateway, equityConfig())
	runner.watchInterval = 10 * time.Millisecond

	ctx := context.Background()

	// Place and resolve one bracket end to end; the watch concludes when
	// the target leg is marked complete from a second goroutine.
	done := make(chan error, 1)
	go func() { done <- runner.BracketJob(ctx) }()

	// The job holds the lock while the watch loop runs. Completing the
	// target leg lets it finish.
	waitForLeg(t, gateway)
	if err := <-done; err != nil {
		t.Fatalf("BracketJob returned error: %v", err)
	}

	if !runner.locks.TryAcquire("RELIANCE") {
		t.Error("lock still held after the job returned")
	}
}

// waitForLeg waits for the target leg to appear, then marks it complete so
// the watch loop can resolve.
func waitForLeg(t *testing.T, gateway *broker.PaperGateway) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		orders, _ := gateway.GetOrders(context.Background())
		for _, o := range orders {
			if o.Type == models.OrderTypeLimit && o.IsOpen() {
				o.Status = models.StatusComplete
				gateway.SeedOrder(o)
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("target leg never appeared")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFlattenJobReportsCleanly(t *testing.T) {
	gateway := broker.NewPaperGateway()
	gateway.SeedPosition(models.Position{
		Symbol: "RELIANCE", Exchange: models.NSE, Product: models.ProductMIS, Quantity: 10,
	})
	runner := newTestRunner(gateway, equityConfig())

	if err := runner.FlattenJob(context.Background()); err != nil {
		t.Fatalf("FlattenJob returned error: %v", err)
	}

	book, _ := gateway.GetPositions(context.Background())
	for _, pos := range book.Net {
		if pos.Quantity != 0 {
			t.Errorf("%s quantity = %d, want 0", pos.Symbol, pos.Quantity)
		}
	}
}

func TestQuantityRoundsUpToLotMultiple(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		lotSize    int
		want       int
	}{
		{"equity passes through", 7, 1, 7},
		{"sub-lot bumps to one lot", 10, 50, 50},
		{"exact lot unchanged", 50, 50, 50},
		{"between lots rounds up", 80, 50, 100},
		{"exact multiple unchanged", 150, 50, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := equityConfig()
			cfg.Bracket.Quantity = tt.configured
			runner := newTestRunner(broker.NewPaperGateway(), cfg)

			got := runner.quantity(models.Instrument{LotSize: tt.lotSize})
			if got != tt.want {
				t.Errorf("quantity(lot %d, configured %d) = %d, want %d",
					tt.lotSize, tt.configured, got, tt.want)
			}
		})
	}
}

func TestRunnerDerivativeConfigValidation(t *testing.T) {
	gateway := broker.NewPaperGateway()
	cfg := equityConfig()
	cfg.Bracket.ContractType = "CE"
	cfg.Bracket.StrikeStep = 50
	cfg.Bracket.Expiry = "not-a-date"
	runner := newTestRunner(gateway, cfg)

	err := runner.BracketJob(context.Background())
	if !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("error = %v, want ErrConfigInvalid", err)
	}
}
