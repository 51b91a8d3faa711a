package bracket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

func seededGateway(price float64) *broker.PaperGateway {
	gateway := broker.NewPaperGateway()
	gateway.SeedInstruments(models.NSE, []models.Instrument{
		{Token: 738561, Symbol: "RELIANCE", Name: "RELIANCE", Exchange: models.NSE, LotSize: 1},
	})
	gateway.SeedPrice(738561, price)
	return gateway
}

func fastPoll() Option {
	return WithPollConfig(utils.PollConfig{
		Timeout:       200 * time.Millisecond,
		Interval:      5 * time.Millisecond,
		MaxInterval:   20 * time.Millisecond,
		BackoffFactor: 1.5,
	})
}

func TestPlaceBuyBracket(t *testing.T) {
	gateway := seededGateway(100)
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	b, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	if b.EntryPrice != 100 {
		t.Errorf("entry price = %v, want 100", b.EntryPrice)
	}
	if b.StopPrice != 85 {
		t.Errorf("stop price = %v, want 85", b.StopPrice)
	}
	if b.TargetPrice != 115 {
		t.Errorf("target price = %v, want 115", b.TargetPrice)
	}
	if b.StopLoss.Side != models.OrderSideSell || b.Target.Side != models.OrderSideSell {
		t.Errorf("protective legs side = %s/%s, want SELL/SELL", b.StopLoss.Side, b.Target.Side)
	}

	orders, _ := gateway.GetOrders(context.Background())
	if len(orders) != 3 {
		t.Fatalf("order count = %d, want 3", len(orders))
	}
	for _, o := range orders {
		switch o.ID {
		case b.StopLoss.ID:
			if o.Type != models.OrderTypeStopLoss || o.TriggerPrice != 85 {
				t.Errorf("stop leg type=%s trigger=%v, want SL trigger 85", o.Type, o.TriggerPrice)
			}
		case b.Target.ID:
			if o.Type != models.OrderTypeLimit || o.Price != 115 {
				t.Errorf("target leg type=%s price=%v, want LIMIT price 115", o.Type, o.Price)
			}
		}
	}
}

func TestPlaceSellBracketMirrorsPrices(t *testing.T) {
	gateway := seededGateway(200)
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	b, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideSell,
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	// Short entry: stop above, target below
	if b.StopPrice != 230 {
		t.Errorf("stop price = %v, want 230", b.StopPrice)
	}
	if b.TargetPrice != 170 {
		t.Errorf("target price = %v, want 170", b.TargetPrice)
	}
	if b.StopLoss.Side != models.OrderSideBuy {
		t.Errorf("stop leg side = %s, want BUY", b.StopLoss.Side)
	}
}

func TestPlaceCustomOffsets(t *testing.T) {
	gateway := seededGateway(100)
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	b, err := engine.Place(context.Background(), Request{
		Instrument:    models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:          models.OrderSideBuy,
		Quantity:      5,
		StopPercent:   0.10,
		TargetPercent: 0.25,
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if b.StopPrice != 90 {
		t.Errorf("stop price = %v, want 90", b.StopPrice)
	}
	if b.TargetPrice != 125 {
		t.Errorf("target price = %v, want 125", b.TargetPrice)
	}
}

func TestPlaceInvalidQuantity(t *testing.T) {
	engine := NewEngine(seededGateway(100), zerolog.Nop(), fastPoll())

	_, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   0,
	})
	if !errors.Is(err, apperrors.ErrInvalidOrder) {
		t.Errorf("error = %v, want ErrInvalidOrder", err)
	}
}

func TestPlaceFillTimeoutLeavesNoLegs(t *testing.T) {
	gateway := seededGateway(100)
	gateway.SetFillDelay(-1) // entry never fills
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	_, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   10,
	})

	var timeout *apperrors.FillTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error = %v, want FillTimeoutError", err)
	}
	if timeout.Symbol != "RELIANCE" {
		t.Errorf("timeout symbol = %s, want RELIANCE", timeout.Symbol)
	}

	// Only the unfilled entry may be on the book; no protective legs.
	orders, _ := gateway.GetOrders(context.Background())
	if len(orders) != 1 {
		t.Errorf("order count after timeout = %d, want 1", len(orders))
	}
}

func TestPlaceStopLegFailureIsUnprotected(t *testing.T) {
	gateway := seededGateway(100)
	gateway.FailPlaceOrderType(models.OrderTypeStopLoss, errors.New("rms rejection"))
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	_, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   10,
	})

	var unprotected *apperrors.UnprotectedPositionError
	if !errors.As(err, &unprotected) {
		t.Fatalf("error = %v, want UnprotectedPositionError", err)
	}
	if unprotected.Leg != "stop_loss" {
		t.Errorf("failed leg = %s, want stop_loss", unprotected.Leg)
	}
	if unprotected.EntryOrderID == "" {
		t.Error("entry order ID missing from error")
	}

	// The position is live even though the bracket failed.
	book, _ := gateway.GetPositions(context.Background())
	if len(book.Net) != 1 || book.Net[0].Quantity != 10 {
		t.Errorf("net position = %+v, want 10 x RELIANCE", book.Net)
	}
}

func TestPlaceTargetLegFailureIsUnprotected(t *testing.T) {
	gateway := seededGateway(100)
	gateway.FailPlaceOrderType(models.OrderTypeLimit, errors.New("rms rejection"))
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	_, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   10,
	})

	var unprotected *apperrors.UnprotectedPositionError
	if !errors.As(err, &unprotected) {
		t.Fatalf("error = %v, want UnprotectedPositionError", err)
	}
	if unprotected.Leg != "target" {
		t.Errorf("failed leg = %s, want target", unprotected.Leg)
	}
}

func TestPlaceEntryFillsAfterDelay(t *testing.T) {
	gateway := seededGateway(100)
	gateway.SetFillDelay(3) // fills on the third history poll
	engine := NewEngine(gateway, zerolog.Nop(), fastPoll())

	b, err := engine.Place(context.Background(), Request{
		Instrument: models.Instrument{Symbol: "RELIANCE", Exchange: models.NSE},
		Side:       models.OrderSideBuy,
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if b.EntryPrice != 100 {
		t.Errorf("entry price = %v, want 100", b.EntryPrice)
	}
}
