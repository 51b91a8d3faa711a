// Package bracket implements the bracket-order state machine: a market
// entry, a bounded fill poll, and the atomic derivation and submission of
// the protective stop-loss and target legs.
package bracket

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/logging"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

// Engine places bracket orders through a broker gateway. Callers must
// serialize invocations per tradingsymbol; the gateway provides no such
// guarantee and concurrent brackets on one instrument would double-protect
// or double-expose the position.
type Engine struct {
	gateway broker.Gateway
	logger  zerolog.Logger
	poll    utils.PollConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithPollConfig overrides the fill-poll timing.
func WithPollConfig(cfg utils.PollConfig) Option {
	return func(e *Engine) {
		e.poll = cfg
	}
}

// NewEngine creates a bracket engine.
func NewEngine(gateway broker.Gateway, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		gateway: gateway,
		logger:  logger.With().Str("component", "bracket").Logger(),
		poll:    utils.DefaultPollConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request describes one bracket placement.
type Request struct {
	Instrument    models.Instrument
	Exchange      models.Exchange
	Side          models.OrderSide
	Quantity      int
	Product       models.ProductType
	StopPercent   float64 // default 0.15
	TargetPercent float64 // default 0.15
}

const defaultOffsetPercent = 0.15

func (r *Request) applyDefaults() {
	if r.StopPercent == 0 {
		r.StopPercent = defaultOffsetPercent
	}
	if r.TargetPercent == 0 {
		r.TargetPercent = defaultOffsetPercent
	}
	if r.Product == "" {
		r.Product = models.ProductMIS
	}
	if r.Exchange == "" {
		r.Exchange = r.Instrument.Exchange
	}
}

// Place runs the full bracket sequence:
//
//  1. submit the market entry and obtain its order ID,
//  2. poll the order history with backoff until an average price appears,
//  3. derive the protective prices from the realized entry,
//  4. submit the stop-loss (SL) and target (LIMIT) legs on the opposite side.
//
// A timeout before any fill surfaces as FillTimeoutError with no protective
// legs placed. A leg failure after the fill surfaces as
// UnprotectedPositionError: the position is live and the caller must alert
// and flatten. The entry order itself is never retried or retracted.
func (e *Engine) Place(ctx context.Context, req Request) (*models.Bracket, error) {
	req.applyDefaults()
	if req.Quantity <= 0 {
		return nil, apperrors.ErrInvalidOrder
	}

	logger := logging.WithSymbol(e.logger, req.Instrument.Symbol)

	entryID, err := e.gateway.PlaceOrder(ctx, models.OrderRequest{
		Symbol:   req.Instrument.Symbol,
		Exchange: req.Exchange,
		Side:     req.Side,
		Type:     models.OrderTypeMarket,
		Product:  req.Product,
		Quantity: req.Quantity,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "placing entry order")
	}
	logging.LogOrder(logger, entryID, req.Instrument.Symbol, string(req.Side), "PLACED")

	entry, err := e.awaitFill(ctx, entryID, req.Instrument.Symbol)
	if err != nil {
		return nil, err
	}

	// The protective legs follow the side the exchange actually filled,
	// not the side that was requested.
	stop, target := DerivePrices(entry.Side, entry.AveragePrice, req.StopPercent, req.TargetPercent)
	exitSide := entry.Side.Opposite()

	logger.Info().
		Float64("entry_price", entry.AveragePrice).
		Float64("stop_price", stop).
		Float64("target_price", target).
		Str("exit_side", string(exitSide)).
		Msg("Entry filled, placing protective legs")

	slID, err := e.gateway.PlaceOrder(ctx, models.OrderRequest{
		Symbol:       req.Instrument.Symbol,
		Exchange:     req.Exchange,
		Side:         exitSide,
		Type:         models.OrderTypeStopLoss,
		Product:      req.Product,
		Quantity:     req.Quantity,
		Price:        stop,
		TriggerPrice: stop,
	})
	if err != nil {
		return nil, apperrors.NewUnprotectedPositionError(entryID, req.Instrument.Symbol, "stop_loss", err)
	}
	logging.LogOrder(logger, slID, req.Instrument.Symbol, string(exitSide), "SL PLACED")

	targetID, err := e.gateway.PlaceOrder(ctx, models.OrderRequest{
		Symbol:   req.Instrument.Symbol,
		Exchange: req.Exchange,
		Side:     exitSide,
		Type:     models.OrderTypeLimit,
		Product:  req.Product,
		Quantity: req.Quantity,
		Price:    target,
	})
	if err != nil {
		return nil, apperrors.NewUnprotectedPositionError(entryID, req.Instrument.Symbol, "target", err)
	}
	logging.LogOrder(logger, targetID, req.Instrument.Symbol, string(exitSide), "TARGET PLACED")

	logging.LogBracket(logger, req.Instrument.Symbol, entryID, slID, targetID, entry.AveragePrice, stop, target)

	return &models.Bracket{
		Entry:       entry,
		EntryPrice:  entry.AveragePrice,
		StopLoss:    models.Order{ID: slID, Symbol: req.Instrument.Symbol, Side: exitSide, Type: models.OrderTypeStopLoss},
		Target:      models.Order{ID: targetID, Symbol: req.Instrument.Symbol, Side: exitSide, Type: models.OrderTypeLimit},
		StopPrice:   stop,
		TargetPrice: target,
		PlacedAt:    time.Now(),
	}, nil
}

// awaitFill polls the entry order's history with exponential backoff until
// the latest snapshot carries an average price, or the poll window closes.
func (e *Engine) awaitFill(ctx context.Context, orderID, symbol string) (models.Order, error) {
	var latest models.Order
	started := time.Now()

	err := utils.Poll(ctx, e.poll, func() (bool, error) {
		history, err := e.gateway.GetOrderHistory(ctx, orderID)
		if err != nil {
			return false, apperrors.Wrap(err, "polling order history")
		}
		if len(history) == 0 {
			return false, nil
		}

		latest = history[len(history)-1]
		switch latest.Status {
		case models.StatusRejected, models.StatusCancelled:
			return false, apperrors.NewOrderError(orderID, symbol, "entry", errors.New("order "+latest.Status))
		}
		return latest.IsFilled(), nil
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Order{}, apperrors.NewFillTimeoutError(orderID, symbol, time.Since(started).Round(time.Millisecond))
		}
		return models.Order{}, err
	}

	return latest, nil
}

// DerivePrices computes the protective stop and target prices for a filled
// entry. For a BUY entry the stop sits below and the target above the entry
// price; for a SELL entry the two are mirrored, since profit on a short
// comes from the price falling.
func DerivePrices(entrySide models.OrderSide, entryPrice, stopPct, targetPct float64) (stop, target float64) {
	if entrySide == models.OrderSideSell {
		return entryPrice * (1 + stopPct), entryPrice * (1 - targetPct)
	}
	return entryPrice * (1 - stopPct), entryPrice * (1 + targetPct)
}
