// Package flatten returns the account to a flat, zero-exposure state by
// cancelling every working order and market-closing every net position.
package flatten

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// Flattener cancels residual orders and closes residual positions. It holds
// no state between invocations; re-running against an already-flat book is
// a no-op.
type Flattener struct {
	gateway broker.Gateway
	logger  zerolog.Logger
	product models.ProductType
}

// New creates a Flattener. Closing orders are placed with the given product
// type, matching what the bracket job trades.
func New(gateway broker.Gateway, product models.ProductType, logger zerolog.Logger) *Flattener {
	if product == "" {
		product = models.ProductMIS
	}
	return &Flattener{
		gateway: gateway,
		logger:  logger.With().Str("component", "flatten").Logger(),
		product: product,
	}
}

// FlattenAll cancels every OPEN or TRIGGER PENDING order, then closes every
// non-zero net position with an opposite market order. Per-item failures
// are collected in the report and never abort the pass; only a failed
// order-book or position-book fetch returns an error (BookError).
func (f *Flattener) FlattenAll(ctx context.Context) (models.FlattenReport, error) {
	var report models.FlattenReport

	orders, err := f.gateway.GetOrders(ctx)
	if err != nil {
		return report, apperrors.NewBookError("orders", err)
	}

	for _, order := range orders {
		if !order.IsOpen() {
			continue
		}

		variety := order.Variety
		if variety == "" {
			variety = broker.VarietyRegular
		}

		if err := f.gateway.CancelOrder(ctx, variety, order.ID); err != nil {
			f.logger.Error().Err(err).Str("order_id", order.ID).Str("symbol", order.Symbol).Msg("Cancel failed")
			report.CancelFailed = append(report.CancelFailed, models.FlattenFailure{
				Symbol:  order.Symbol,
				OrderID: order.ID,
				Reason:  err.Error(),
			})
			continue
		}

		f.logger.Info().Str("order_id", order.ID).Str("symbol", order.Symbol).Msg("Cancelled order")
		report.Cancelled = append(report.Cancelled, order.ID)
	}

	book, err := f.gateway.GetPositions(ctx)
	if err != nil {
		return report, apperrors.NewBookError("positions", err)
	}

	for _, pos := range book.Net {
		if pos.Quantity == 0 {
			continue
		}

		// SELL closes a long, BUY covers a short; never a hedge.
		side := models.OrderSideSell
		qty := pos.Quantity
		if qty < 0 {
			side = models.OrderSideBuy
			qty = -qty
		}

		orderID, err := f.gateway.PlaceOrder(ctx, models.OrderRequest{
			Symbol:   pos.Symbol,
			Exchange: pos.Exchange,
			Side:     side,
			Type:     models.OrderTypeMarket,
			Product:  f.closingProduct(pos),
			Quantity: qty,
		})
		if err != nil {
			f.logger.Error().Err(err).Str("symbol", pos.Symbol).Int("quantity", pos.Quantity).Msg("Close failed")
			report.CloseFailed = append(report.CloseFailed, models.FlattenFailure{
				Symbol: pos.Symbol,
				Reason: err.Error(),
			})
			continue
		}

		f.logger.Info().
			Str("symbol", pos.Symbol).
			Int("quantity", pos.Quantity).
			Str("order_id", orderID).
			Msg("Exited position")
		report.Closed = append(report.Closed, models.ClosedPosition{
			Symbol:   pos.Symbol,
			Exchange: pos.Exchange,
			Quantity: pos.Quantity,
			OrderID:  orderID,
		})
	}

	if report.Empty() {
		f.logger.Info().Msg("Book already flat, nothing to do")
	}

	return report, nil
}

// closingProduct uses the position's own product when the broker reports
// one, so an NRML overnight position is not squared off as MIS.
func (f *Flattener) closingProduct(pos models.Position) models.ProductType {
	if pos.Product != "" {
		return pos.Product
	}
	return f.product
}
