package bracket

import (
	"context"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/logging"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// AdjustStop moves a live stop-loss leg to a new trigger price, e.g. to
// trail a position that has moved favorably. The target leg is left alone.
func (e *Engine) AdjustStop(ctx context.Context, b *models.Bracket, price float64) error {
	if price <= 0 {
		return apperrors.ErrInvalidOrder
	}

	err := e.gateway.ModifyOrder(ctx, b.StopLoss.ID, broker.OrderModification{
		Price:        price,
		TriggerPrice: price,
	})
	if err != nil {
		return apperrors.Wrap(err, "adjusting stop leg")
	}

	logger := logging.WithOrderID(e.logger, b.StopLoss.ID)
	logger.Info().
		Float64("old_stop", b.StopPrice).
		Float64("new_stop", price).
		Msg("Stop leg adjusted")
	b.StopPrice = price

	return nil
}
