package bracket

import (
	"context"
	"time"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// WatchConfig controls the protective-leg watcher.
type WatchConfig struct {
	Interval time.Duration // poll period, default 5s
}

// WatchResult reports how a watched bracket concluded.
type WatchResult struct {
	ExecutedLeg  string // "stop_loss" or "target"
	ExecutedID   string
	CancelledID  string
	CancelFailed bool
}

// Watch polls both protective legs and cancels the sibling once one of
// them completes. The exchange does not pair the two legs itself, so
// without this loop a filled target would leave the stop working against a
// flat book. Watch returns when the bracket concludes, both legs have left
// the book some other way, or ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, b *models.Bracket, cfg WatchConfig) (*WatchResult, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, done, err := e.checkLegs(ctx, b)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkLegs reads both legs' latest snapshots and resolves the bracket if
// either has completed. Both legs gone without a fill (manual cancel,
// square-off) also concludes the watch.
func (e *Engine) checkLegs(ctx context.Context, b *models.Bracket) (*WatchResult, bool, error) {
	sl, err := e.latestState(ctx, b.StopLoss.ID)
	if err != nil {
		return nil, false, err
	}
	target, err := e.latestState(ctx, b.Target.ID)
	if err != nil {
		return nil, false, err
	}

	if sl.Status == models.StatusComplete {
		return e.resolve(ctx, b, "stop_loss", sl, target), true, nil
	}
	if target.Status == models.StatusComplete {
		return e.resolve(ctx, b, "target", target, sl), true, nil
	}

	if !sl.IsOpen() && !target.IsOpen() {
		e.logger.Warn().
			Str("sl_status", sl.Status).
			Str("target_status", target.Status).
			Msg("Both protective legs left the book without a fill")
		return &WatchResult{}, true, nil
	}

	return nil, false, nil
}

func (e *Engine) resolve(ctx context.Context, b *models.Bracket, leg string, executed, sibling models.Order) *WatchResult {
	result := &WatchResult{
		ExecutedLeg: leg,
		ExecutedID:  executed.ID,
	}

	if !sibling.IsOpen() {
		return result
	}

	variety := sibling.Variety
	if variety == "" {
		variety = broker.VarietyRegular
	}
	if err := e.gateway.CancelOrder(ctx, variety, sibling.ID); err != nil {
		result.CancelFailed = true
		e.logger.Error().
			Err(err).
			Str("executed_leg", leg).
			Str("sibling_order_id", sibling.ID).
			Msg("Failed to cancel sibling leg after execution")
		return result
	}

	result.CancelledID = sibling.ID
	e.logger.Info().
		Str("executed_leg", leg).
		Str("executed_order_id", executed.ID).
		Str("cancelled_order_id", sibling.ID).
		Msg("Bracket resolved, sibling cancelled")
	return result
}

func (e *Engine) latestState(ctx context.Context, orderID string) (models.Order, error) {
	history, err := e.gateway.GetOrderHistory(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if len(history) == 0 {
		return models.Order{ID: orderID}, nil
	}
	return history[len(history)-1], nil
}
