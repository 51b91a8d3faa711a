package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/bracket"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/config"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/flatten"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/notify"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/resolver"
)

// Runner binds the configured strategy to the two scheduled jobs.
type Runner struct {
	cfg           *config.Config
	resolver      *resolver.Resolver
	engine        *bracket.Engine
	flat          *flatten.Flattener
	notifier      *notify.Notifier
	locks         *SymbolLock
	watchInterval time.Duration
	logger        zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, res *resolver.Resolver, engine *bracket.Engine, flat *flatten.Flattener, notifier *notify.Notifier, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:           cfg,
		resolver:      res,
		engine:        engine,
		flat:          flat,
		notifier:      notifier,
		locks:         NewSymbolLock(),
		watchInterval: 5 * time.Second,
		logger:        logger.With().Str("component", "runner").Logger(),
	}
}

// BracketJob resolves the configured instrument, places the bracket and
// watches its legs until one executes or the job is cancelled. Returns
// ErrJobOverlap when the previous run for the same symbol is still live.
func (r *Runner) BracketJob(ctx context.Context) error {
	symbol := r.cfg.Bracket.Symbol

	if !r.locks.TryAcquire(symbol) {
		r.logger.Warn().Str("symbol", symbol).Msg("Previous bracket still running, skipping trigger")
		return apperrors.Wrapf(apperrors.ErrJobOverlap, "bracket %s", symbol)
	}
	defer r.locks.Release(symbol)

	inst, err := r.resolveConfigured(ctx)
	if err != nil {
		r.logger.Error().Err(err).Str("symbol", symbol).Msg("Instrument resolution failed")
		return err
	}

	req := bracket.Request{
		Instrument:    inst,
		Exchange:      inst.Exchange,
		Side:          models.OrderSide(r.cfg.Bracket.Side),
		Quantity:      r.quantity(inst),
		Product:       models.ProductType(r.cfg.Trading.DefaultProduct),
		StopPercent:   r.cfg.Bracket.StopPercent,
		TargetPercent: r.cfg.Bracket.TargetPercent,
	}

	b, err := r.engine.Place(ctx, req)
	if err != nil {
		var unprotected *apperrors.UnprotectedPositionError
		if errors.As(err, &unprotected) {
			r.notifier.SendUnprotected(ctx, unprotected.Symbol, unprotected.EntryOrderID, unprotected.Leg, unprotected.Err)
		}
		return err
	}
	r.notifier.SendBracket(ctx, b)

	result, err := r.engine.Watch(ctx, b, bracket.WatchConfig{Interval: r.watchInterval})
	if err != nil {
		return err
	}
	if result.ExecutedLeg != "" {
		r.logger.Info().
			Str("leg", result.ExecutedLeg).
			Str("order_id", result.ExecutedID).
			Bool("cancel_failed", result.CancelFailed).
			Msg("Bracket concluded")
	}
	return nil
}

// FlattenJob cancels working orders and closes net positions.
func (r *Runner) FlattenJob(ctx context.Context) error {
	report, err := r.flat.FlattenAll(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Flatten failed")
		return err
	}
	if !report.Empty() {
		r.notifier.SendFlattenReport(ctx, report)
	}
	return nil
}

// Jobs returns the two scheduled jobs for registration.
func (r *Runner) Jobs() []Job {
	return []Job{
		{
			Name: "bracket",
			At:   r.cfg.Schedule.BracketAt,
			Run:  func(ctx context.Context) { r.BracketJob(ctx) },
		},
		{
			Name: "flatten",
			At:   r.cfg.Schedule.FlattenAt,
			Run:  func(ctx context.Context) { r.FlattenJob(ctx) },
		},
	}
}

func (r *Runner) resolveConfigured(ctx context.Context) (models.Instrument, error) {
	if !r.cfg.IsDerivative() {
		return r.resolver.ResolveEquity(ctx, r.cfg.Bracket.Symbol)
	}

	expiry, err := time.ParseInLocation("2006-01-02", r.cfg.Bracket.Expiry, time.Local)
	if err != nil {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrConfigInvalid, "expiry %q", r.cfg.Bracket.Expiry)
	}

	return r.resolver.ResolveDerivative(ctx, r.cfg.Bracket.Symbol, resolver.DerivativeSpec{
		ContractType: models.InstrumentType(r.cfg.Bracket.ContractType),
		StrikeStep:   r.cfg.Bracket.StrikeStep,
		Expiry:       expiry,
	})
}

// quantity rounds the configured quantity up to the next whole lot; the
// exchange rejects F&O orders that are not lot multiples.
func (r *Runner) quantity(inst models.Instrument) int {
	qty := r.cfg.Bracket.Quantity
	if inst.LotSize <= 1 {
		return qty
	}
	if qty <= inst.LotSize {
		return inst.LotSize
	}
	if rem := qty % inst.LotSize; rem != 0 {
		qty += inst.LotSize - rem
	}
	return qty
}
