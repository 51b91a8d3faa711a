package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/bracket"
	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/flatten"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/marketdata"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/resolver"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

func newResolveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <symbol>",
		Short: "Resolve a symbol to a tradable instrument",
		Long: `Resolve an equity symbol or derivative underlying to a concrete
tradable instrument.

For derivatives, pass --type, --step and --expiry together: the contract
traded sits one strike step above the underlying's spot price rounded to
the step grid.`,
		Example: `  algo resolve RELIANCE
  algo resolve NIFTY --type CE --step 50 --expiry 2026-09-03
  algo resolve BANKNIFTY --type FUT --step 100 --expiry 2026-09-24`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			res := resolver.New(gateway, marketdata.NewNSEClient(), app.Logger)

			contractType, _ := cmd.Flags().GetString("type")
			var inst models.Instrument
			if contractType == "" {
				inst, err = res.ResolveEquity(ctx, args[0])
			} else {
				step, _ := cmd.Flags().GetInt("step")
				expiryStr, _ := cmd.Flags().GetString("expiry")
				expiry, perr := time.ParseInLocation("2006-01-02", expiryStr, time.Local)
				if perr != nil {
					output.Error("Invalid --expiry %q, want YYYY-MM-DD", expiryStr)
					return perr
				}
				inst, err = res.ResolveDerivative(ctx, args[0], resolver.DerivativeSpec{
					ContractType: models.InstrumentType(contractType),
					StrikeStep:   step,
					Expiry:       expiry,
				})
			}
			if err != nil {
				output.Error("Resolution failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(inst)
			}

			output.Bold("Instrument")
			output.Printf("  Symbol:    %s\n", inst.Symbol)
			output.Printf("  Exchange:  %s\n", inst.Exchange)
			output.Printf("  Token:     %d\n", inst.Token)
			output.Printf("  Lot Size:  %d\n", inst.LotSize)
			output.Printf("  Tick Size: %.2f\n", inst.TickSize)
			if inst.IsDerivative() {
				output.Printf("  Type:      %s\n", inst.Type)
				output.Printf("  Strike:    %.2f\n", inst.Strike)
				output.Printf("  Expiry:    %s\n", inst.Expiry.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "contract type: CE, PE or FUT (equity if omitted)")
	cmd.Flags().Int("step", 0, "strike step for the derivative chain")
	cmd.Flags().String("expiry", "", "contract expiry, YYYY-MM-DD")

	return cmd
}

func newBracketCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bracket <symbol>",
		Short: "Place a bracket order now",
		Long: `Place a market entry and protect it with a stop-loss and a target leg.

The entry fills first; the protective prices are derived from the actual
fill price using the configured stop and target offsets.`,
		Example: `  algo bracket RELIANCE --side BUY --qty 10
  algo bracket NIFTY --side SELL --type PE --step 50 --expiry 2026-09-03
  algo bracket INFY --side BUY --qty 5 --stop 0.10 --target 0.20 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			res := resolver.New(gateway, marketdata.NewNSEClient(), app.Logger)

			contractType, _ := cmd.Flags().GetString("type")
			var inst models.Instrument
			if contractType == "" {
				inst, err = res.ResolveEquity(ctx, args[0])
			} else {
				step, _ := cmd.Flags().GetInt("step")
				expiryStr, _ := cmd.Flags().GetString("expiry")
				expiry, perr := time.ParseInLocation("2006-01-02", expiryStr, time.Local)
				if perr != nil {
					output.Error("Invalid --expiry %q, want YYYY-MM-DD", expiryStr)
					return perr
				}
				inst, err = res.ResolveDerivative(ctx, args[0], resolver.DerivativeSpec{
					ContractType: models.InstrumentType(contractType),
					StrikeStep:   step,
					Expiry:       expiry,
				})
			}
			if err != nil {
				output.Error("Resolution failed: %v", err)
				return err
			}

			side, _ := cmd.Flags().GetString("side")
			qty, _ := cmd.Flags().GetInt("qty")
			stop, _ := cmd.Flags().GetFloat64("stop")
			target, _ := cmd.Flags().GetFloat64("target")
			product, _ := cmd.Flags().GetString("product")

			if qty <= 0 {
				qty = inst.LotSize
			}

			if !utils.IsMarketOpen(time.Now()) {
				output.Warning("Market appears closed, the entry may queue until the next session")
			}

			engine := bracket.NewEngine(gateway, app.Logger)
			output.Info("Placing %s %d x %s...", side, qty, inst.Symbol)

			b, err := engine.Place(ctx, bracket.Request{
				Instrument:    inst,
				Exchange:      inst.Exchange,
				Side:          models.OrderSide(side),
				Quantity:      qty,
				Product:       models.ProductType(product),
				StopPercent:   stop,
				TargetPercent: target,
			})
			if err != nil {
				var unprotected *apperrors.UnprotectedPositionError
				if errors.As(err, &unprotected) {
					app.Notifier.SendUnprotected(ctx, unprotected.Symbol, unprotected.EntryOrderID, unprotected.Leg, unprotected.Err)
					output.Error("POSITION IS UNPROTECTED: %v", err)
					output.Warning("Close the position or place the %s leg manually.", unprotected.Leg)
				} else {
					output.Error("Bracket failed: %v", err)
				}
				return err
			}

			app.Notifier.SendBracket(ctx, b)

			if output.IsJSON() {
				output.JSON(b)
			} else {
				printBracket(output, b)
			}

			watch, _ := cmd.Flags().GetBool("watch")
			if !watch {
				return nil
			}

			output.Info("Watching legs, Ctrl-C to stop...")
			result, err := engine.Watch(ctx, b, bracket.WatchConfig{})
			if err != nil {
				output.Error("Watch failed: %v", err)
				return err
			}
			if result.ExecutedLeg != "" {
				output.Success("%s leg executed (order %s)", result.ExecutedLeg, result.ExecutedID)
				if result.CancelFailed {
					output.Warning("Could not cancel the sibling leg, cancel it manually")
				}
			} else {
				output.Info("Both legs left the book")
			}
			return nil
		},
	}

	cmd.Flags().String("side", "BUY", "entry side: BUY or SELL")
	cmd.Flags().Int("qty", 0, "quantity (defaults to one lot)")
	cmd.Flags().Float64("stop", 0, "stop-loss offset fraction (default 0.15)")
	cmd.Flags().Float64("target", 0, "target offset fraction (default 0.15)")
	cmd.Flags().String("product", "MIS", "product type: MIS, CNC, NRML")
	cmd.Flags().String("type", "", "contract type: CE, PE or FUT (equity if omitted)")
	cmd.Flags().Int("step", 0, "strike step for the derivative chain")
	cmd.Flags().String("expiry", "", "contract expiry, YYYY-MM-DD")
	cmd.Flags().Bool("watch", false, "watch the legs and cancel the sibling on execution")

	return cmd
}

func printBracket(output *Output, b *models.Bracket) {
	output.Success("Bracket placed")
	output.Printf("  Entry:   %s filled @ %s\n", b.Entry.ID, utils.FormatIndianCurrency(b.EntryPrice))
	output.Printf("  Stop:    %s @ %s\n", b.StopLoss.ID, utils.FormatIndianCurrency(b.StopPrice))
	output.Printf("  Target:  %s @ %s\n", b.Target.ID, utils.FormatIndianCurrency(b.TargetPrice))
}

func newFlattenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten",
		Short: "Cancel working orders and close net positions",
		Long: `Cancel every open or trigger-pending order, then close every non-zero
net position with an opposing market order.

Failures on individual orders or positions are reported but do not stop
the sweep.`,
		Example: `  algo flatten`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			flattener := flatten.New(gateway, models.ProductType(app.Config.Trading.DefaultProduct), app.Logger)
			report, err := flattener.FlattenAll(ctx)
			if err != nil {
				output.Error("Flatten failed: %v", err)
				return err
			}

			if !report.Empty() {
				app.Notifier.SendFlattenReport(ctx, report)
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			if report.Empty() {
				output.Info("Nothing to do: no working orders, no open positions")
				return nil
			}

			for _, id := range report.Cancelled {
				output.Success("Cancelled order %s", id)
			}
			for _, f := range report.CancelFailed {
				output.Error("Cancel failed for %s: %s", f.OrderID, f.Reason)
			}
			for _, c := range report.Closed {
				output.Success("Closed %d x %s (order %s)", c.Quantity, c.Symbol, c.OrderID)
			}
			for _, f := range report.CloseFailed {
				output.Error("Close failed for %s: %s", f.Symbol, f.Reason)
			}

			if len(report.CancelFailed) > 0 || len(report.CloseFailed) > 0 {
				return fmt.Errorf("flatten completed with failures")
			}
			return nil
		},
	}
}
