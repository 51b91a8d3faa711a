package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/bracket"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/flatten"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/marketdata"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/resolver"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/scheduler"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily bracket schedule",
		Long: `Run the scheduler loop: place the configured bracket at the bracket
trigger time and flatten the book at the flatten trigger time, every
trading day, until interrupted.

Trigger times, the instrument and the offsets come from config.toml.`,
		Example: `  algo run
  algo run --once bracket   # fire the bracket job immediately and exit
  algo run --once flatten   # fire the flatten job immediately and exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration invalid: %v", err)
				return err
			}

			poll := utils.DefaultPollConfig()
			if app.Config.Bracket.FillTimeout > 0 {
				poll.Timeout = app.Config.Bracket.FillTimeout
			}
			if app.Config.Bracket.FillInterval > 0 {
				poll.Interval = app.Config.Bracket.FillInterval
			}
			engine := bracket.NewEngine(gateway, app.Logger, bracket.WithPollConfig(poll))
			flattener := flatten.New(gateway, models.ProductType(app.Config.Trading.DefaultProduct), app.Logger)
			res := resolver.New(gateway, marketdata.NewNSEClient(), app.Logger)

			runner := scheduler.NewRunner(app.Config, res, engine, flattener, app.Notifier, app.Logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			once, _ := cmd.Flags().GetString("once")
			switch once {
			case "bracket":
				return runner.BracketJob(ctx)
			case "flatten":
				return runner.FlattenJob(ctx)
			case "":
			default:
				output.Error("Unknown --once job %q, want bracket or flatten", once)
				return errors.New("unknown job")
			}

			sched, err := scheduler.New(app.Config.Schedule.Timezone, app.Config.Schedule.Days, app.Logger)
			if err != nil {
				output.Error("Scheduler init failed: %v", err)
				return err
			}
			for _, job := range runner.Jobs() {
				sched.Add(job)
			}

			output.Info("Scheduler running: bracket at %s, flatten at %s (%s, %s)",
				app.Config.Schedule.BracketAt, app.Config.Schedule.FlattenAt,
				app.Config.Schedule.Days, app.Config.Schedule.Timezone)
			output.Dim("Ctrl-C to stop")

			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			output.Info("Scheduler stopped")
			return nil
		},
	}

	cmd.Flags().String("once", "", "fire one job immediately and exit: bracket or flatten")

	return cmd
}
