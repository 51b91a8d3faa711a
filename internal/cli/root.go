// Package cli provides the command-line interface for the bracket trader.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/broker"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/config"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/logging"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/notify"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Gateway  broker.Gateway
	Notifier *notify.Notifier
}

// zerodha returns the concrete Zerodha gateway, for the auth flows that
// are specific to it.
func (app *App) zerodha() (*broker.ZerodhaGateway, error) {
	zg, ok := app.Gateway.(*broker.ZerodhaGateway)
	if !ok {
		return nil, fmt.Errorf("broker not configured, check credentials.toml")
	}
	return zg, nil
}

// requireAuth returns the gateway or an error if no live session exists.
func (app *App) requireAuth() (broker.Gateway, error) {
	if app.Gateway == nil {
		return nil, fmt.Errorf("broker not configured, check credentials.toml")
	}
	if !app.Gateway.IsAuthenticated() {
		return nil, fmt.Errorf("not authenticated, run 'algo login' first")
	}
	return app.Gateway, nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Credentials.Zerodha.APIKey != "" {
		app.Gateway = broker.NewZerodhaGateway(broker.ZerodhaConfig{
			APIKey:    cfg.Credentials.Zerodha.APIKey,
			APISecret: cfg.Credentials.Zerodha.APISecret,
			UserID:    cfg.Credentials.Zerodha.UserID,
		})
		logger.Debug().Msg("Zerodha gateway initialized")
	}

	app.Notifier = notify.New(cfg.Notifications)

	rootCmd := &cobra.Command{
		Use:   "algo",
		Short: "Scheduled bracket-order automation for Zerodha",
		Long: `algo places a daily bracket order through Zerodha Kite Connect and
flattens the book at the end of the trading window.

A bracket is a market entry protected by a stop-loss and a target leg.
The schedule, instrument and offsets come from config.toml.

Use 'algo help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAuthCommands(rootCmd, app)
	rootCmd.AddCommand(newResolveCmd(app))
	rootCmd.AddCommand(newBracketCmd(app))
	rootCmd.AddCommand(newFlattenCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	addBookCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("algo v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading")
	output.Printf("  Default Product:  %s\n", cfg.Trading.DefaultProduct)
	output.Printf("  Default Exchange: %s\n", cfg.Trading.DefaultExchange)
	output.Println()

	output.Bold("Bracket")
	output.Printf("  Symbol:           %s\n", cfg.Bracket.Symbol)
	output.Printf("  Side:             %s\n", cfg.Bracket.Side)
	output.Printf("  Quantity:         %d\n", cfg.Bracket.Quantity)
	if cfg.IsDerivative() {
		output.Printf("  Contract:         %s step=%d expiry=%s\n",
			cfg.Bracket.ContractType, cfg.Bracket.StrikeStep, cfg.Bracket.Expiry)
	}
	output.Printf("  Stop %%:           %.1f%%\n", cfg.Bracket.StopPercent*100)
	output.Printf("  Target %%:         %.1f%%\n", cfg.Bracket.TargetPercent*100)
	output.Printf("  Fill Timeout:     %s\n", cfg.Bracket.FillTimeout)
	output.Println()

	output.Bold("Schedule")
	output.Printf("  Timezone:         %s\n", cfg.Schedule.Timezone)
	output.Printf("  Days:             %s\n", cfg.Schedule.Days)
	output.Printf("  Bracket At:       %s\n", cfg.Schedule.BracketAt)
	output.Printf("  Flatten At:       %s\n", cfg.Schedule.FlattenAt)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:         %v\n", cfg.Notifications.Telegram.Enabled)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  User ID:          %s\n", cfg.Credentials.Zerodha.UserID)
	output.Printf("  API Key:          %s\n", logging.MaskSecret(cfg.Credentials.Zerodha.APIKey))
	output.Printf("  API Secret:       %s\n", logging.MaskSecret(cfg.Credentials.Zerodha.APISecret))
}
