package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

// addBookCommands adds the order/position/trade inspection commands.
func addBookCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newOrdersCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
}

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show today's orders",
		Example: `  algo orders
  algo orders --open   # only working orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			orders, err := gateway.GetOrders(ctx)
			if err != nil {
				output.Error("Failed to fetch orders: %v", err)
				return err
			}

			openOnly, _ := cmd.Flags().GetBool("open")
			if openOnly {
				filtered := orders[:0]
				for _, o := range orders {
					if o.IsOpen() {
						filtered = append(filtered, o)
					}
				}
				orders = filtered
			}

			if output.IsJSON() {
				return output.JSON(orders)
			}

			if len(orders) == 0 {
				output.Info("No orders")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "SIDE", "TYPE", "QTY", "PRICE", "STATUS")
			for _, o := range orders {
				price := fmt.Sprintf("%.2f", o.Price)
				if o.AveragePrice > 0 {
					price = fmt.Sprintf("%.2f", o.AveragePrice)
				}
				status := o.Status
				switch {
				case o.IsFilled():
					status = output.Green(status)
				case o.IsOpen():
					status = output.Yellow(status)
				}
				table.AddRow(o.ID, o.Symbol, string(o.Side), string(o.Type),
					strconv.Itoa(o.Quantity), price, status)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Bool("open", false, "show only working orders")

	return cmd
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "positions",
		Short:   "Show net positions",
		Example: `  algo positions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			book, err := gateway.GetPositions(ctx)
			if err != nil {
				output.Error("Failed to fetch positions: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(book)
			}

			if len(book.Net) == 0 {
				output.Info("No positions")
				return nil
			}

			var totalPnL float64
			table := NewTable(output, "SYMBOL", "PRODUCT", "QTY", "AVG", "LTP", "P&L")
			for _, p := range book.Net {
				pnl := output.ColoredString(output.PnLColor(p.PnL), utils.FormatIndianCurrency(p.PnL))
				table.AddRow(p.Symbol, string(p.Product), utils.FormatQuantity(p.Quantity),
					fmt.Sprintf("%.2f", p.AveragePrice), fmt.Sprintf("%.2f", p.LTP), pnl)
				totalPnL += p.PnL
			}
			table.Render()
			output.Println()
			output.Printf("Total P&L: %s\n",
				output.ColoredString(output.PnLColor(totalPnL), utils.FormatIndianCurrency(totalPnL)))
			return nil
		},
	}
}

func newTradesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "trades",
		Short:   "Show today's trades",
		Example: `  algo trades`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			gateway, err := app.requireAuth()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			trades, err := gateway.GetTrades(ctx)
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "ORDER")
			for _, t := range trades {
				table.AddRow(t.FilledAt.Format("15:04:05"), t.Symbol, string(t.Side),
					strconv.Itoa(t.Quantity), fmt.Sprintf("%.2f", t.AveragePrice), t.OrderID)
			}
			table.Render()
			return nil
		},
	}
}
