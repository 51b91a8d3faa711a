package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newAutoLoginCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newAuthStatusCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to Zerodha Kite Connect",
		Long: `Login to Zerodha Kite Connect.

If password and TOTP secret are configured in credentials.toml, this will
automatically use auto-login (no browser required).

Otherwise, it will open a browser window for OAuth authentication.`,
		Example: `  algo login
  algo login --browser        # Force browser OAuth flow
  algo login --token=<token>  # Complete login with token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			zg, err := app.zerodha()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if zg.IsAuthenticated() {
				return showLoginStatus(app, output)
			}

			token, _ := cmd.Flags().GetString("token")
			if token != "" {
				return completeLogin(ctx, app, output, token)
			}

			forceBrowser, _ := cmd.Flags().GetBool("browser")

			password := app.Config.Credentials.Zerodha.Password
			totpSecret := app.Config.Credentials.Zerodha.TOTPSecret

			if !forceBrowser && password != "" && totpSecret != "" {
				output.Info("Auto-login credentials found, attempting auto-login...")
				if err := zg.AutoLogin(ctx, password, totpSecret); err == nil {
					output.Success("Login successful!")
					return showLoginStatus(app, output)
				} else {
					output.Warning("Auto-login failed: %v", err)
					output.Info("Falling back to browser login...")
					output.Println()
				}
			}

			loginURL := zg.GetLoginURL()
			output.Info("Opening Zerodha login page...")
			output.Println()
			output.Bold("Login URL:")
			output.Println(loginURL)
			output.Println()

			if err := openURL(loginURL); err != nil {
				output.Warning("Could not open browser automatically")
			}

			output.Info("After logging in, you'll be redirected to a URL like:")
			output.Dim("  https://your-redirect-url.com/?request_token=XXXXXX&status=success")
			output.Println()
			output.Bold("Paste the request_token value here:")

			reader := bufio.NewReader(os.Stdin)
			fmt.Print("> ")
			inputToken, _ := reader.ReadString('\n')
			inputToken = strings.TrimSpace(inputToken)

			if inputToken == "" {
				output.Error("No token provided")
				return fmt.Errorf("no token provided")
			}

			return completeLogin(ctx, app, output, inputToken)
		},
	}

	cmd.Flags().Bool("browser", false, "Force browser OAuth flow (skip auto-login)")
	cmd.Flags().String("token", "", "Request token from redirect URL")

	return cmd
}

func completeLogin(ctx context.Context, app *App, output *Output, token string) error {
	output.Info("Completing login with token...")

	zg, err := app.zerodha()
	if err != nil {
		output.Error("%v", err)
		return err
	}

	if err := zg.CompleteLogin(ctx, token); err != nil {
		output.Error("Login failed: %v", err)
		return err
	}

	output.Success("Login successful!")
	return showLoginStatus(app, output)
}

// showLoginStatus displays session info after login.
func showLoginStatus(app *App, output *Output) error {
	output.Println()
	output.Bold("Account")
	output.Printf("  User ID:    %s\n", app.Config.Credentials.Zerodha.UserID)
	output.Println()

	now := time.Now().In(utils.IndiaLocation)
	expiry := sessionExpiry(now)

	output.Bold("Session")
	output.Printf("  Expires:    %s (%s remaining)\n",
		expiry.Format("02 Jan 2006, 03:04 PM"),
		formatDuration(expiry.Sub(now)))

	if app.Config.Credentials.Zerodha.Password != "" && app.Config.Credentials.Zerodha.TOTPSecret != "" {
		output.Printf("  Auto-login: %s\n", output.Green("configured"))
	} else {
		output.Printf("  Auto-login: %s\n", output.Yellow("not configured"))
	}

	return nil
}

// sessionExpiry returns the next 6 AM IST; Kite sessions die daily around
// that time.
func sessionExpiry(now time.Time) time.Time {
	expiry := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, utils.IndiaLocation)
	if !expiry.After(now) {
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from Zerodha Kite Connect",
		Long: `Invalidate the current session and clear stored tokens.

You will need to login again to use trading features.`,
		Example: `  algo logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Gateway == nil || !app.Gateway.IsAuthenticated() {
				output.Warning("Not currently logged in.")
				return nil
			}

			output.Info("Logging out...")

			if err := app.Gateway.Logout(ctx); err != nil {
				output.Error("Logout failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"success":   true,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}

			output.Success("Logged out successfully!")
			output.Dim("Session tokens have been cleared.")

			return nil
		},
	}
}

func newAutoLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "autologin",
		Short: "Auto-login using TOTP (no browser required)",
		Long: `Automatically login to Zerodha using stored password and TOTP secret.

This requires password and totp_secret to be configured in credentials.toml:

[zerodha]
api_key = "your_api_key"
api_secret = "your_api_secret"
user_id = "your_user_id"
password = "your_kite_password"
totp_secret = "your_totp_secret"

To get your TOTP secret:
1. Go to Zerodha Console > My Profile > Password & Security
2. Enable TOTP if not already enabled
3. When setting up, copy the secret key (not the QR code)
4. Add it to credentials.toml`,
		Example: `  algo autologin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			zg, err := app.zerodha()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if zg.IsAuthenticated() {
				return showLoginStatus(app, output)
			}

			password := app.Config.Credentials.Zerodha.Password
			totpSecret := app.Config.Credentials.Zerodha.TOTPSecret

			if password == "" || totpSecret == "" {
				output.Error("Auto-login requires password and totp_secret in credentials.toml")
				return fmt.Errorf("credentials not configured for auto-login")
			}

			output.Info("Performing auto-login...")

			if err := zg.AutoLogin(ctx, password, totpSecret); err != nil {
				output.Error("Auto-login failed: %v", err)
				output.Println()
				output.Info("Try manual login: algo login")
				return err
			}

			output.Success("Login successful!")
			return showLoginStatus(app, output)
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-status",
		Short: "Check authentication status",
		Long:  "Display current authentication status and session expiry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Gateway == nil {
				output.Error("Broker not configured")
				return nil
			}

			if !app.Gateway.IsAuthenticated() {
				output.Warning("Not authenticated")
				output.Println()
				output.Info("Run 'algo login' or 'algo autologin' to authenticate")
				return nil
			}

			output.Success("Authenticated")
			output.Println()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			// A cheap authenticated call to confirm the session is live
			if _, err := app.Gateway.GetOrders(ctx); err != nil {
				output.Warning("Session may be expired: %v", err)
				output.Info("Run 'algo login' or 'algo autologin' to re-authenticate")
				return nil
			}

			return showLoginStatus(app, output)
		},
	}
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
