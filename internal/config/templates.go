package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# simple-algo Configuration

[trading]
# Default product type: MIS, CNC, NRML
default_product = "MIS"
# Default exchange: NSE, BSE
default_exchange = "NSE"

[bracket]
# Underlying symbol (equity tradingsymbol, or index/underlying name for F&O)
symbol = ""
# Entry side: BUY or SELL
side = "BUY"
quantity = 1
# Leave the three fields below empty/zero for cash-market equities.
# Set all three together for an option or future.
contract_type = ""
strike_step = 0
expiry = ""
# Protective offsets as fractions of the entry price
stop_percent = 0.15
target_percent = 0.15
# Entry fill polling
fill_timeout = "10s"
fill_interval = "500ms"

[schedule]
timezone = "Asia/Kolkata"
days = "mon-sat"
bracket_at = "16:02"
flatten_at = "16:03"

[notifications]
enabled = false
# all, errors_only
level = "errors_only"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# simple-algo Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[zerodha]
api_key = ""
api_secret = ""
user_id = ""
# Optional: enable TOTP auto-login (no browser needed for the daily session)
password = ""
totp_secret = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	fmt.Printf("Created template config: %s\n", path)
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	fmt.Printf("Created template credentials: %s\n", path)
	fmt.Println("Edit this file to add your Zerodha API credentials.")
	return nil
}
