// Package notify provides notification functionality for the trading
// application. It is the out-of-band alert path for conditions that leave
// real capital exposed, distinct from ordinary logging.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/config"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification represents a notification message.
type Notification struct {
	Severity  Severity
	Title     string
	Message   string
	Timestamp time.Time
}

// Channel is one delivery mechanism for notifications.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Notifier fans a notification out to every configured channel.
type Notifier struct {
	channels []Channel
	level    string // all, errors_only
	mu       sync.RWMutex
}

// New builds a Notifier from configuration. With notifications disabled or
// no channel configured it still works and simply delivers nowhere.
func New(cfg config.NotificationConfig) *Notifier {
	n := &Notifier{level: cfg.Level}
	if !cfg.Enabled {
		return n
	}

	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		n.channels = append(n.channels, NewWebhookChannel(cfg.Webhook.URL))
	}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		n.channels = append(n.channels, NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}

	return n
}

// AddChannel registers an extra delivery channel.
func (n *Notifier) AddChannel(c Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, c)
}

// Send delivers a notification to every channel, continuing past per-channel
// failures and returning the first error encountered.
func (n *Notifier) Send(ctx context.Context, notification Notification) error {
	if n.level == "errors_only" && notification.Severity == SeverityInfo {
		return nil
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	n.mu.RLock()
	channels := make([]Channel, len(n.channels))
	copy(channels, n.channels)
	n.mu.RUnlock()

	var firstErr error
	for _, c := range channels {
		if err := c.Send(ctx, notification); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("channel %s: %w", c.Name(), err)
		}
	}
	return firstErr
}

// SendUnprotected raises the critical alert for an entry that filled
// without its protective legs.
func (n *Notifier) SendUnprotected(ctx context.Context, symbol, entryOrderID, leg string, cause error) error {
	return n.Send(ctx, Notification{
		Severity: SeverityCritical,
		Title:    "UNPROTECTED POSITION",
		Message: fmt.Sprintf("%s: entry order %s filled but the %s leg failed: %v. Flatten immediately.",
			symbol, entryOrderID, leg, cause),
	})
}

// SendBracket reports a completed bracket placement.
func (n *Notifier) SendBracket(ctx context.Context, b *models.Bracket) error {
	return n.Send(ctx, Notification{
		Severity: SeverityInfo,
		Title:    "Bracket placed",
		Message: fmt.Sprintf("%s %s: entry %.2f, stop %.2f, target %.2f",
			b.Entry.Symbol, b.Entry.Side, b.EntryPrice, b.StopPrice, b.TargetPrice),
	})
}

// SendFlattenReport reports the outcome of a flatten pass.
func (n *Notifier) SendFlattenReport(ctx context.Context, report models.FlattenReport) error {
	severity := SeverityInfo
	if len(report.CancelFailed) > 0 || len(report.CloseFailed) > 0 {
		severity = SeverityWarning
	}

	return n.Send(ctx, Notification{
		Severity: severity,
		Title:    "Flatten complete",
		Message: fmt.Sprintf("cancelled %d (failed %d), closed %d (failed %d)",
			len(report.Cancelled), len(report.CancelFailed), len(report.Closed), len(report.CloseFailed)),
	})
}
