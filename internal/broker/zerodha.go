// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// ZerodhaGateway implements the Gateway interface for Zerodha Kite Connect.
type ZerodhaGateway struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	accessToken   string
	tokenPath     string
	authenticated bool
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for the Zerodha gateway.
type ZerodhaConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	TokenPath string
}

// NewZerodhaGateway creates a new Zerodha gateway instance.
// It automatically loads any saved session from disk.
func NewZerodhaGateway(cfg ZerodhaConfig) *ZerodhaGateway {
	client := kiteconnect.New(cfg.APIKey)

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "simple-algo", "session.json")
	}

	z := &ZerodhaGateway{
		client:    client,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		userID:    cfg.UserID,
		tokenPath: tokenPath,
	}

	_ = z.loadSession()

	return z
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login verifies a persisted session, or returns the login URL the user
// must visit to establish a fresh one.
func (z *ZerodhaGateway) Login(ctx context.Context) error {
	if err := z.loadSession(); err == nil && z.IsAuthenticated() {
		if _, err := z.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	loginURL := z.client.GetLoginURL()
	return fmt.Errorf("authentication required: please visit %s and complete login, then call CompleteLogin with the request token", loginURL)
}

// CompleteLogin completes the OAuth flow with the request token.
func (z *ZerodhaGateway) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.apiSecret)
	if err != nil {
		return apperrors.NewBrokerError("login", "failed to generate session", err)
	}

	z.setAccessToken(session.AccessToken)

	if err := z.saveSession(session.AccessToken); err != nil {
		// Session is valid either way
		fmt.Printf("warning: failed to persist session: %v\n", err)
	}

	return nil
}

// Logout invalidates the session and clears stored credentials.
func (z *ZerodhaGateway) Logout(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.authenticated {
		if _, err := z.client.InvalidateAccessToken(); err != nil {
			fmt.Printf("warning: failed to invalidate token: %v\n", err)
		}
	}

	z.accessToken = ""
	z.authenticated = false

	if err := os.Remove(z.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// IsAuthenticated returns whether the gateway holds a live session.
func (z *ZerodhaGateway) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.authenticated
}

// GetLoginURL returns the Zerodha login URL for OAuth.
func (z *ZerodhaGateway) GetLoginURL() string {
	return z.client.GetLoginURL()
}

func (z *ZerodhaGateway) setAccessToken(token string) {
	z.mu.Lock()
	z.accessToken = token
	z.authenticated = true
	z.client.SetAccessToken(token)
	z.mu.Unlock()
}

func (z *ZerodhaGateway) loadSession() error {
	data, err := os.ReadFile(z.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	// Zerodha tokens expire at 6 AM IST the next day
	if time.Now().After(session.ExpiresAt) {
		return apperrors.ErrSessionExpired
	}

	z.setAccessToken(session.AccessToken)

	return nil
}

func (z *ZerodhaGateway) saveSession(accessToken string) error {
	dir := filepath.Dir(z.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	session := sessionData{
		AccessToken: accessToken,
		UserID:      z.userID,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return os.WriteFile(z.tokenPath, data, 0600)
}

// PlaceOrder submits a new order and returns its order ID.
func (z *ZerodhaGateway) PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	if !z.IsAuthenticated() {
		return "", apperrors.ErrNotAuthenticated
	}

	params := kiteconnect.OrderParams{
		Exchange:        string(req.Exchange),
		Tradingsymbol:   req.Symbol,
		TransactionType: string(req.Side),
		OrderType:       string(req.Type),
		Product:         string(req.Product),
		Quantity:        req.Quantity,
		Price:           req.Price,
		TriggerPrice:    req.TriggerPrice,
		Validity:        req.Validity,
		Tag:             req.Tag,
	}

	if params.Validity == "" {
		params.Validity = "DAY"
	}

	resp, err := z.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", apperrors.NewBrokerError("place_order", req.Symbol, err)
	}

	return resp.OrderID, nil
}

// ModifyOrder adjusts price, trigger price or quantity of a live order.
func (z *ZerodhaGateway) ModifyOrder(ctx context.Context, orderID string, mod OrderModification) error {
	if !z.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}

	params := kiteconnect.OrderParams{
		Price:        mod.Price,
		TriggerPrice: mod.TriggerPrice,
		Quantity:     mod.Quantity,
	}

	if _, err := z.client.ModifyOrder(kiteconnect.VarietyRegular, orderID, params); err != nil {
		return apperrors.NewOrderError(orderID, "", "modify", err)
	}

	return nil
}

// CancelOrder cancels an existing order.
func (z *ZerodhaGateway) CancelOrder(ctx context.Context, variety, orderID string) error {
	if !z.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}

	if variety == "" {
		variety = kiteconnect.VarietyRegular
	}

	if _, err := z.client.CancelOrder(variety, orderID, nil); err != nil {
		return apperrors.NewOrderError(orderID, "", "cancel", err)
	}

	return nil
}

// GetOrders fetches all orders for the day.
func (z *ZerodhaGateway) GetOrders(ctx context.Context) ([]models.Order, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	orders, err := z.client.GetOrders()
	if err != nil {
		return nil, apperrors.NewBrokerError("orders", "failed to fetch order book", err)
	}

	result := make([]models.Order, len(orders))
	for i, o := range orders {
		result[i] = convertOrder(o)
	}

	return result, nil
}

// GetOrderHistory fetches the state snapshots of one order, oldest first.
func (z *ZerodhaGateway) GetOrderHistory(ctx context.Context, orderID string) ([]models.Order, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	history, err := z.client.GetOrderHistory(orderID)
	if err != nil {
		return nil, apperrors.NewOrderError(orderID, "", "history", err)
	}

	result := make([]models.Order, len(history))
	for i, o := range history {
		result[i] = convertOrder(o)
	}

	return result, nil
}

// GetPositions fetches the day and net position books.
func (z *ZerodhaGateway) GetPositions(ctx context.Context) (models.PositionBook, error) {
	if !z.IsAuthenticated() {
		return models.PositionBook{}, apperrors.ErrNotAuthenticated
	}

	positions, err := z.client.GetPositions()
	if err != nil {
		return models.PositionBook{}, apperrors.NewBrokerError("positions", "failed to fetch position book", err)
	}

	return models.PositionBook{
		Net: convertPositions(positions.Net),
		Day: convertPositions(positions.Day),
	}, nil
}

// GetTrades fetches all fills for the day.
func (z *ZerodhaGateway) GetTrades(ctx context.Context) ([]models.Trade, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	trades, err := z.client.GetTrades()
	if err != nil {
		return nil, apperrors.NewBrokerError("trades", "failed to fetch trade book", err)
	}

	result := make([]models.Trade, len(trades))
	for i, t := range trades {
		result[i] = models.Trade{
			TradeID:      t.TradeID,
			OrderID:      t.OrderID,
			Symbol:       t.TradingSymbol,
			Exchange:     models.Exchange(t.Exchange),
			Side:         models.OrderSide(t.TransactionType),
			Quantity:     int(t.Quantity),
			AveragePrice: t.AveragePrice,
			FilledAt:     t.FillTimestamp.Time,
		}
	}

	return result, nil
}

// GetInstruments fetches the instrument catalog for one exchange. The
// catalog is downloaded fresh on every call; callers needing performance
// should cache it themselves.
func (z *ZerodhaGateway) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	instruments, err := z.client.GetInstruments()
	if err != nil {
		return nil, apperrors.NewCatalogError(string(exchange), err)
	}

	var result []models.Instrument
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		result = append(result, models.Instrument{
			Token:    uint32(inst.InstrumentToken),
			Symbol:   inst.Tradingsymbol,
			Name:     inst.Name,
			Exchange: models.Exchange(inst.Exchange),
			Segment:  inst.Segment,
			LotSize:  int(inst.LotSize),
			TickSize: inst.TickSize,
			Expiry:   inst.Expiry.Time,
			Strike:   inst.StrikePrice,
			Type:     models.InstrumentType(inst.InstrumentType),
		})
	}

	return result, nil
}

// GetLTP fetches the last traded price for an instrument token.
func (z *ZerodhaGateway) GetLTP(ctx context.Context, instrumentToken uint32) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}

	key := strconv.FormatUint(uint64(instrumentToken), 10)
	quotes, err := z.client.GetLTP(key)
	if err != nil {
		return 0, apperrors.NewBrokerError("ltp", key, err)
	}

	for _, q := range quotes {
		if q.LastPrice > 0 {
			return q.LastPrice, nil
		}
	}

	return 0, apperrors.ErrNoData
}

func convertOrder(o kiteconnect.Order) models.Order {
	return models.Order{
		ID:           o.OrderID,
		Symbol:       o.TradingSymbol,
		Exchange:     models.Exchange(o.Exchange),
		Side:         models.OrderSide(o.TransactionType),
		Type:         models.OrderType(o.OrderType),
		Product:      models.ProductType(o.Product),
		Quantity:     int(o.Quantity),
		Price:        o.Price,
		TriggerPrice: o.TriggerPrice,
		Variety:      o.Variety,
		Status:       o.Status,
		FilledQty:    int(o.FilledQuantity),
		AveragePrice: o.AveragePrice,
		PlacedAt:     o.OrderTimestamp.Time,
	}
}

func convertPositions(positions []kiteconnect.Position) []models.Position {
	result := make([]models.Position, len(positions))
	for i, p := range positions {
		result[i] = models.Position{
			Symbol:       p.Tradingsymbol,
			Exchange:     models.Exchange(p.Exchange),
			Product:      models.ProductType(p.Product),
			Quantity:     int(p.Quantity),
			AveragePrice: p.AveragePrice,
			LTP:          p.LastPrice,
			PnL:          p.PnL,
		}
	}
	return result
}

// Ensure ZerodhaGateway implements Gateway interface
var _ Gateway = (*ZerodhaGateway)(nil)
