// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// PaperGateway implements the Gateway interface against in-memory state.
// Market orders fill immediately at the seeded last price; SL and LIMIT
// orders rest as working orders until filled or cancelled by hand. It backs
// both paper-trading mode and the package tests.
type PaperGateway struct {
	instruments map[models.Exchange][]models.Instrument
	lastPrices  map[uint32]float64

	orders       map[string]*models.Order
	orderHistory map[string][]models.Order
	positions    map[string]*models.Position

	orderCounter int

	// Failure injection for tests
	failPlace     map[string]error           // keyed by symbol
	failPlaceType map[models.OrderType]error // keyed by order type
	failCancel    map[string]error           // keyed by order ID
	fillDelay     int                        // history polls before a market order reports COMPLETE

	mu sync.Mutex
}

// NewPaperGateway creates an empty paper gateway.
func NewPaperGateway() *PaperGateway {
	return &PaperGateway{
		instruments:   make(map[models.Exchange][]models.Instrument),
		lastPrices:    make(map[uint32]float64),
		orders:        make(map[string]*models.Order),
		orderHistory:  make(map[string][]models.Order),
		positions:     make(map[string]*models.Position),
		failPlace:     make(map[string]error),
		failPlaceType: make(map[models.OrderType]error),
		failCancel:    make(map[string]error),
	}
}

// SeedInstruments loads catalog rows for an exchange.
func (p *PaperGateway) SeedInstruments(exchange models.Exchange, instruments []models.Instrument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instruments[exchange] = instruments
	for _, inst := range instruments {
		if _, ok := p.lastPrices[inst.Token]; !ok {
			p.lastPrices[inst.Token] = 0
		}
	}
}

// SeedPrice sets the last traded price for an instrument token.
func (p *PaperGateway) SeedPrice(token uint32, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPrices[token] = price
}

// SeedPosition injects a net position.
func (p *PaperGateway) SeedPosition(pos models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := fmt.Sprintf("%s:%s", pos.Exchange, pos.Symbol)
	p.positions[key] = &pos
}

// SeedOrder injects a working order into the book.
func (p *PaperGateway) SeedOrder(o models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order := o
	p.orders[o.ID] = &order
	p.orderHistory[o.ID] = append(p.orderHistory[o.ID], order)
}

// FailPlaceOrder makes subsequent placements for symbol return err.
func (p *PaperGateway) FailPlaceOrder(symbol string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPlace[symbol] = err
}

// FailPlaceOrderType makes subsequent placements of the given order type
// return err. Lets a test fail a protective leg while the market entry
// for the same symbol succeeds.
func (p *PaperGateway) FailPlaceOrderType(orderType models.OrderType, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPlaceType[orderType] = err
}

// FailCancelOrder makes cancellation of orderID return err.
func (p *PaperGateway) FailCancelOrder(orderID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCancel[orderID] = err
}

// SetFillDelay delays market-order fills by n history polls. A negative n
// means the order never fills.
func (p *PaperGateway) SetFillDelay(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillDelay = n
}

// Login is a no-op for paper trading.
func (p *PaperGateway) Login(ctx context.Context) error { return nil }

// Logout is a no-op for paper trading.
func (p *PaperGateway) Logout(ctx context.Context) error { return nil }

// IsAuthenticated always returns true for paper trading.
func (p *PaperGateway) IsAuthenticated() bool { return true }

// PlaceOrder records the order and, for market orders, schedules its fill.
func (p *PaperGateway) PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failPlace[req.Symbol]; err != nil {
		return "", err
	}
	if err := p.failPlaceType[req.Type]; err != nil {
		return "", err
	}
	if req.Quantity <= 0 {
		return "", apperrors.ErrInvalidOrder
	}

	p.orderCounter++
	id := fmt.Sprintf("PAPER%06d", p.orderCounter)

	order := models.Order{
		ID:           id,
		Symbol:       req.Symbol,
		Exchange:     req.Exchange,
		Side:         req.Side,
		Type:         req.Type,
		Product:      req.Product,
		Quantity:     req.Quantity,
		Price:        req.Price,
		TriggerPrice: req.TriggerPrice,
		Variety:      VarietyRegular,
		Status:       models.StatusOpen,
		PlacedAt:     time.Now(),
	}
	if req.Type == models.OrderTypeStopLoss || req.Type == models.OrderTypeStopLossM {
		order.Status = models.StatusTriggerPending
	}

	if req.Type == models.OrderTypeMarket && p.fillDelay == 0 {
		p.fillOrderLocked(&order)
	}

	p.orders[id] = &order
	p.orderHistory[id] = append(p.orderHistory[id], order)

	return id, nil
}

// fillOrderLocked marks a market order complete at the seeded price and
// applies it to the net position. Caller holds p.mu.
func (p *PaperGateway) fillOrderLocked(order *models.Order) {
	price := order.Price
	if price == 0 {
		price = p.lookupPriceLocked(order.Exchange, order.Symbol)
	}

	order.Status = models.StatusComplete
	order.FilledQty = order.Quantity
	order.AveragePrice = price

	key := fmt.Sprintf("%s:%s", order.Exchange, order.Symbol)
	pos, ok := p.positions[key]
	if !ok {
		pos = &models.Position{
			Symbol:   order.Symbol,
			Exchange: order.Exchange,
			Product:  order.Product,
		}
		p.positions[key] = pos
	}

	if order.Side == models.OrderSideBuy {
		pos.Quantity += order.Quantity
	} else {
		pos.Quantity -= order.Quantity
	}
	pos.AveragePrice = price
	pos.LTP = price
}

func (p *PaperGateway) lookupPriceLocked(exchange models.Exchange, symbol string) float64 {
	for _, inst := range p.instruments[exchange] {
		if inst.Symbol == symbol {
			return p.lastPrices[inst.Token]
		}
	}
	return 0
}

// ModifyOrder updates the mutable fields of a working order.
func (p *PaperGateway) ModifyOrder(ctx context.Context, orderID string, mod OrderModification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return apperrors.NewOrderError(orderID, "", "modify", fmt.Errorf("order not found"))
	}
	if !order.IsOpen() {
		return apperrors.NewOrderError(orderID, order.Symbol, "modify", fmt.Errorf("order is %s", order.Status))
	}

	if mod.Price > 0 {
		order.Price = mod.Price
	}
	if mod.TriggerPrice > 0 {
		order.TriggerPrice = mod.TriggerPrice
	}
	if mod.Quantity > 0 {
		order.Quantity = mod.Quantity
	}
	p.orderHistory[orderID] = append(p.orderHistory[orderID], *order)

	return nil
}

// CancelOrder cancels a working order.
func (p *PaperGateway) CancelOrder(ctx context.Context, variety, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failCancel[orderID]; err != nil {
		return err
	}

	order, ok := p.orders[orderID]
	if !ok {
		return apperrors.NewOrderError(orderID, "", "cancel", fmt.Errorf("order not found"))
	}
	if !order.IsOpen() {
		return apperrors.NewOrderError(orderID, order.Symbol, "cancel", fmt.Errorf("order is %s", order.Status))
	}

	order.Status = models.StatusCancelled
	p.orderHistory[orderID] = append(p.orderHistory[orderID], *order)

	return nil
}

// GetOrders returns the day's order book.
func (p *PaperGateway) GetOrders(ctx context.Context) ([]models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]models.Order, 0, len(p.orders))
	for _, o := range p.orders {
		result = append(result, *o)
	}
	return result, nil
}

// GetOrderHistory returns the state snapshots of one order, oldest first.
// Pending market orders advance one step per poll when a fill delay is set.
func (p *PaperGateway) GetOrderHistory(ctx context.Context, orderID string) ([]models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil, apperrors.NewOrderError(orderID, "", "history", fmt.Errorf("order not found"))
	}

	if order.Type == models.OrderTypeMarket && order.Status == models.StatusOpen && p.fillDelay >= 0 {
		if p.fillDelay > 0 {
			p.fillDelay--
		}
		if p.fillDelay == 0 {
			p.fillOrderLocked(order)
			p.orderHistory[orderID] = append(p.orderHistory[orderID], *order)
		}
	}

	history := make([]models.Order, len(p.orderHistory[orderID]))
	copy(history, p.orderHistory[orderID])
	return history, nil
}

// GetPositions returns the net position book.
func (p *PaperGateway) GetPositions(ctx context.Context) (models.PositionBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var net []models.Position
	for _, pos := range p.positions {
		net = append(net, *pos)
	}
	return models.PositionBook{Net: net}, nil
}

// GetTrades returns one synthetic fill per completed order.
func (p *PaperGateway) GetTrades(ctx context.Context) ([]models.Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var trades []models.Trade
	for id, o := range p.orders {
		if o.Status != models.StatusComplete {
			continue
		}
		trades = append(trades, models.Trade{
			TradeID:      "T" + id,
			OrderID:      id,
			Symbol:       o.Symbol,
			Exchange:     o.Exchange,
			Side:         o.Side,
			Quantity:     o.FilledQty,
			AveragePrice: o.AveragePrice,
			FilledAt:     o.PlacedAt,
		})
	}
	return trades, nil
}

// GetInstruments returns the seeded catalog for an exchange.
func (p *PaperGateway) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	instruments, ok := p.instruments[exchange]
	if !ok {
		return nil, apperrors.NewCatalogError(string(exchange), fmt.Errorf("no catalog seeded"))
	}

	result := make([]models.Instrument, len(instruments))
	copy(result, instruments)
	return result, nil
}

// GetLTP returns the seeded last price for an instrument token.
func (p *PaperGateway) GetLTP(ctx context.Context, instrumentToken uint32) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.lastPrices[instrumentToken]
	if !ok || price <= 0 {
		return 0, apperrors.ErrNoData
	}
	return price, nil
}

// Ensure PaperGateway implements Gateway interface
var _ Gateway = (*PaperGateway)(nil)
