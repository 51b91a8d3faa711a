// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"github.com/FaizanQureshiFinzome/simple-algo/internal/models"
)

// Gateway defines the broker operations the application consumes. The
// session behind it is long-lived and shared read-only across components;
// no component holds broker-side state beyond each call's response.
type Gateway interface {
	// Authentication
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool

	// Orders
	PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error)
	ModifyOrder(ctx context.Context, orderID string, mod OrderModification) error
	CancelOrder(ctx context.Context, variety, orderID string) error
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]models.Order, error)

	// Books
	GetPositions(ctx context.Context) (models.PositionBook, error)
	GetTrades(ctx context.Context) ([]models.Trade, error)

	// Instruments & quotes
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
	GetLTP(ctx context.Context, instrumentToken uint32) (float64, error)
}

// OrderModification carries the mutable fields of a live order. Zero values
// leave the corresponding field unchanged.
type OrderModification struct {
	Price        float64
	TriggerPrice float64
	Quantity     int
}

// Variety values accepted by the exchange for cancel/modify calls.
const (
	VarietyRegular = "regular"
)
