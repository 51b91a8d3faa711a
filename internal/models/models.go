// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the closing side for an entry side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLoss  OrderType = "SL"
	OrderTypeStopLossM OrderType = "SL-M"
)

// ProductType represents the product type of an order.
type ProductType string

const (
	ProductMIS  ProductType = "MIS"  // Intraday
	ProductCNC  ProductType = "CNC"  // Delivery
	ProductNRML ProductType = "NRML" // F&O Normal
)

// Order statuses as reported by the broker.
const (
	StatusOpen           = "OPEN"
	StatusComplete       = "COMPLETE"
	StatusCancelled      = "CANCELLED"
	StatusRejected       = "REJECTED"
	StatusTriggerPending = "TRIGGER PENDING"
)

// InstrumentType represents the contract type of an instrument.
type InstrumentType string

const (
	InstrumentEquity InstrumentType = "EQ"
	InstrumentCall   InstrumentType = "CE"
	InstrumentPut    InstrumentType = "PE"
	InstrumentFuture InstrumentType = "FUT"
)

// Instrument is an immutable catalog row, identified by (Exchange, Symbol).
type Instrument struct {
	Token    uint32
	Symbol   string
	Name     string
	Exchange Exchange
	Segment  string
	LotSize  int
	TickSize float64
	Expiry   time.Time
	Strike   float64
	Type     InstrumentType
}

// IsDerivative reports whether the instrument is an F&O contract.
func (i Instrument) IsDerivative() bool {
	return i.Type == InstrumentCall || i.Type == InstrumentPut || i.Type == InstrumentFuture
}

// Position is a read-only snapshot of net exposure in one instrument.
// Quantity is signed: positive is long, negative is short.
type Position struct {
	Symbol       string
	Exchange     Exchange
	Product      ProductType
	Quantity     int
	AveragePrice float64
	LTP          float64
	PnL          float64
}
