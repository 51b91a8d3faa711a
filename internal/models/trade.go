package models

import "time"

// Trade is a single fill reported by the broker.
type Trade struct {
	TradeID      string
	OrderID      string
	Symbol       string
	Exchange     Exchange
	Side         OrderSide
	Quantity     int
	AveragePrice float64
	FilledAt     time.Time
}

// PositionBook is the broker's position snapshot, split the way the
// exchange reports it. Flattening operates on Net only.
type PositionBook struct {
	Net []Position
	Day []Position
}
