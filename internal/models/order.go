package models

import "time"

// OrderRequest describes an order to be submitted to the broker.
// It is constructed once and submitted exactly once.
type OrderRequest struct {
	Symbol       string
	Exchange     Exchange
	Side         OrderSide
	Type         OrderType
	Product      ProductType
	Quantity     int
	Price        float64 // 0 for market orders
	TriggerPrice float64 // 0 unless Type is SL / SL-M
	Validity     string  // DAY, IOC
	Tag          string
}

// Order is a broker-owned order snapshot. The application only ever reads
// the latest snapshot per ID; it never mutates one.
type Order struct {
	ID           string
	Symbol       string
	Exchange     Exchange
	Side         OrderSide
	Type         OrderType
	Product      ProductType
	Quantity     int
	Price        float64
	TriggerPrice float64
	Variety      string
	Status       string
	FilledQty    int
	AveragePrice float64
	PlacedAt     time.Time
}

// IsFilled reports whether the order has a realized entry price.
func (o Order) IsFilled() bool {
	return o.Status == StatusComplete && o.AveragePrice > 0
}

// IsOpen reports whether the order is still working on the exchange.
func (o Order) IsOpen() bool {
	return o.Status == StatusOpen || o.Status == StatusTriggerPending
}

// Bracket ties an entry fill to its two protective legs. The stop-loss and
// target always carry the side opposite to the entry's filled side; exactly
// one of them is expected to execute.
type Bracket struct {
	Entry       Order
	EntryPrice  float64
	StopLoss    Order
	Target      Order
	StopPrice   float64
	TargetPrice float64
	PlacedAt    time.Time
}

// FlattenReport collects per-item outcomes of one flatten pass. Individual
// failures never abort the pass; they are recorded here instead.
type FlattenReport struct {
	Cancelled    []string
	CancelFailed []FlattenFailure
	Closed       []ClosedPosition
	CloseFailed  []FlattenFailure
}

// ClosedPosition records one position closed during a flatten pass.
type ClosedPosition struct {
	Symbol   string
	Exchange Exchange
	Quantity int
	OrderID  string
}

// FlattenFailure records one order or position the flattener could not act on.
type FlattenFailure struct {
	Symbol  string
	OrderID string
	Reason  string
}

// Empty reports whether the pass found nothing to cancel or close.
func (r FlattenReport) Empty() bool {
	return len(r.Cancelled) == 0 && len(r.CancelFailed) == 0 &&
		len(r.Closed) == 0 && len(r.CloseFailed) == 0
}
