// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidStep         = errors.New("strike step must be positive")
	ErrNoData              = errors.New("no quote data available")
	ErrInstrumentNotFound  = errors.New("instrument not found")
	ErrAmbiguousInstrument = errors.New("instrument match is ambiguous")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrJobOverlap          = errors.New("previous trigger still running for symbol")
)

// BrokerError represents a transport or auth failure from the broker API.
type BrokerError struct {
	Op      string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Op, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(op, message string, err error) *BrokerError {
	return &BrokerError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// CatalogError represents a failed instrument catalog download. Resolution
// must not proceed on a partial catalog, so this is never swallowed.
type CatalogError struct {
	Exchange string
	Err      error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog fetch failed [%s]: %v", e.Exchange, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// NewCatalogError creates a new CatalogError.
func NewCatalogError(exchange string, err error) *CatalogError {
	return &CatalogError{Exchange: exchange, Err: err}
}

// FillTimeoutError is returned when an entry order produced no average price
// within the poll window. No protective legs have been placed at this point.
type FillTimeoutError struct {
	OrderID string
	Symbol  string
	Waited  time.Duration
}

func (e *FillTimeoutError) Error() string {
	return fmt.Sprintf("fill timeout [%s] %s: no average price after %s", e.OrderID, e.Symbol, e.Waited)
}

// NewFillTimeoutError creates a new FillTimeoutError.
func NewFillTimeoutError(orderID, symbol string, waited time.Duration) *FillTimeoutError {
	return &FillTimeoutError{OrderID: orderID, Symbol: symbol, Waited: waited}
}

// UnprotectedPositionError means the entry has filled but one or both
// protective legs could not be placed. Real capital is exposed; callers must
// alert out-of-band and flatten.
type UnprotectedPositionError struct {
	EntryOrderID string
	Symbol       string
	Leg          string // "stop_loss" or "target"
	Err          error
}

func (e *UnprotectedPositionError) Error() string {
	return fmt.Sprintf("unprotected position [%s] %s: %s leg failed: %v", e.EntryOrderID, e.Symbol, e.Leg, e.Err)
}

func (e *UnprotectedPositionError) Unwrap() error {
	return e.Err
}

// NewUnprotectedPositionError creates a new UnprotectedPositionError.
func NewUnprotectedPositionError(entryOrderID, symbol, leg string, err error) *UnprotectedPositionError {
	return &UnprotectedPositionError{
		EntryOrderID: entryOrderID,
		Symbol:       symbol,
		Leg:          leg,
		Err:          err,
	}
}

// BookError represents a failed order-book or position-book fetch. Per-item
// cancellation and close failures inside a flatten pass are reported in the
// FlattenReport instead, never as a BookError.
type BookError struct {
	Book string // "orders" or "positions"
	Err  error
}

func (e *BookError) Error() string {
	return fmt.Sprintf("book fetch failed [%s]: %v", e.Book, e.Err)
}

func (e *BookError) Unwrap() error {
	return e.Err
}

// NewBookError creates a new BookError.
func NewBookError(book string, err error) *BookError {
	return &BookError{Book: book, Err: err}
}

// OrderError represents an error related to a single order operation.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order error [%s] %s %s: %v", e.OrderID, e.Action, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Action:  action,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
