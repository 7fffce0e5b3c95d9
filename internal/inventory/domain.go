package inventory

import (
	"errors"
	"fmt"
	"time"
)

// Record summarises on-hand stock for an item at a location. Rows are created
// lazily on the first inbound movement and never go negative.
type Record struct {
	ItemID     int64
	LocationID int64
	Qty        int64
	UpdatedAt  time.Time
}

// ErrInsufficientStock triggered when a deduction would drive quantity negative.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidDelta indicates a zero adjustment or a negative adjustment
// against a missing record.
var ErrInvalidDelta = errors.New("inventory: invalid quantity adjustment")

// InsufficientStockError carries the offending item/location so callers can
// report which line failed.
type InsufficientStockError struct {
	ItemID     int64
	LocationID int64
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for item %d at location %d: available %d, requested %d",
		e.ItemID, e.LocationID, e.Available, e.Requested)
}

// Unwrap lets errors.Is match the package sentinel.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Apply computes the quantity after an adjustment, enforcing the non-negative
// invariant. Every stock mutation, regardless of storage backend, goes
// through this function.
func Apply(itemID, locationID, current, delta int64) (int64, error) {
	if delta == 0 {
		return current, ErrInvalidDelta
	}
	newQty := current + delta
	if newQty < 0 {
		return current, &InsufficientStockError{ItemID: itemID, LocationID: locationID, Available: current, Requested: -delta}
	}
	return newQty, nil
}
