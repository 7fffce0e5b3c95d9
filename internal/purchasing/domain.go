package purchasing

import (
	"errors"
	"time"

	"github.com/mebel-erp/mebel-erp/internal/orders"
)

// PurchaseOrder is the header of a supplier order. TotalAmount is derived
// from the lines at save time.
type PurchaseOrder struct {
	ID          int64
	SupplierID  int64
	OrderDate   time.Time
	TotalAmount float64
	Status      orders.Status
	CreatedBy   int64
	CreatedAt   time.Time
	Lines       []PurchaseLine
}

// PurchaseLine is one item/location/quantity row of a purchase order.
type PurchaseLine struct {
	ID         int64
	OrderID    int64
	ItemID     int64
	LocationID int64
	Qty        int64
	UnitPrice  float64
	Amount     float64
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("purchasing: order not found")
	// ErrAlreadyCompleted signals an idempotent re-completion attempt. The
	// API layer treats it as a no-op success; inventory is not touched twice.
	ErrAlreadyCompleted = errors.New("purchasing: order already completed")
	// ErrInvalidTransition occurs when the requested status change is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("purchasing: invalid status transition")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("purchasing: invalid input")
)
