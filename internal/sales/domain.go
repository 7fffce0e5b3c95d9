package sales

import (
	"errors"
	"time"

	"github.com/mebel-erp/mebel-erp/internal/orders"
)

// SaleOrder is the header of a customer order. FinalAmount is always
// TotalAmount minus Discount; both are recomputed whenever lines change.
type SaleOrder struct {
	ID            int64
	CustomerName  string
	CustomerPhone string
	SaleDate      time.Time
	TotalAmount   float64
	Discount      float64
	FinalAmount   float64
	Status        orders.Status
	CreatedBy     int64
	CreatedAt     time.Time
	Lines         []SaleLine
}

// SaleLine is one item/location/quantity row of a sale order.
type SaleLine struct {
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
	ErrNotFound = errors.New("sales: order not found")
	// ErrInvalidTransition occurs when the requested status change is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("sales: invalid status transition")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("sales: invalid input")
)
