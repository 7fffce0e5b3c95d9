package ledger

import (
	"errors"
	"time"
)

// FlowType classifies a cash movement.
type FlowType string

const (
	// FlowIncome is money coming in.
	FlowIncome FlowType = "INCOME"
	// FlowExpense is money going out.
	FlowExpense FlowType = "EXPENSE"
)

// Valid reports whether f is a known flow type.
func (f FlowType) Valid() bool {
	return f == FlowIncome || f == FlowExpense
}

// RefType names the document an entry was recorded for.
type RefType string

const (
	RefPurchase RefType = "PURCHASE"
	RefSale     RefType = "SALE"
	RefOther    RefType = "OTHER"
)

// Valid reports whether t is a known reference type.
func (t RefType) Valid() bool {
	switch t {
	case RefPurchase, RefSale, RefOther:
		return true
	}
	return false
}

// Entry is one immutable cash-flow record. The workflow only appends; there
// is no update or delete surface.
type Entry struct {
	ID          int64
	Date        time.Time
	Flow        FlowType
	Amount      float64
	Description string
	RefType     RefType
	RefID       *int64
	CreatedBy   int64
	CreatedAt   time.Time
}

// Summary aggregates the ledger for reporting consumers.
type Summary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Balance      float64 `json:"balance"`
}

// ErrValidation indicates a malformed entry.
var ErrValidation = errors.New("ledger: invalid entry")
