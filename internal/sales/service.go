package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/mebel-erp/mebel-erp/internal/inventory"
	"github.com/mebel-erp/mebel-erp/internal/ledger"
	"github.com/mebel-erp/mebel-erp/internal/orders"
	"github.com/mebel-erp/mebel-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (SaleOrder, error)
	List(ctx context.Context, limit, offset int) ([]SaleOrder, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LedgerCachePort invalidates cached ledger aggregates after a workflow
// transaction appended an entry.
type LedgerCachePort interface {
	DropSummaryCache(ctx context.Context)
}

// QueuePort schedules a ledger summary rebuild after a commit that appended
// an entry, so the next summary read hits a warm cache.
type QueuePort interface {
	EnqueueSummaryRefresh(ctx context.Context, reason string) error
}

// Service orchestrates the sale-order workflow.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	ledgerCache LedgerCachePort
	queue       QueuePort
}

// NewService constructs sales service.
func NewService(repo RepositoryPort, audit AuditPort, ledgerCache LedgerCachePort, queue QueuePort) *Service {
	return &Service{repo: repo, audit: audit, ledgerCache: ledgerCache, queue: queue}
}

// CreateInput describes creation payload.
type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	SaleDate      time.Time
	Discount      float64
	Status        orders.Status
	ActorID       int64
	Lines         []LineInput
}

// UpdateInput describes an order edit: header fields plus the full new line
// set. Lines carrying an id update the stored row; id 0 means insert; stored
// lines missing from the set are removed.
type UpdateInput struct {
	CustomerName  string
	CustomerPhone string
	SaleDate      time.Time
	Discount      float64
	Status        orders.Status
	ActorID       int64
	Lines         []LineInput
}

// LineInput describes one requested line.
type LineInput struct {
	ID         int64
	ItemID     int64
	LocationID int64
	Qty        int64
	UnitPrice  float64
}

// Create persists the order with its lines and records the income ledger
// entry of the final amount. The ledger row is written at creation time
// whatever the initial status is. When the initial status is COMPLETED the
// creation also deducts inventory under the same rules as completion.
func (s *Service) Create(ctx context.Context, input CreateInput) (SaleOrder, error) {
	if input.CustomerName == "" {
		return SaleOrder{}, fmt.Errorf("%w: customer name required", ErrValidation)
	}
	if input.Status == "" {
		input.Status = orders.StatusPending
	}
	if !input.Status.Valid() {
		return SaleOrder{}, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	lines, total, err := buildLines(input.Lines)
	if err != nil {
		return SaleOrder{}, err
	}
	if input.Discount < 0 {
		return SaleOrder{}, fmt.Errorf("%w: discount must not be negative", ErrValidation)
	}
	if input.Discount >= total {
		return SaleOrder{}, fmt.Errorf("%w: discount must be less than total", ErrValidation)
	}

	order := SaleOrder{
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		SaleDate:      defaultTime(input.SaleDate),
		TotalAmount:   total,
		Discount:      input.Discount,
		FinalAmount:   total - input.Discount,
		Status:        input.Status,
		CreatedBy:     input.ActorID,
	}
	entry := ledger.Entry{
		Date:        order.SaleDate,
		Flow:        ledger.FlowIncome,
		Amount:      order.FinalAmount,
		Description: "sale order",
		RefType:     ledger.RefSale,
		CreatedBy:   input.ActorID,
	}
	if err := ledger.Validate(entry); err != nil {
		return SaleOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		order.Lines, err = tx.ReplaceLines(ctx, orderID, lines)
		if err != nil {
			return err
		}
		entry.RefID = &orderID
		entry.Description = fmt.Sprintf("sale order %d", orderID)
		if _, err := tx.AppendLedger(ctx, entry); err != nil {
			return err
		}
		if order.Status == orders.StatusCompleted {
			return deductLines(ctx, tx, order.Lines)
		}
		return nil
	})
	if err != nil {
		return SaleOrder{}, err
	}
	if s.ledgerCache != nil {
		s.ledgerCache.DropSummaryCache(ctx)
	}
	s.enqueueRefresh(ctx, "sale_create")
	s.recordAudit(ctx, input.ActorID, "SALE_CREATE", order.ID, map[string]any{"final": order.FinalAmount, "status": string(order.Status)})
	return order, nil
}

// Update edits header fields and reconciles the line set, recomputing the
// totals. Inventory is deducted only on the PENDING to COMPLETED edge;
// re-saving a completed order never deducts twice.
func (s *Service) Update(ctx context.Context, orderID int64, input UpdateInput) (SaleOrder, error) {
	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return SaleOrder{}, err
	}
	if input.CustomerName == "" {
		return SaleOrder{}, fmt.Errorf("%w: customer name required", ErrValidation)
	}
	newStatus := input.Status
	if newStatus == "" {
		newStatus = current.Status
	}
	if !newStatus.Valid() {
		return SaleOrder{}, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	if !orders.CanTransition(current.Status, newStatus) {
		return SaleOrder{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, newStatus)
	}
	lines, total, err := buildLines(input.Lines)
	if err != nil {
		return SaleOrder{}, err
	}
	if input.Discount < 0 {
		return SaleOrder{}, fmt.Errorf("%w: discount must not be negative", ErrValidation)
	}
	if input.Discount >= total {
		return SaleOrder{}, fmt.Errorf("%w: discount must be less than total", ErrValidation)
	}

	updated := current
	updated.CustomerName = input.CustomerName
	updated.CustomerPhone = input.CustomerPhone
	updated.SaleDate = defaultTime(input.SaleDate)
	updated.TotalAmount = total
	updated.Discount = input.Discount
	updated.FinalAmount = total - input.Discount
	updated.Status = newStatus

	deduct := current.Status != orders.StatusCompleted && newStatus == orders.StatusCompleted
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}
		updated.Lines, err = tx.ReplaceLines(ctx, orderID, lines)
		if err != nil {
			return err
		}
		if deduct {
			return deductLines(ctx, tx, updated.Lines)
		}
		return nil
	})
	if err != nil {
		return SaleOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "SALE_UPDATE", orderID, map[string]any{"final": updated.FinalAmount, "status": string(updated.Status)})
	return updated, nil
}

// UpdateStatus moves the order to newStatus. The PENDING to COMPLETED edge
// deducts stock per line in stored order inside the same transaction; the
// first shortfall aborts the whole change. Transitions to CANCELLED and
// same-state updates touch nothing but the status column.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, newStatus orders.Status, actorID int64) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !orders.CanTransition(current.Status, newStatus) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, newStatus)
	}
	deduct := current.Status != orders.StatusCompleted && newStatus == orders.StatusCompleted
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if deduct {
			if err := deductLines(ctx, tx, current.Lines); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, orderID, newStatus)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "SALE_STATUS", orderID, map[string]any{"from": string(current.Status), "to": string(newStatus)})
	return nil
}

// Get fetches an order with lines.
func (s *Service) Get(ctx context.Context, orderID int64) (SaleOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// List returns order headers.
func (s *Service) List(ctx context.Context, limit, offset int) ([]SaleOrder, error) {
	return s.repo.List(ctx, limit, offset)
}

// deductLines checks and deducts stock sequentially in stored line order.
// The availability read and the adjustment share the transaction's row
// locks, so a shortfall found here rolls back everything before it.
func deductLines(ctx context.Context, tx TxRepository, lines []SaleLine) error {
	for _, line := range lines {
		available, err := tx.GetQuantity(ctx, line.ItemID, line.LocationID)
		if err != nil {
			return err
		}
		if available < line.Qty {
			return &inventory.InsufficientStockError{
				ItemID:     line.ItemID,
				LocationID: line.LocationID,
				Available:  available,
				Requested:  line.Qty,
			}
		}
		if _, err := tx.AdjustStock(ctx, line.ItemID, line.LocationID, -line.Qty); err != nil {
			return err
		}
	}
	return nil
}

func buildLines(inputs []LineInput) ([]SaleLine, float64, error) {
	if len(inputs) == 0 {
		return nil, 0, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	var total float64
	lines := make([]SaleLine, 0, len(inputs))
	for _, line := range inputs {
		if line.ItemID == 0 || line.LocationID == 0 {
			return nil, 0, fmt.Errorf("%w: item and location required", ErrValidation)
		}
		if line.Qty <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if line.UnitPrice < 0 {
			return nil, 0, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
		}
		amount := float64(line.Qty) * line.UnitPrice
		total += amount
		lines = append(lines, SaleLine{
			ID:         line.ID,
			ItemID:     line.ItemID,
			LocationID: line.LocationID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			Amount:     amount,
		})
	}
	return lines, total, nil
}

// enqueueRefresh schedules a summary rebuild. Best effort: the cache was
// already invalidated, so a lost task only costs the next reader a recompute.
func (s *Service) enqueueRefresh(ctx context.Context, reason string) {
	if s.queue == nil {
		return
	}
	_ = s.queue.EnqueueSummaryRefresh(ctx, reason)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale_order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}
