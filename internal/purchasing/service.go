package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mebel-erp/mebel-erp/internal/ledger"
	"github.com/mebel-erp/mebel-erp/internal/orders"
	"github.com/mebel-erp/mebel-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, limit, offset int) ([]PurchaseOrder, error)
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

// Service orchestrates the purchase-order workflow.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	ledgerCache LedgerCachePort
	queue       QueuePort
}

// NewService constructs purchasing service.
func NewService(repo RepositoryPort, audit AuditPort, ledgerCache LedgerCachePort, queue QueuePort) *Service {
	return &Service{repo: repo, audit: audit, ledgerCache: ledgerCache, queue: queue}
}

// CreateInput describes creation payload.
type CreateInput struct {
	SupplierID int64
	OrderDate  time.Time
	ActorID    int64
	Lines      []LineInput
}

// LineInput describes one requested line.
type LineInput struct {
	ItemID     int64
	LocationID int64
	Qty        int64
	UnitPrice  float64
}

// Create persists a pending order with its lines and records the expense
// ledger entry. The ledger row is written at creation time, not at
// completion; Complete must not append a second one.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	var total float64
	lines := make([]PurchaseLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ItemID == 0 || line.LocationID == 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item and location required", ErrValidation)
		}
		if line.Qty <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if line.UnitPrice <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: unit price must be positive", ErrValidation)
		}
		amount := float64(line.Qty) * line.UnitPrice
		total += amount
		lines = append(lines, PurchaseLine{
			ItemID:     line.ItemID,
			LocationID: line.LocationID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			Amount:     amount,
		})
	}

	order := PurchaseOrder{
		SupplierID:  input.SupplierID,
		OrderDate:   defaultTime(input.OrderDate),
		TotalAmount: total,
		Status:      orders.StatusPending,
		CreatedBy:   input.ActorID,
	}
	entry := ledger.Entry{
		Date:        order.OrderDate,
		Flow:        ledger.FlowExpense,
		Amount:      total,
		Description: "purchase order",
		RefType:     ledger.RefPurchase,
		CreatedBy:   input.ActorID,
	}
	if err := ledger.Validate(entry); err != nil {
		return PurchaseOrder{}, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for i := range lines {
			lines[i].OrderID = orderID
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		entry.RefID = &orderID
		entry.Description = fmt.Sprintf("purchase order %d", orderID)
		if _, err := tx.AppendLedger(ctx, entry); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Lines = lines
	if s.ledgerCache != nil {
		s.ledgerCache.DropSummaryCache(ctx)
	}
	s.enqueueRefresh(ctx, "purchase_create")
	s.recordAudit(ctx, input.ActorID, "PURCHASE_CREATE", order.ID, map[string]any{"total": total, "lines": len(lines)})
	return order, nil
}

// Complete applies the order's lines to inventory and marks it COMPLETED.
// Re-completing a completed order reports ErrAlreadyCompleted without
// touching stock; a cancelled order cannot be completed. There is no upper
// bound check: purchases only ever increment.
func (s *Service) Complete(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	switch order.Status {
	case orders.StatusCompleted:
		return ErrAlreadyCompleted
	case orders.StatusCancelled:
		return fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range order.Lines {
			if _, err := tx.AdjustStock(ctx, line.ItemID, line.LocationID, line.Qty); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, orderID, orders.StatusCompleted)
	})
	if err != nil {
		return err
	}
	refID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PO:%d", orderID)))
	s.recordAudit(ctx, actorID, "PURCHASE_COMPLETE", orderID, map[string]any{"ref": refID.String(), "lines": len(order.Lines)})
	return nil
}

// Cancel abandons a pending order. No inventory or ledger effect.
func (s *Service) Cancel(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != orders.StatusPending {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, orderID, orders.StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PURCHASE_CANCEL", orderID, nil)
	return nil
}

// Get fetches an order with lines.
func (s *Service) Get(ctx context.Context, orderID int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// List returns order headers.
func (s *Service) List(ctx context.Context, limit, offset int) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, limit, offset)
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
		Entity:   "purchase_order",
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
