package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mebel-erp/mebel-erp/internal/inventory"
	"github.com/mebel-erp/mebel-erp/internal/ledger"
	"github.com/mebel-erp/mebel-erp/internal/orders"
	"github.com/mebel-erp/mebel-erp/internal/platform/db"
)

// TxRepository exposes the operations a purchase workflow performs inside one
// transaction: order rows, stock adjustments, and the ledger append all
// commit or roll back together.
type TxRepository interface {
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line PurchaseLine) error
	UpdateStatus(ctx context.Context, id int64, status orders.Status) error
	AdjustStock(ctx context.Context, itemID, locationID, delta int64) (int64, error)
	AppendLedger(ctx context.Context, entry ledger.Entry) (int64, error)
}

// Repository persists purchase orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx     pgx.Tx
	stock  inventory.TxRepository
	ledger ledger.TxRepository
}

// WithTx executes the callback inside one repeatable-read transaction
// spanning orders, inventory and ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		wrapper := &txRepository{
			tx:     tx,
			stock:  inventory.NewTxRepository(tx),
			ledger: ledger.NewTxRepository(tx),
		}
		return fn(ctx, wrapper)
	})
}

// GetOrder fetches an order with its lines in stored order.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var order PurchaseOrder
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, supplier_id, order_date, total_amount, status, COALESCE(created_by, 0), created_at
FROM purchase_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.SupplierID, &order.OrderDate, &order.TotalAmount, &status, &order.CreatedBy, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	order.Status = orders.Status(status)

	rows, err := r.pool.Query(ctx, `SELECT id, order_id, item_id, location_id, qty, unit_price, amount
FROM purchase_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line PurchaseLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.LocationID, &line.Qty, &line.UnitPrice, &line.Amount); err != nil {
			return PurchaseOrder{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

// List returns order headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]PurchaseOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_id, order_date, total_amount, status, COALESCE(created_by, 0), created_at
FROM purchase_orders ORDER BY order_date DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []PurchaseOrder{}
	for rows.Next() {
		var order PurchaseOrder
		var status string
		if err := rows.Scan(&order.ID, &order.SupplierID, &order.OrderDate, &order.TotalAmount, &status, &order.CreatedBy, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Status = orders.Status(status)
		result = append(result, order)
	}
	return result, rows.Err()
}

func (r *txRepository) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders (supplier_id, order_date, total_amount, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`,
		order.SupplierID, order.OrderDate, order.TotalAmount, string(order.Status), nullInt(order.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, line PurchaseLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_lines (order_id, item_id, location_id, qty, unit_price, amount)
VALUES ($1,$2,$3,$4,$5,$6)`, line.OrderID, line.ItemID, line.LocationID, line.Qty, line.UnitPrice, line.Amount)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status orders.Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) AdjustStock(ctx context.Context, itemID, locationID, delta int64) (int64, error) {
	return r.stock.AdjustQuantity(ctx, itemID, locationID, delta)
}

func (r *txRepository) AppendLedger(ctx context.Context, entry ledger.Entry) (int64, error) {
	return r.ledger.Append(ctx, entry)
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
