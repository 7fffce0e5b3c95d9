package sales

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

// TxRepository exposes the operations a sale workflow performs inside one
// transaction. Order rows, line reconciliation, stock deduction and the
// ledger append all commit or roll back together.
type TxRepository interface {
	CreateOrder(ctx context.Context, order SaleOrder) (int64, error)
	UpdateOrder(ctx context.Context, order SaleOrder) error
	UpdateStatus(ctx context.Context, id int64, status orders.Status) error
	ReplaceLines(ctx context.Context, orderID int64, submitted []SaleLine) ([]SaleLine, error)
	GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error)
	AdjustStock(ctx context.Context, itemID, locationID, delta int64) (int64, error)
	AppendLedger(ctx context.Context, entry ledger.Entry) (int64, error)
}

// Repository persists sale orders in PostgreSQL.
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
func (r *Repository) GetOrder(ctx context.Context, id int64) (SaleOrder, error) {
	var order SaleOrder
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, customer_name, COALESCE(customer_phone, ''), sale_date, total_amount, discount, final_amount, status, COALESCE(created_by, 0), created_at
FROM sale_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.CustomerName, &order.CustomerPhone, &order.SaleDate, &order.TotalAmount, &order.Discount, &order.FinalAmount, &status, &order.CreatedBy, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleOrder{}, ErrNotFound
		}
		return SaleOrder{}, err
	}
	order.Status = orders.Status(status)

	rows, err := r.pool.Query(ctx, `SELECT id, order_id, item_id, location_id, qty, unit_price, amount
FROM sale_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return SaleOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.LocationID, &line.Qty, &line.UnitPrice, &line.Amount); err != nil {
			return SaleOrder{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

// List returns order headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]SaleOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, customer_name, COALESCE(customer_phone, ''), sale_date, total_amount, discount, final_amount, status, COALESCE(created_by, 0), created_at
FROM sale_orders ORDER BY sale_date DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []SaleOrder{}
	for rows.Next() {
		var order SaleOrder
		var status string
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.CustomerPhone, &order.SaleDate, &order.TotalAmount, &order.Discount, &order.FinalAmount, &status, &order.CreatedBy, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Status = orders.Status(status)
		result = append(result, order)
	}
	return result, rows.Err()
}

func (r *txRepository) CreateOrder(ctx context.Context, order SaleOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_orders (customer_name, customer_phone, sale_date, total_amount, discount, final_amount, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING id`,
		order.CustomerName, order.CustomerPhone, order.SaleDate, order.TotalAmount, order.Discount, order.FinalAmount, string(order.Status), nullInt(order.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateOrder(ctx context.Context, order SaleOrder) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sale_orders SET customer_name=$2, customer_phone=$3, sale_date=$4, total_amount=$5, discount=$6, final_amount=$7, status=$8 WHERE id=$1`,
		order.ID, order.CustomerName, order.CustomerPhone, order.SaleDate, order.TotalAmount, order.Discount, order.FinalAmount, string(order.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status orders.Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sale_orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceLines reconciles the submitted line set against storage: stored
// lines absent from the submission are deleted, submitted lines carrying an
// id are updated in place, lines with id 0 are inserted. Returns the final
// line set in stored order.
func (r *txRepository) ReplaceLines(ctx context.Context, orderID int64, submitted []SaleLine) ([]SaleLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id FROM sale_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	stored := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		stored[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keep := map[int64]bool{}
	for i := range submitted {
		line := &submitted[i]
		line.OrderID = orderID
		if line.ID != 0 && stored[line.ID] {
			keep[line.ID] = true
			_, err = r.tx.Exec(ctx, `UPDATE sale_lines SET item_id=$2, location_id=$3, qty=$4, unit_price=$5, amount=$6 WHERE id=$1`,
				line.ID, line.ItemID, line.LocationID, line.Qty, line.UnitPrice, line.Amount)
		} else {
			err = r.tx.QueryRow(ctx, `INSERT INTO sale_lines (order_id, item_id, location_id, qty, unit_price, amount)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				orderID, line.ItemID, line.LocationID, line.Qty, line.UnitPrice, line.Amount).Scan(&line.ID)
		}
		if err != nil {
			return nil, err
		}
	}
	for id := range stored {
		if !keep[id] {
			if _, err := r.tx.Exec(ctx, `DELETE FROM sale_lines WHERE id=$1`, id); err != nil {
				return nil, err
			}
		}
	}

	result := []SaleLine{}
	rows, err = r.tx.Query(ctx, `SELECT id, order_id, item_id, location_id, qty, unit_price, amount
FROM sale_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.LocationID, &line.Qty, &line.UnitPrice, &line.Amount); err != nil {
			return nil, err
		}
		result = append(result, line)
	}
	return result, rows.Err()
}

func (r *txRepository) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	return r.stock.GetQuantity(ctx, itemID, locationID)
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
