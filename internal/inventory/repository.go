package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mebel-erp/mebel-erp/internal/platform/db"
)

// TxRepository exposes stock operations bound to an open transaction. Order
// workflows compose it into their own transaction so that status changes and
// stock mutations commit or roll back together.
type TxRepository interface {
	// GetQuantity returns the on-hand quantity, 0 when no record exists.
	GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error)
	// AdjustQuantity applies delta atomically and returns the new quantity.
	// A record is created when absent, which is only valid for positive
	// deltas. Fails with InsufficientStockError when the result would be
	// negative.
	AdjustQuantity(ctx context.Context, itemID, locationID, delta int64) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open pgx transaction. The caller owns commit and
// rollback.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `SELECT qty FROM inventory WHERE item_id=$1 AND location_id=$2 FOR UPDATE`, itemID, locationID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (r *txRepository) AdjustQuantity(ctx context.Context, itemID, locationID, delta int64) (int64, error) {
	var qty int64
	exists := true
	err := r.tx.QueryRow(ctx, `SELECT qty FROM inventory WHERE item_id=$1 AND location_id=$2 FOR UPDATE`, itemID, locationID).Scan(&qty)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
		exists = false
		qty = 0
	}
	newQty, err := Apply(itemID, locationID, qty, delta)
	if err != nil {
		return 0, err
	}
	if !exists {
		_, err = r.tx.Exec(ctx, `INSERT INTO inventory (item_id, location_id, qty, updated_at) VALUES ($1,$2,$3,NOW())`, itemID, locationID, newQty)
		if err != nil {
			return 0, err
		}
		return newQty, nil
	}
	_, err = r.tx.Exec(ctx, `UPDATE inventory SET qty=$3, updated_at=NOW() WHERE item_id=$1 AND location_id=$2`, itemID, locationID, newQty)
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

// Repository serves read access to inventory outside order workflows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetQuantity returns current on-hand stock, 0 when no record exists.
func (r *Repository) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT qty FROM inventory WHERE item_id=$1 AND location_id=$2`, itemID, locationID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// ListByLocation returns all records held at a location.
func (r *Repository) ListByLocation(ctx context.Context, locationID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, location_id, qty, updated_at FROM inventory WHERE location_id=$1 ORDER BY item_id`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ItemID, &rec.LocationID, &rec.Qty, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// WithTx runs fn against a transactional stock view. Used by callers that
// adjust stock outside an order workflow, e.g. backfills.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}
