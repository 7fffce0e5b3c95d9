package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepository appends entries on an open transaction so a workflow can write
// its ledger row atomically with the order it belongs to.
type TxRepository interface {
	Append(ctx context.Context, entry Entry) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open pgx transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) Append(ctx context.Context, entry Entry) (int64, error) {
	return appendEntry(ctx, r.tx, entry)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func appendEntry(ctx context.Context, q execQuerier, entry Entry) (int64, error) {
	date := entry.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO ledger_entries (entry_date, flow, amount, description, ref_type, ref_id, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		date, string(entry.Flow), entry.Amount, entry.Description, string(entry.RefType), entry.RefID, nullInt(entry.CreatedBy)).Scan(&id)
	return id, err
}

// Filter narrows List results.
type Filter struct {
	Flow  FlowType
	From  time.Time
	To    time.Time
	Limit int
}

// Repository persists ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a standalone entry outside any workflow transaction.
func (r *Repository) Append(ctx context.Context, entry Entry) (int64, error) {
	return appendEntry(ctx, r.pool, entry)
}

// Summarize aggregates totals over the whole ledger.
func (r *Repository) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE flow='INCOME'), 0),
COALESCE(SUM(amount) FILTER (WHERE flow='EXPENSE'), 0)
FROM ledger_entries`).Scan(&s.TotalIncome, &s.TotalExpense)
	if err != nil {
		return Summary{}, err
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s, nil
}

// List returns entries matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, entry_date, flow, amount, description, ref_type, ref_id, COALESCE(created_by, 0), created_at
FROM ledger_entries
WHERE ($1 = '' OR flow = $1)
  AND entry_date >= COALESCE($2, '-infinity'::timestamptz)
  AND entry_date <= COALESCE($3, 'infinity'::timestamptz)
ORDER BY entry_date DESC, id DESC
LIMIT $4`, string(filter.Flow), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var flow, refType string
		if err := rows.Scan(&e.ID, &e.Date, &flow, &e.Amount, &e.Description, &refType, &e.RefID, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Flow = FlowType(flow)
		e.RefType = RefType(refType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
