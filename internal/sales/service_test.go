package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mebel-erp/mebel-erp/internal/inventory"
	"github.com/mebel-erp/mebel-erp/internal/ledger"
	"github.com/mebel-erp/mebel-erp/internal/orders"
)

type memorySaleRepo struct {
	orders  map[int64]SaleOrder
	lines   map[int64][]SaleLine
	stock   map[[2]int64]int64
	entries []ledger.Entry
	nextID  int64
}

func newMemorySaleRepo() *memorySaleRepo {
	return &memorySaleRepo{
		orders: make(map[int64]SaleOrder),
		lines:  make(map[int64][]SaleLine),
		stock:  make(map[[2]int64]int64),
	}
}

type memorySaleTx struct {
	repo *memorySaleRepo
}

// WithTx snapshots state and restores it when fn fails, mirroring a rollback.
func (r *memorySaleRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	ordersBefore := make(map[int64]SaleOrder, len(r.orders))
	for k, v := range r.orders {
		ordersBefore[k] = v
	}
	linesBefore := make(map[int64][]SaleLine, len(r.lines))
	for k, v := range r.lines {
		linesBefore[k] = append([]SaleLine(nil), v...)
	}
	stockBefore := make(map[[2]int64]int64, len(r.stock))
	for k, v := range r.stock {
		stockBefore[k] = v
	}
	entriesBefore := len(r.entries)
	if err := fn(ctx, &memorySaleTx{repo: r}); err != nil {
		r.orders = ordersBefore
		r.lines = linesBefore
		r.stock = stockBefore
		r.entries = r.entries[:entriesBefore]
		return err
	}
	return nil
}

func (r *memorySaleRepo) GetOrder(ctx context.Context, id int64) (SaleOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return SaleOrder{}, ErrNotFound
	}
	order.Lines = append([]SaleLine(nil), r.lines[id]...)
	return order, nil
}

func (r *memorySaleRepo) List(ctx context.Context, limit, offset int) ([]SaleOrder, error) {
	result := make([]SaleOrder, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, order)
	}
	return result, nil
}

func (tx *memorySaleTx) CreateOrder(ctx context.Context, order SaleOrder) (int64, error) {
	tx.repo.nextID++
	order.ID = tx.repo.nextID
	tx.repo.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memorySaleTx) UpdateOrder(ctx context.Context, order SaleOrder) error {
	if _, ok := tx.repo.orders[order.ID]; !ok {
		return ErrNotFound
	}
	order.Lines = nil
	tx.repo.orders[order.ID] = order
	return nil
}

func (tx *memorySaleTx) UpdateStatus(ctx context.Context, id int64, status orders.Status) error {
	order, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	tx.repo.orders[id] = order
	return nil
}

func (tx *memorySaleTx) ReplaceLines(ctx context.Context, orderID int64, submitted []SaleLine) ([]SaleLine, error) {
	stored := tx.repo.lines[orderID]
	byID := make(map[int64]int, len(stored))
	for i, line := range stored {
		byID[line.ID] = i
	}
	keep := map[int64]bool{}
	result := append([]SaleLine(nil), stored...)
	for _, line := range submitted {
		line.OrderID = orderID
		if idx, ok := byID[line.ID]; ok && line.ID != 0 {
			keep[line.ID] = true
			result[idx] = line
			continue
		}
		tx.repo.nextID++
		line.ID = tx.repo.nextID
		keep[line.ID] = true
		result = append(result, line)
	}
	final := result[:0]
	for _, line := range result {
		if keep[line.ID] {
			final = append(final, line)
		}
	}
	tx.repo.lines[orderID] = append([]SaleLine(nil), final...)
	return append([]SaleLine(nil), final...), nil
}

func (tx *memorySaleTx) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	return tx.repo.stock[[2]int64{itemID, locationID}], nil
}

func (tx *memorySaleTx) AdjustStock(ctx context.Context, itemID, locationID, delta int64) (int64, error) {
	key := [2]int64{itemID, locationID}
	newQty, err := inventory.Apply(itemID, locationID, tx.repo.stock[key], delta)
	if err != nil {
		return 0, err
	}
	tx.repo.stock[key] = newQty
	return newQty, nil
}

func (tx *memorySaleTx) AppendLedger(ctx context.Context, entry ledger.Entry) (int64, error) {
	entry.ID = int64(len(tx.repo.entries) + 1)
	tx.repo.entries = append(tx.repo.entries, entry)
	return entry.ID, nil
}

func createPending(t *testing.T, svc *Service, lines ...LineInput) SaleOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "Ibu Sari",
		Lines:        lines,
	})
	require.NoError(t, err)
	return order
}

func TestCreateComputesFinalAmountAndAppendsIncome(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "Ibu Sari",
		Discount:     100,
		Lines: []LineInput{
			{ItemID: 1, LocationID: 1, Qty: 2, UnitPrice: 300},
			{ItemID: 2, LocationID: 1, Qty: 4, UnitPrice: 100},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1000.0, order.TotalAmount)
	require.Equal(t, 900.0, order.FinalAmount)
	require.Equal(t, orders.StatusPending, order.Status)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, ledger.FlowIncome, entry.Flow)
	require.Equal(t, 900.0, entry.Amount, "income entry carries the discounted amount")
	require.Equal(t, ledger.RefSale, entry.RefType)
	require.NotNil(t, entry.RefID)
	require.Equal(t, order.ID, *entry.RefID)

	// pending sale leaves stock alone
	require.Empty(t, repo.stock)
}

func TestCreateCompletedDeductsImmediately(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)

	order, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "Ibu Sari",
		Status:       orders.StatusCompleted,
		Lines:        []LineInput{{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusCompleted, order.Status)
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}])
}

func TestUpdateStatusDeductsStock(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100})

	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0))
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}])

	saved, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCompleted, saved.Status)
}

func TestUpdateStatusShortfallRollsBackWholeOrder(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	repo.stock[[2]int64{2, 1}] = 1
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc,
		LineInput{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100},
		LineInput{ItemID: 2, LocationID: 1, Qty: 2, UnitPrice: 100},
	)

	err := svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(2), stockErr.ItemID)
	require.Equal(t, int64(1), stockErr.Available)
	require.Equal(t, int64(2), stockErr.Requested)

	// the first line's deduction must not survive the failed transaction
	require.Equal(t, int64(5), repo.stock[[2]int64{1, 1}])
	require.Equal(t, int64(1), repo.stock[[2]int64{2, 1}])
	saved, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusPending, saved.Status)
}

func TestUpdateStatusInsufficientStockSingleLine(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 6, UnitPrice: 100})

	err := svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, int64(5), repo.stock[[2]int64{1, 1}])
}

func TestUpdateStatusCancelSkipsInventory(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100})

	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCancelled, 0))
	require.Equal(t, int64(5), repo.stock[[2]int64{1, 1}])
}

func TestUpdateStatusSameStateNoDoubleDeduction(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100})
	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0))
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}])

	// completed to completed is a plain update
	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0))
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}])
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100})
	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCancelled, 0))

	err := svc.UpdateStatus(ctx, order.ID, orders.StatusPending, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateReconcilesLines(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc,
		LineInput{ItemID: 1, LocationID: 1, Qty: 2, UnitPrice: 100},
		LineInput{ItemID: 2, LocationID: 1, Qty: 1, UnitPrice: 200},
	)
	require.Len(t, order.Lines, 2)
	first := order.Lines[0]

	updated, err := svc.Update(ctx, order.ID, UpdateInput{
		CustomerName: "Ibu Sari",
		Lines: []LineInput{
			{ID: first.ID, ItemID: 1, LocationID: 1, Qty: 5, UnitPrice: 100}, // edit in place
			{ItemID: 3, LocationID: 1, Qty: 1, UnitPrice: 50},                // new line
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	require.Equal(t, first.ID, updated.Lines[0].ID)
	require.Equal(t, int64(5), updated.Lines[0].Qty)
	require.Equal(t, int64(3), updated.Lines[1].ItemID)
	for _, line := range updated.Lines {
		require.NotEqual(t, int64(2), line.ItemID, "unsubmitted line is deleted")
	}
	require.Equal(t, 550.0, updated.TotalAmount)
	require.Equal(t, 550.0, updated.FinalAmount)
}

func TestUpdateCompletedOrderKeepsStock(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100})
	require.NoError(t, svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted, 0))
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}])

	saved, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, order.ID, UpdateInput{
		CustomerName: "Ibu Sari",
		Status:       orders.StatusCompleted,
		Lines:        []LineInput{{ID: saved.Lines[0].ID, ItemID: 1, LocationID: 1, Qty: 3, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), repo.stock[[2]int64{1, 1}], "completed to completed must not deduct again")
}

func TestUpdateDeductsOnCompletionEdge(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stock[[2]int64{1, 1}] = 5
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 2, UnitPrice: 100})

	_, err := svc.Update(ctx, order.ID, UpdateInput{
		CustomerName: "Ibu Sari",
		Status:       orders.StatusCompleted,
		Lines:        []LineInput{{ID: order.Lines[0].ID, ItemID: 1, LocationID: 1, Qty: 2, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.stock[[2]int64{1, 1}])
}

func TestCreateValidation(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Lines: []LineInput{{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 10}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{CustomerName: "x"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{CustomerName: "x", Discount: -1, Lines: []LineInput{{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 10}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{CustomerName: "x", Lines: []LineInput{{ItemID: 1, LocationID: 1, Qty: 0, UnitPrice: 10}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateMissingOrder(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), 99, UpdateInput{CustomerName: "x", Lines: []LineInput{{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 10}}})
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.UpdateStatus(context.Background(), 99, orders.StatusCompleted, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

type recordingQueue struct {
	reasons []string
}

func (q *recordingQueue) EnqueueSummaryRefresh(ctx context.Context, reason string) error {
	q.reasons = append(q.reasons, reason)
	return nil
}

func TestCreateSchedulesSummaryRefresh(t *testing.T) {
	repo := newMemorySaleRepo()
	queue := &recordingQueue{}
	svc := NewService(repo, nil, nil, queue)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "Ibu Sari",
		Lines:        []LineInput{{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sale_create"}, queue.reasons)
}

func TestDiscountMustStayBelowTotal(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		CustomerName: "Ibu Sari",
		Discount:     150,
		Lines:        []LineInput{{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100}},
	})
	require.ErrorIs(t, err, ErrValidation)

	order := createPending(t, svc, LineInput{ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100})

	// an edit must not sneak a negative final amount past validation either
	_, err = svc.Update(ctx, order.ID, UpdateInput{
		CustomerName: "Ibu Sari",
		Discount:     150,
		Lines:        []LineInput{{ID: order.Lines[0].ID, ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100}},
	})
	require.ErrorIs(t, err, ErrValidation)

	// discount equal to total would zero the income entry; rejected too
	_, err = svc.Update(ctx, order.ID, UpdateInput{
		CustomerName: "Ibu Sari",
		Discount:     100,
		Lines:        []LineInput{{ID: order.Lines[0].ID, ItemID: 1, LocationID: 1, Qty: 1, UnitPrice: 100}},
	})
	require.ErrorIs(t, err, ErrValidation)

	saved, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, saved.FinalAmount, "rejected edits leave the stored order untouched")
}
