package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyAccumulatesDeltas(t *testing.T) {
	qty := int64(0)
	deltas := []int64{5, 3, -2, 10, -6}
	var sum int64
	for _, d := range deltas {
		next, err := Apply(1, 1, qty, d)
		require.NoError(t, err)
		qty = next
		sum += d
	}
	require.Equal(t, sum, qty)
}

func TestApplyRejectsNegativeResult(t *testing.T) {
	qty, err := Apply(7, 2, 5, -6)

	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, int64(5), qty, "failed adjustment must not mutate")

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, int64(7), stockErr.ItemID)
	require.Equal(t, int64(2), stockErr.LocationID)
	require.Equal(t, int64(5), stockErr.Available)
	require.Equal(t, int64(6), stockErr.Requested)
}

func TestApplyRejectsOutboundFromEmptyRecord(t *testing.T) {
	_, err := Apply(1, 1, 0, -1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestApplyRejectsZeroDelta(t *testing.T) {
	_, err := Apply(1, 1, 4, 0)
	require.ErrorIs(t, err, ErrInvalidDelta)
}

type memoryInventoryRepo struct {
	qty map[[2]int64]int64
}

func (r *memoryInventoryRepo) GetQuantity(ctx context.Context, itemID, locationID int64) (int64, error) {
	return r.qty[[2]int64{itemID, locationID}], nil
}

func (r *memoryInventoryRepo) ListByLocation(ctx context.Context, locationID int64) ([]Record, error) {
	var records []Record
	for key, qty := range r.qty {
		if key[1] == locationID {
			records = append(records, Record{ItemID: key[0], LocationID: locationID, Qty: qty})
		}
	}
	return records, nil
}

func TestServiceGetQuantity(t *testing.T) {
	repo := &memoryInventoryRepo{qty: map[[2]int64]int64{{4, 1}: 12}}
	svc := NewService(repo)
	ctx := context.Background()

	qty, err := svc.GetQuantity(ctx, 4, 1)
	require.NoError(t, err)
	require.Equal(t, int64(12), qty)

	qty, err = svc.GetQuantity(ctx, 99, 1)
	require.NoError(t, err)
	require.Zero(t, qty, "missing record reads as zero")

	_, err = svc.GetQuantity(ctx, 0, 1)
	require.Error(t, err)
}
