package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/models"
	"pos-service/internal/remote"
	"pos-service/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSalesFixture(t *testing.T) (*SaleLedger, *cache.SnapshotCache, *remote.MemoryStore) {
	t.Helper()
	store := remote.NewMemoryStore()
	exec := retry.NewExecutor(store, retry.NewHealth(), 3, time.Millisecond)
	snap := cache.New(exec, time.Minute)
	return NewSaleLedger(exec, snap, nil), snap, store
}

func testSale(id string, total float64) models.Sale {
	return models.Sale{
		ID:        id,
		Timestamp: time.Now(),
		Lines: []models.CartLine{{
			Key:       models.ProductKey{Category: "Bebidas", Name: "Café Grande"},
			Quantity:  1,
			UnitPrice: total,
			UnitCost:  total / 2,
		}},
		Total:         total,
		PaymentMethod: models.PaymentCash,
	}
}

func TestAppendWritesKeyedRecord(t *testing.T) {
	ledger, _, store := newSalesFixture(t)
	ctx := context.Background()

	sale := testSale("sale-1", 2.60)
	require.NoError(t, ledger.Append(ctx, sale))

	raw, err := store.Get(ctx, "/sales/sale-1")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var got models.Sale
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, sale.ID, got.ID)
	assert.InDelta(t, 2.60, got.Total, 0.001)
	assert.Equal(t, models.PaymentCash, got.PaymentMethod)
}

func TestAppendLeavesPriorEntriesUntouched(t *testing.T) {
	ledger, _, store := newSalesFixture(t)
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, testSale("sale-1", 2.60)))

	before, err := store.Get(ctx, "/sales/sale-1")
	require.NoError(t, err)

	require.NoError(t, ledger.Append(ctx, testSale("sale-2", 5.20)))

	after, err := store.Get(ctx, "/sales/sale-1")
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	raw, err := store.Get(ctx, "/sales")
	require.NoError(t, err)
	var keyed map[string]models.Sale
	require.NoError(t, json.Unmarshal(raw, &keyed))
	assert.Len(t, keyed, 2)
}

func TestAppendRejectsInvalidSale(t *testing.T) {
	ledger, _, store := newSalesFixture(t)
	ctx := context.Background()

	bad := testSale("sale-1", 2.60)
	bad.PaymentMethod = "Trueque"

	err := ledger.Append(ctx, bad)
	var val *models.ValidationError
	require.ErrorAs(t, err, &val)

	raw, err := store.Get(ctx, "/sales")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestAppendUpdatesCache(t *testing.T) {
	ledger, snap, _ := newSalesFixture(t)
	ctx := context.Background()

	_, fresh := snap.Sales(ctx)
	require.True(t, fresh)

	require.NoError(t, ledger.Append(ctx, testSale("sale-1", 2.60)))

	sales, _ := snap.Sales(ctx)
	require.Len(t, sales, 1)
	assert.Equal(t, "sale-1", sales[0].ID)
}
