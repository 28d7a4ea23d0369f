package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/remote"
	"pos-service/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore wraps a memory store and fails reads on demand.
type flakyStore struct {
	remote.Store

	mu      sync.Mutex
	failGet bool
}

func (s *flakyStore) setFailGet(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = fail
}

func (s *flakyStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return s.Store.Get(ctx, path)
}

func newTestCache(t *testing.T, ttl time.Duration) (*SnapshotCache, *flakyStore) {
	t.Helper()
	flaky := &flakyStore{Store: remote.NewSeededMemoryStore()}
	exec := retry.NewExecutor(flaky, retry.NewHealth(), 1, time.Millisecond)
	return New(exec, ttl), flaky
}

func TestInventoryFreshAfterFetch(t *testing.T) {
	snap, _ := newTestCache(t, time.Minute)

	inv, fresh := snap.Inventory(context.Background())
	assert.True(t, fresh)
	assert.Equal(t, 200, inv["Bebidas"]["Café Grande"].Stock)
}

func TestInventoryStaleAfterTTLWithFailedFetch(t *testing.T) {
	snap, flaky := newTestCache(t, 20*time.Millisecond)
	ctx := context.Background()

	inv, fresh := snap.Inventory(ctx)
	require.True(t, fresh)
	require.Equal(t, 200, inv["Bebidas"]["Café Grande"].Stock)

	time.Sleep(30 * time.Millisecond)
	flaky.setFailGet(true)

	stale, fresh := snap.Inventory(ctx)
	assert.False(t, fresh)
	// Previously cached value, however old, is still served.
	assert.Equal(t, 200, stale["Bebidas"]["Café Grande"].Stock)
}

func TestInventorySeedFallbackOnFirstRunFailure(t *testing.T) {
	flaky := &flakyStore{Store: remote.NewMemoryStore()}
	flaky.setFailGet(true)
	exec := retry.NewExecutor(flaky, retry.NewHealth(), 1, time.Millisecond)
	snap := New(exec, time.Minute)

	inv, fresh := snap.Inventory(context.Background())
	assert.False(t, fresh)
	// No snapshot was ever fetched: the seed catalog keeps the
	// register usable offline.
	assert.Equal(t, models.SeedInventory()["Bebidas"]["Café Grande"], inv["Bebidas"]["Café Grande"])
}

func TestPatchStockVisibleWithoutRefetch(t *testing.T) {
	snap, flaky := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, fresh := snap.Inventory(ctx)
	require.True(t, fresh)

	key := models.ProductKey{Category: "Bebidas", Name: "Café Grande"}
	snap.PatchStock(key, 195)

	// Even with the remote down, readers see the patched value.
	flaky.setFailGet(true)
	inv, _ := snap.Inventory(ctx)
	assert.Equal(t, 195, inv["Bebidas"]["Café Grande"].Stock)
}

func TestSalesKeyedMapShape(t *testing.T) {
	snap, flaky := newTestCache(t, time.Minute)
	ctx := context.Background()

	sale := models.Sale{
		ID:        "abc",
		Timestamp: time.Now(),
		Lines: []models.CartLine{{
			Key:       models.ProductKey{Category: "Bebidas", Name: "Café Grande"},
			Quantity:  1,
			UnitPrice: 2.60,
			UnitCost:  1.30,
		}},
		Total:         2.60,
		PaymentMethod: models.PaymentCash,
	}
	require.NoError(t, flaky.Store.Set(ctx, "/sales/abc", sale))

	sales, fresh := snap.Sales(ctx)
	assert.True(t, fresh)
	require.Len(t, sales, 1)
	assert.Equal(t, "abc", sales[0].ID)
}

func TestSalesLegacyArrayShape(t *testing.T) {
	store := remote.NewMemoryStore()
	ctx := context.Background()

	legacy := []models.Sale{
		{ID: "s1", Timestamp: time.Now().Add(-time.Hour), Total: 5, PaymentMethod: models.PaymentCash},
		{ID: "s2", Timestamp: time.Now(), Total: 3, PaymentMethod: models.PaymentCash},
	}
	require.NoError(t, store.Set(ctx, "/sales", legacy))

	exec := retry.NewExecutor(store, retry.NewHealth(), 1, time.Millisecond)
	snap := New(exec, time.Minute)

	sales, fresh := snap.Sales(ctx)
	assert.True(t, fresh)
	require.Len(t, sales, 2)
	assert.Equal(t, "s1", sales[0].ID)
	assert.Equal(t, "s2", sales[1].ID)
}

func TestMalformedSalesPayloadFallsBack(t *testing.T) {
	store := remote.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "/sales", "not a ledger"))

	exec := retry.NewExecutor(store, retry.NewHealth(), 1, time.Millisecond)
	snap := New(exec, time.Minute)

	sales, fresh := snap.Sales(ctx)
	assert.False(t, fresh)
	assert.Empty(t, sales)
}

func TestAddSaleDeduplicates(t *testing.T) {
	snap, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, _ = snap.Sales(ctx)

	sale := models.Sale{ID: "dup", Timestamp: time.Now(), Total: 1, PaymentMethod: models.PaymentCash}
	snap.AddSale(sale)
	snap.AddSale(sale)

	sales, _ := snap.Sales(ctx)
	count := 0
	for _, s := range sales {
		if s.ID == "dup" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
