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

func TestCatalogUpsert(t *testing.T) {
	store := remote.NewSeededMemoryStore()
	exec := retry.NewExecutor(store, retry.NewHealth(), 3, time.Millisecond)
	snap := cache.New(exec, time.Minute)
	catalog := NewCatalog(exec, snap, nil)
	ctx := context.Background()

	_, fresh := snap.Inventory(ctx)
	require.True(t, fresh)

	key := models.ProductKey{Category: "Bebidas", Name: "Limonada"}
	p := models.Product{Price: 2.00, Cost: 1.00, Stock: 50}
	require.NoError(t, catalog.Upsert(ctx, key, p))

	raw, err := store.Get(ctx, key.Path())
	require.NoError(t, err)
	var got models.Product
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, p, got)

	inv, _ := snap.Inventory(ctx)
	assert.Equal(t, p, inv["Bebidas"]["Limonada"])
}

func TestCatalogUpsertRejectsInvalidProduct(t *testing.T) {
	store := remote.NewMemoryStore()
	exec := retry.NewExecutor(store, retry.NewHealth(), 3, time.Millisecond)
	snap := cache.New(exec, time.Minute)
	catalog := NewCatalog(exec, snap, nil)
	ctx := context.Background()

	key := models.ProductKey{Category: "Bebidas", Name: "Limonada"}
	err := catalog.Upsert(ctx, key, models.Product{Price: -1})

	var val *models.ValidationError
	require.ErrorAs(t, err, &val)

	raw, err := store.Get(ctx, key.Path())
	require.NoError(t, err)
	assert.Nil(t, raw)
}
