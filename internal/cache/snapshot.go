// Package cache keeps TTL-bounded snapshots of the two remote
// aggregates (inventory tree, sales list) so reads survive remote
// latency and outages. The cache is a read-path optimization only;
// it is never authoritative for stock decisions.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/retry"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// Kind names a cached aggregate.
type Kind string

const (
	KindInventory Kind = "inventory"
	KindSales     Kind = "sales"
)

const (
	inventoryPath = "/inventory"
	salesPath     = "/sales"
)

// SnapshotCache serves the UI/query path. On a stale read it fetches
// through the retry executor; on failure it degrades to the last
// known snapshot, and to the seed catalog when nothing was ever
// fetched.
type SnapshotCache struct {
	exec   *retry.Executor
	ttl    time.Duration
	logger *zap.Logger

	mu           sync.RWMutex
	inventory    models.Inventory
	invFetched   time.Time
	sales        []models.Sale
	salesFetched time.Time
	hasSales     bool
}

func New(exec *retry.Executor, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		exec:   exec,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Inventory returns the catalog snapshot and whether it is fresh.
func (c *SnapshotCache) Inventory(ctx context.Context) (models.Inventory, bool) {
	c.mu.RLock()
	if c.inventory != nil && time.Since(c.invFetched) < c.ttl {
		inv := c.inventory.Clone()
		c.mu.RUnlock()
		util.CacheReadsTotal.WithLabelValues(string(KindInventory), "true").Inc()
		return inv, true
	}
	c.mu.RUnlock()

	if err := c.Refresh(ctx, KindInventory); err != nil {
		c.logger.Warn("Inventory refresh failed, serving stale data", zap.Error(err))
		util.CacheReadsTotal.WithLabelValues(string(KindInventory), "false").Inc()

		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.inventory != nil {
			return c.inventory.Clone(), false
		}
		return models.SeedInventory(), false
	}

	util.CacheReadsTotal.WithLabelValues(string(KindInventory), "true").Inc()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inventory.Clone(), true
}

// Sales returns the sales snapshot and whether it is fresh.
func (c *SnapshotCache) Sales(ctx context.Context) ([]models.Sale, bool) {
	c.mu.RLock()
	if c.hasSales && time.Since(c.salesFetched) < c.ttl {
		sales := cloneSales(c.sales)
		c.mu.RUnlock()
		util.CacheReadsTotal.WithLabelValues(string(KindSales), "true").Inc()
		return sales, true
	}
	c.mu.RUnlock()

	if err := c.Refresh(ctx, KindSales); err != nil {
		c.logger.Warn("Sales refresh failed, serving stale data", zap.Error(err))
		util.CacheReadsTotal.WithLabelValues(string(KindSales), "false").Inc()

		c.mu.RLock()
		defer c.mu.RUnlock()
		return cloneSales(c.sales), false
	}

	util.CacheReadsTotal.WithLabelValues(string(KindSales), "true").Inc()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSales(c.sales), true
}

// Product resolves a single catalog entry from the snapshot, fresh or
// stale. Cart lines snapshot their price and cost from here.
func (c *SnapshotCache) Product(ctx context.Context, key models.ProductKey) (models.Product, error) {
	inv, _ := c.Inventory(ctx)
	products, ok := inv[key.Category]
	if !ok {
		return models.Product{}, &models.ValidationError{Field: "categoria", Reason: "unknown category " + key.Category}
	}
	p, ok := products[key.Name]
	if !ok {
		return models.Product{}, &models.ValidationError{Field: "producto", Reason: "unknown product " + key.Name}
	}
	return p, nil
}

// Refresh fetches one aggregate through the retry executor and
// replaces the snapshot on success.
func (c *SnapshotCache) Refresh(ctx context.Context, kind Kind) error {
	switch kind {
	case KindInventory:
		inv, err := retry.Call(ctx, c.exec, "cache.fetch_inventory", c.fetchInventory)
		if err != nil {
			util.CacheRefreshFailuresTotal.WithLabelValues(string(KindInventory)).Inc()
			return err
		}
		c.mu.Lock()
		c.inventory = inv
		c.invFetched = time.Now()
		c.mu.Unlock()
		return nil

	case KindSales:
		sales, err := retry.Call(ctx, c.exec, "cache.fetch_sales", c.fetchSales)
		if err != nil {
			util.CacheRefreshFailuresTotal.WithLabelValues(string(KindSales)).Inc()
			return err
		}
		c.mu.Lock()
		c.sales = sales
		c.salesFetched = time.Now()
		c.hasSales = true
		c.mu.Unlock()
		return nil
	}
	return nil
}

// PatchStock updates the cached stock for one product in place, so
// readers see a successful adjustment without waiting for the TTL.
func (c *SnapshotCache) PatchStock(key models.ProductKey, newStock int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inventory == nil {
		return
	}
	products, ok := c.inventory[key.Category]
	if !ok {
		products = map[string]models.Product{}
		c.inventory[key.Category] = products
	}
	p := products[key.Name]
	p.Stock = newStock
	products[key.Name] = p
}

// PatchProduct replaces one cached catalog entry after an upsert.
func (c *SnapshotCache) PatchProduct(key models.ProductKey, p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inventory == nil {
		return
	}
	products, ok := c.inventory[key.Category]
	if !ok {
		products = map[string]models.Product{}
		c.inventory[key.Category] = products
	}
	products[key.Name] = p
}

// AddSale appends a committed sale to the cached list in place.
func (c *SnapshotCache) AddSale(sale models.Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sales {
		if s.ID == sale.ID {
			return
		}
	}
	c.sales = append(c.sales, sale)
	c.hasSales = true
}

func (c *SnapshotCache) fetchInventory(ctx context.Context) (models.Inventory, error) {
	raw, err := c.exec.Store().Get(ctx, inventoryPath)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return models.Inventory{}, nil
	}

	var inv models.Inventory
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, &models.StructuralDataError{Path: inventoryPath, Err: err}
	}
	return inv, nil
}

// fetchSales accepts both ledger shapes: the keyed map written by this
// service and the flat array an earlier register left behind.
func (c *SnapshotCache) fetchSales(ctx context.Context) ([]models.Sale, error) {
	raw, err := c.exec.Store().Get(ctx, salesPath)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []models.Sale{}, nil
	}

	var keyed map[string]models.Sale
	if err := json.Unmarshal(raw, &keyed); err == nil {
		sales := make([]models.Sale, 0, len(keyed))
		for id, s := range keyed {
			if s.ID == "" {
				s.ID = id
			}
			sales = append(sales, s)
		}
		sortSales(sales)
		return sales, nil
	}

	var list []models.Sale
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &models.StructuralDataError{Path: salesPath, Err: err}
	}
	sortSales(list)
	return list, nil
}

func sortSales(sales []models.Sale) {
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].Timestamp.Equal(sales[j].Timestamp) {
			return sales[i].ID < sales[j].ID
		}
		return sales[i].Timestamp.Before(sales[j].Timestamp)
	})
}

func cloneSales(sales []models.Sale) []models.Sale {
	out := make([]models.Sale, len(sales))
	copy(out, sales)
	return out
}
