// Package worker runs the background tasks: applying remote change
// events to the snapshot cache, archiving committed sales, and the
// periodic snapshot refresh.
package worker

import (
	"context"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// CacheWorker consumes store change events and patches the snapshot
// cache in place, so changes made by other registers show up without
// waiting for the TTL.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

func NewCacheWorker(consumer *broker.Consumer, snap *cache.SnapshotCache) *CacheWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnStockAdjusted(func(_ context.Context, event *broker.StockAdjustedEvent) error {
		snap.PatchStock(event.Key, event.NewStock)
		return nil
	})
	eventHandler.OnSaleCommitted(func(_ context.Context, event *broker.SaleCommittedEvent) error {
		snap.AddSale(event.Sale)
		return nil
	})
	eventHandler.OnProductUpserted(func(_ context.Context, event *broker.ProductUpsertedEvent) error {
		snap.PatchProduct(event.Key, event.Product)
		return nil
	})

	return &CacheWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping cache worker")
	return w.consumer.Close()
}

// ArchiveWorker mirrors committed sales into the Postgres archive.
type ArchiveWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

func NewArchiveWorker(consumer *broker.Consumer, archive *store.Archive) *ArchiveWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSaleCommitted(func(ctx context.Context, event *broker.SaleCommittedEvent) error {
		return archive.InsertSale(ctx, event.Sale)
	})

	return &ArchiveWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

func (w *ArchiveWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting archive worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *ArchiveWorker) Stop() error {
	w.logger.Info("Stopping archive worker")
	return w.consumer.Close()
}

// RefreshWorker re-fetches both snapshots on a timer, keeping the
// display path warm independently of reads.
type RefreshWorker struct {
	cache  *cache.SnapshotCache
	every  time.Duration
	logger *zap.Logger
}

func NewRefreshWorker(snap *cache.SnapshotCache, every time.Duration) *RefreshWorker {
	return &RefreshWorker{
		cache:  snap,
		every:  every,
		logger: util.GetLogger(),
	}
}

func (w *RefreshWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cache.Refresh(ctx, cache.KindInventory); err != nil {
				w.logger.Warn("Periodic inventory refresh failed", zap.Error(err))
			}
			if err := w.cache.Refresh(ctx, cache.KindSales); err != nil {
				w.logger.Warn("Periodic sales refresh failed", zap.Error(err))
			}
		}
	}
}
