// Package ledger holds the two write paths of the system: the stock
// ledger, single authority for stock truth, and the append-only sale
// ledger.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/models"
	"pos-service/internal/retry"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockLedger mutates stock through exactly one operation, Adjust,
// backed by the remote store's compare-and-swap.
type StockLedger struct {
	exec      *retry.Executor
	cache     *cache.SnapshotCache
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

func NewStockLedger(exec *retry.Executor, snap *cache.SnapshotCache, publisher *broker.EventPublisher) *StockLedger {
	return &StockLedger{
		exec:      exec,
		cache:     snap,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Adjust applies delta to the product's stock. Negative consumes
// (cart add), positive restores (cart remove, restock). The
// read-modify-write runs under CAS; a decrement that would go
// negative aborts without writing and returns InsufficientStockError,
// which is never retried since retrying cannot create stock. On
// success the cached inventory is patched in place and a change event
// goes out best effort.
func (l *StockLedger) Adjust(ctx context.Context, key models.ProductKey, delta int) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Adjust")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockAdjustLatency.Observe(time.Since(start).Seconds())
	}()

	path := key.Path()
	var newStock int

	err := l.exec.Do(ctx, "stock.adjust", func(ctx context.Context) error {
		_, _, err := l.exec.Store().Transact(ctx, path, func(old json.RawMessage) (json.RawMessage, error) {
			var p models.Product
			if old != nil {
				if err := json.Unmarshal(old, &p); err != nil {
					return nil, &models.StructuralDataError{Path: path, Err: err}
				}
			}

			if p.Stock+delta < 0 {
				return nil, &models.InsufficientStockError{
					Key:       key,
					Requested: -delta,
					Available: p.Stock,
				}
			}

			p.Stock += delta
			newStock = p.Stock
			return json.Marshal(p)
		})
		return err
	})

	if err != nil {
		var ins *models.InsufficientStockError
		if errors.As(err, &ins) {
			util.StockAdjustmentsTotal.WithLabelValues("rejected").Inc()
			util.StockRejectionsTotal.Inc()
			return ins.Available, err
		}
		util.StockAdjustmentsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	util.StockAdjustmentsTotal.WithLabelValues("ok").Inc()
	l.cache.PatchStock(key, newStock)

	if err := l.publisher.PublishStockAdjusted(ctx, key, delta, newStock); err != nil {
		l.logger.Warn("Failed to publish stock change",
			zap.String("product", key.String()),
			zap.Error(err))
	}

	l.logger.Debug("Stock adjusted",
		zap.String("product", key.String()),
		zap.Int("delta", delta),
		zap.Int("new_stock", newStock))
	return newStock, nil
}
