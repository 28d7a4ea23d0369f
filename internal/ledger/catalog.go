package ledger

import (
	"context"

	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/models"
	"pos-service/internal/retry"
	"pos-service/internal/util"
	"pos-service/internal/validate"

	"go.uber.org/zap"
)

// Catalog handles full-record product edits (the inventory editor
// surface). Stock adjustments still go through StockLedger only; an
// upsert overwrites the record wholesale, which is the catalog
// manager's explicit intent.
type Catalog struct {
	exec      *retry.Executor
	cache     *cache.SnapshotCache
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

func NewCatalog(exec *retry.Executor, snap *cache.SnapshotCache, publisher *broker.EventPublisher) *Catalog {
	return &Catalog{
		exec:      exec,
		cache:     snap,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Upsert validates and writes one product record, then patches the
// cache so the new entry displays immediately.
func (c *Catalog) Upsert(ctx context.Context, key models.ProductKey, p models.Product) error {
	ctx, span := util.StartSpan(ctx, "Catalog.Upsert")
	defer span.End()

	if key.Category == "" || key.Name == "" {
		return &models.ValidationError{Field: "producto", Reason: "category and name required"}
	}
	if err := validate.Product(p); err != nil {
		return err
	}

	err := c.exec.Do(ctx, "catalog.upsert", func(ctx context.Context) error {
		return c.exec.Store().Set(ctx, key.Path(), p)
	})
	if err != nil {
		return err
	}

	c.cache.PatchProduct(key, p)

	if err := c.publisher.PublishProductUpserted(ctx, key, p); err != nil {
		c.logger.Warn("Failed to publish catalog change",
			zap.String("product", key.String()),
			zap.Error(err))
	}

	c.logger.Info("Product upserted", zap.String("product", key.String()))
	return nil
}
