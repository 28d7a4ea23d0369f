package ledger

import (
	"context"

	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/models"
	"pos-service/internal/retry"
	"pos-service/internal/util"
	"pos-service/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleLedger appends committed sales to the remote store. Each sale
// is pushed under its own key, /sales/{id}, so concurrent commits
// from different registers never rewrite each other. Prior entries
// are never edited or removed.
type SaleLedger struct {
	exec      *retry.Executor
	cache     *cache.SnapshotCache
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

func NewSaleLedger(exec *retry.Executor, snap *cache.SnapshotCache, publisher *broker.EventPublisher) *SaleLedger {
	return &SaleLedger{
		exec:      exec,
		cache:     snap,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Append durably records a sale. The caller is expected to have
// validated it; the check is repeated here defensively so a bad
// record can never reach the ledger.
func (l *SaleLedger) Append(ctx context.Context, sale models.Sale) error {
	ctx, span := util.StartSpan(ctx, "SaleLedger.Append")
	defer span.End()

	if err := validate.Sale(sale); err != nil {
		return err
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}

	path := "/sales/" + sale.ID
	err := l.exec.Do(ctx, "sales.append", func(ctx context.Context) error {
		return l.exec.Store().Set(ctx, path, sale)
	})
	if err != nil {
		return err
	}

	l.cache.AddSale(sale)
	util.SalesCommittedTotal.WithLabelValues(sale.PaymentMethod).Inc()

	if err := l.publisher.PublishSaleCommitted(ctx, sale); err != nil {
		l.logger.Warn("Failed to publish sale event",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
	}

	l.logger.Info("Sale recorded",
		zap.String("sale_id", sale.ID),
		zap.Float64("total", sale.Total),
		zap.String("payment_method", sale.PaymentMethod))
	return nil
}
