// Package cart implements the per-session reservation workflow. Stock
// is reserved at add-time through the stock ledger, so two cashiers
// can never both sell the last unit; the price paid for that is a
// window where an abandoned cart holds stock until Reset or the
// session sweeper releases it.
package cart

import (
	"context"
	"errors"
	"sort"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/ledger"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State of the cart lifecycle: Empty -> Building -> Committing and
// back to Empty on a successful commit or reset.
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateCommitting:
		return "committing"
	default:
		return "empty"
	}
}

// Cart belongs to exactly one session and is never shared; the
// session serializes access, so the cart itself holds no lock.
type Cart struct {
	stock  *ledger.StockLedger
	sales  *ledger.SaleLedger
	cache  *cache.SnapshotCache
	logger *zap.Logger

	state State
	lines map[models.ProductKey]models.CartLine
}

func New(stock *ledger.StockLedger, sales *ledger.SaleLedger, snap *cache.SnapshotCache) *Cart {
	return &Cart{
		stock:  stock,
		sales:  sales,
		cache:  snap,
		logger: util.GetLogger(),
		state:  StateEmpty,
		lines:  map[models.ProductKey]models.CartLine{},
	}
}

func (c *Cart) State() State {
	return c.state
}

// Lines returns the cart lines in a stable order.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Total is always recomputed from the lines, never cached.
func (c *Cart) Total() float64 {
	var sum float64
	for _, line := range c.lines {
		sum += float64(line.Quantity) * line.UnitPrice
	}
	return models.Round2(sum)
}

// AddLine reserves qty units of the product and adds them to the
// cart. Price and cost are snapshotted from the cache at this moment;
// an existing line keeps its original snapshot and only grows. On an
// insufficient-stock rejection the cart is unchanged and the returned
// error carries the maximum still addable quantity.
func (c *Cart) AddLine(ctx context.Context, key models.ProductKey, qty int) error {
	ctx, span := util.StartSpan(ctx, "Cart.AddLine")
	defer span.End()

	if qty <= 0 {
		return &models.ValidationError{Field: "cantidad", Reason: "quantity must be positive"}
	}

	// Resolve the price before touching the store, so a validation
	// failure never mutates stock.
	product, err := c.cache.Product(ctx, key)
	if err != nil {
		return err
	}

	if _, err := c.stock.Adjust(ctx, key, -qty); err != nil {
		return err
	}

	if line, ok := c.lines[key]; ok {
		line.Quantity += qty
		c.lines[key] = line
	} else {
		c.lines[key] = models.CartLine{
			Key:       key,
			Quantity:  qty,
			UnitPrice: product.Price,
			UnitCost:  product.Cost,
		}
	}
	c.state = StateBuilding
	return nil
}

// RemoveLine gives qty units back to inventory and shrinks or deletes
// the line. The restore is best effort: if the remote write fails the
// line is still removed locally and a PartialReleaseError surfaces as
// a warning, since a consistent cart matters more than exactly
// consistent inventory on this path.
func (c *Cart) RemoveLine(ctx context.Context, key models.ProductKey, qty int) error {
	ctx, span := util.StartSpan(ctx, "Cart.RemoveLine")
	defer span.End()

	if qty <= 0 {
		return &models.ValidationError{Field: "cantidad", Reason: "quantity must be positive"}
	}
	line, ok := c.lines[key]
	if !ok || line.Quantity < qty {
		return &models.ValidationError{Field: "producto", Reason: "cart does not hold that many units"}
	}

	var releaseErr error
	if _, err := c.stock.Adjust(ctx, key, qty); err != nil {
		util.CartReleasesFailedTotal.Inc()
		c.logger.Warn("Stock restore failed, removing line anyway",
			zap.String("product", key.String()),
			zap.Int("quantity", qty),
			zap.Error(err))
		releaseErr = &models.PartialReleaseError{Key: key, Qty: qty, Err: err}
	}

	line.Quantity -= qty
	if line.Quantity == 0 {
		delete(c.lines, key)
	} else {
		c.lines[key] = line
	}
	if len(c.lines) == 0 {
		c.state = StateEmpty
	}
	return releaseErr
}

// Commit validates the cart as a sale and appends it to the ledger.
// Stock was already decremented at add-time, so a failed append
// leaves the cart in Building and the cashier retries the commit
// without re-adding items or double-charging stock. Only a successful
// append clears the cart.
func (c *Cart) Commit(ctx context.Context, paymentMethod string) (models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "Cart.Commit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleCommitLatency.Observe(time.Since(start).Seconds())
	}()

	if len(c.lines) == 0 {
		return models.Sale{}, &models.ValidationError{Field: "productos", Reason: "cart is empty"}
	}

	c.state = StateCommitting
	sale := models.Sale{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		Lines:         c.Lines(),
		Total:         c.Total(),
		PaymentMethod: paymentMethod,
	}

	if err := c.sales.Append(ctx, sale); err != nil {
		c.state = StateBuilding
		var val *models.ValidationError
		if errors.As(err, &val) {
			util.SaleCommitFailedTotal.WithLabelValues("validation").Inc()
		} else {
			util.SaleCommitFailedTotal.WithLabelValues("remote").Inc()
		}
		return models.Sale{}, err
	}

	c.lines = map[models.ProductKey]models.CartLine{}
	c.state = StateEmpty
	return sale, nil
}

// Reset releases every reserved line best effort and always ends
// Empty. Individual release failures are reported but never stop the
// reset.
func (c *Cart) Reset(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Cart.Reset")
	defer span.End()

	var errs []error
	for key, line := range c.lines {
		if _, err := c.stock.Adjust(ctx, key, line.Quantity); err != nil {
			util.CartReleasesFailedTotal.Inc()
			c.logger.Warn("Release on reset failed",
				zap.String("product", key.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			errs = append(errs, &models.PartialReleaseError{Key: key, Qty: line.Quantity, Err: err})
		}
	}

	c.lines = map[models.ProductKey]models.CartLine{}
	c.state = StateEmpty
	return errors.Join(errs...)
}
