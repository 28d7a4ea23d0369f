package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types
const (
	EventTypeStockAdjusted   = "STOCK_ADJUSTED"
	EventTypeSaleCommitted   = "SALE_COMMITTED"
	EventTypeProductUpserted = "PRODUCT_UPSERTED"
)

// BaseEvent contains common fields for all change events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// StockAdjustedEvent published after a successful stock adjustment
type StockAdjustedEvent struct {
	BaseEvent
	Key      models.ProductKey `json:"key"`
	Delta    int               `json:"delta"`
	NewStock int               `json:"new_stock"`
}

// SaleCommittedEvent published after a sale lands on the ledger
type SaleCommittedEvent struct {
	BaseEvent
	Sale models.Sale `json:"sale"`
}

// ProductUpsertedEvent published after a catalog edit
type ProductUpsertedEvent struct {
	BaseEvent
	Key     models.ProductKey `json:"key"`
	Product models.Product    `json:"product"`
}

// EventPublisher publishes store change notifications. A nil
// publisher is valid and drops everything, so components work without
// a broker (offline mode, tests).
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer, logger: util.GetLogger()}
}

// PublishStockAdjusted notifies subscribers of a stock change. Events
// are keyed per product so per-key ordering survives partitioning.
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, key models.ProductKey, delta, newStock int) error {
	if ep == nil || ep.producer == nil {
		return nil
	}
	event := &StockAdjustedEvent{
		BaseEvent: newBaseEvent(EventTypeStockAdjusted),
		Key:       key,
		Delta:     delta,
		NewStock:  newStock,
	}
	return ep.producer.PublishEvent(ctx, "stock-"+key.String(), event)
}

// PublishSaleCommitted notifies subscribers of a committed sale.
func (ep *EventPublisher) PublishSaleCommitted(ctx context.Context, sale models.Sale) error {
	if ep == nil || ep.producer == nil {
		return nil
	}
	event := &SaleCommittedEvent{
		BaseEvent: newBaseEvent(EventTypeSaleCommitted),
		Sale:      sale,
	}
	return ep.producer.PublishEvent(ctx, "sale-"+sale.ID, event)
}

// PublishProductUpserted notifies subscribers of a catalog edit.
func (ep *EventPublisher) PublishProductUpserted(ctx context.Context, key models.ProductKey, p models.Product) error {
	if ep == nil || ep.producer == nil {
		return nil
	}
	event := &ProductUpsertedEvent{
		BaseEvent: newBaseEvent(EventTypeProductUpserted),
		Key:       key,
		Product:   p,
	}
	return ep.producer.PublishEvent(ctx, "product-"+key.String(), event)
}

// EventHandler routes incoming change events to registered callbacks
type EventHandler struct {
	onStockAdjusted   func(context.Context, *StockAdjustedEvent) error
	onSaleCommitted   func(context.Context, *SaleCommittedEvent) error
	onProductUpserted func(context.Context, *ProductUpsertedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockAdjusted registers a handler for StockAdjusted events
func (eh *EventHandler) OnStockAdjusted(handler func(context.Context, *StockAdjustedEvent) error) {
	eh.onStockAdjusted = handler
}

// OnSaleCommitted registers a handler for SaleCommitted events
func (eh *EventHandler) OnSaleCommitted(handler func(context.Context, *SaleCommittedEvent) error) {
	eh.onSaleCommitted = handler
}

// OnProductUpserted registers a handler for ProductUpserted events
func (eh *EventHandler) OnProductUpserted(handler func(context.Context, *ProductUpsertedEvent) error) {
	eh.onProductUpserted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch base.EventType {
	case EventTypeStockAdjusted:
		if eh.onStockAdjusted != nil {
			var event StockAdjustedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockAdjusted event: %w", err)
			}
			return eh.onStockAdjusted(ctx, &event)
		}

	case EventTypeSaleCommitted:
		if eh.onSaleCommitted != nil {
			var event SaleCommittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCommitted event: %w", err)
			}
			return eh.onSaleCommitted(ctx, &event)
		}

	case EventTypeProductUpserted:
		if eh.onProductUpserted != nil {
			var event ProductUpsertedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductUpserted event: %w", err)
			}
			return eh.onProductUpserted(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", base.EventType))
	}

	return nil
}
