package ports

import (
	"context"
	"time"
)

// Tipos de evento del libro de stock.
const (
	EventStockAdjusted = "stock.adjusted"
	EventStockLow      = "stock.low"
	EventSaleCreated   = "sale.created"
	EventSaleCancelled = "sale.cancelled"
)

// LedgerEvent notificación publicada después de confirmar una operación.
// AggregateID es el stock o la venta afectada y se usa como clave de partición.
type LedgerEvent struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	ActorID     string         `json:"actor_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// EventPublisher puerto de salida hacia el bus de eventos (Kafka o no-op).
type EventPublisher interface {
	Publish(ctx context.Context, events ...LedgerEvent) error
}
