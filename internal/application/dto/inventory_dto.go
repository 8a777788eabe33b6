package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateStockRequest body para POST /api/stock.
type CreateStockRequest struct {
	Name            string           `json:"name"`
	Unit            string           `json:"unit"`
	Category        string           `json:"category"` // "ingredient" | "final-product"
	Cost            decimal.Decimal  `json:"cost"`
	InitialQuantity decimal.Decimal  `json:"initial_quantity"`
	MinThreshold    *decimal.Decimal `json:"min_threshold,omitempty"`
}

// UpdateStockRequest body para PATCH /api/stock/:id. Solo cambian los campos presentes;
// la cantidad no se edita aquí, pasa siempre por un ajuste.
type UpdateStockRequest struct {
	Name              *string          `json:"name,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	MinThreshold      *decimal.Decimal `json:"min_threshold,omitempty"`
	ClearMinThreshold bool             `json:"clear_min_threshold,omitempty"`
	Quantity          *decimal.Decimal `json:"quantity,omitempty"`
}

// StockResponse registro de stock en respuestas.
type StockResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	Category     string           `json:"category"`
	Cost         decimal.Decimal  `json:"cost"`
	Quantity     decimal.Decimal  `json:"quantity"`
	MinThreshold *decimal.Decimal `json:"min_threshold,omitempty"`
	Version      int64            `json:"version"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// StockListResponse página de registros de stock.
type StockListResponse struct {
	Data []StockResponse `json:"data"`
	Page PageResponse    `json:"page"`
}

// ApplyAdjustmentRequest body para POST /api/inventory/adjustments.
type ApplyAdjustmentRequest struct {
	StockID        string          `json:"stock_id"`
	Kind           string          `json:"kind"` // "add" | "remove" | "set"
	Quantity       decimal.Decimal `json:"quantity"`
	ReasonCategory string          `json:"reason_category,omitempty"` // "waste" | "additional-use" | "manual-correction"
	Reason         string          `json:"reason"`
}

// AdjustmentResponse ajuste de inventario (registro de auditoría).
type AdjustmentResponse struct {
	ID             string          `json:"id"`
	StockID        string          `json:"stock_id"`
	Kind           string          `json:"kind"`
	RequestedQty   decimal.Decimal `json:"requested_quantity"`
	PreviousQty    decimal.Decimal `json:"previous_quantity"`
	ResultingQty   decimal.Decimal `json:"resulting_quantity"`
	ReasonCategory string          `json:"reason_category"`
	Reason         string          `json:"reason"`
	ActorID        string          `json:"actor_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AdjustmentHistoryResponse historial paginado de ajustes de un stock.
type AdjustmentHistoryResponse struct {
	StockID string               `json:"stock_id"`
	Data    []AdjustmentResponse `json:"data"`
	Page    PageResponse         `json:"page"`
}

// AdjustmentListResponse página de ajustes de todos los stocks.
type AdjustmentListResponse struct {
	Data []AdjustmentResponse `json:"data"`
	Page PageResponse         `json:"page"`
}

// LowStockSuggestionDTO registro bajo su umbral mínimo con la reposición sugerida.
type LowStockSuggestionDTO struct {
	StockID       string          `json:"stock_id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinThreshold  decimal.Decimal `json:"min_threshold"`
	IdealStock    decimal.Decimal `json:"ideal_stock"`         // MinThreshold * 1.5
	SuggestedQty  decimal.Decimal `json:"suggested_order_qty"` // IdealStock - CurrentStock
	EstimatedCost decimal.Decimal `json:"estimated_cost"`      // SuggestedQty * Cost
	Priority      int             `json:"priority"`            // 1 = más urgente
}
