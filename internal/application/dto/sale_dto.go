package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSaleRequest body para POST /api/sales.
type CreateSaleRequest struct {
	Lines         []SaleLineRequest `json:"lines"`
	PaymentMethod string            `json:"payment_method"`
	Customer      *CustomerInfoDTO  `json:"customer,omitempty"`
	Discount      decimal.Decimal   `json:"discount"`
	Notes         string            `json:"notes,omitempty"`
}

// SaleLineRequest línea de venta. El subtotal nunca se recibe del cliente.
type SaleLineRequest struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// CustomerInfoDTO datos opcionales del cliente.
type CustomerInfoDTO struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// SaleLineResponse línea con subtotal calculado.
type SaleLineResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// StockConsumptionDTO cantidad descontada de un stock por la venta.
type StockConsumptionDTO struct {
	StockID  string          `json:"stock_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SaleResponse venta completa.
type SaleResponse struct {
	ID            string                `json:"id"`
	SaleNumber    string                `json:"sale_number"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	Customer      *CustomerInfoDTO      `json:"customer,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Lines         []SaleLineResponse    `json:"lines"`
	Consumption   []StockConsumptionDTO `json:"consumption"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	Tax           decimal.Decimal       `json:"tax"`
	Discount      decimal.Decimal       `json:"discount"`
	Total         decimal.Decimal       `json:"total"`
	ActorID       string                `json:"actor_id"`
	CancelledBy   string                `json:"cancelled_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
}

// SaleTotalsResponse proyección de totales de una venta.
type SaleTotalsResponse struct {
	SaleID     string          `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	Status     string          `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// SaleListResponse página de ventas.
type SaleListResponse struct {
	Data []SaleResponse `json:"data"`
	Page PageResponse   `json:"page"`
}
