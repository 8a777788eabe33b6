package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de venta. pending queda reservado para checkout en varios pasos.
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Métodos de pago aceptados.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// CustomerInfo datos opcionales del cliente en la venta.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// SaleLine línea de venta. Subtotal se recalcula siempre al crear.
type SaleLine struct {
	ProductID string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Subtotal  decimal.Decimal
}

// Sale transacción de venta. Una vez completed las líneas son inmutables;
// la única transición permitida es a cancelled.
type Sale struct {
	ID            string
	SaleNumber    string
	Customer      *CustomerInfo
	PaymentMethod string
	Notes         string
	Lines         []SaleLine
	Consumption   []StockDelta // deducciones aplicadas (con recetas expandidas); la anulación las invierte
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Status        string
	ActorID       string
	CancelledBy   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CancelledAt   *time.Time
}

// IsValidPaymentMethod verifica el método de pago.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}
