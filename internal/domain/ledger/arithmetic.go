// Package ledger contiene la aritmética pura del libro de stock: subtotales de
// línea, totales de venta y combinación de ajustes. Sin I/O.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// MoneyPlaces decimales con que se redondean los importes monetarios.
const MoneyPlaces = 2

// Line entrada mínima para calcular el subtotal de una línea.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// Totals resultado agregado de una venta.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// LineSubtotal = quantity × (unitPrice − discount), redondeado a MoneyPlaces. El descuento
// de línea es por unidad vendida: 2 × (10 − 1) = 18. Falla si el resultado es negativo.
func LineSubtotal(quantity, unitPrice, discount decimal.Decimal) (decimal.Decimal, error) {
	if unitPrice.IsNegative() {
		return decimal.Zero, domain.NewValidationError("unit_price", "no puede ser negativo")
	}
	if discount.IsNegative() {
		return decimal.Zero, domain.NewValidationError("discount", "no puede ser negativo")
	}
	subtotal := quantity.Mul(unitPrice.Sub(discount))
	if subtotal.IsNegative() {
		return decimal.Zero, domain.NewValidationError("discount", "el descuento supera el precio unitario")
	}
	return subtotal.Round(MoneyPlaces), nil
}

// SaleTotals suma los subtotales de línea (ya redondeados) y aplica impuesto y descuento
// global. tax = subtotal × taxRate; total = subtotal + tax − saleDiscount. Todos los
// importes salen con MoneyPlaces decimales, de modo que total = subtotal + tax − discount
// se cumple también sobre lo persistido.
func SaleTotals(lines []Line, taxRate, saleDiscount decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, domain.NewValidationError("tax_rate", "no puede ser negativa")
	}
	if saleDiscount.IsNegative() {
		return Totals{}, domain.NewValidationError("discount", "no puede ser negativo")
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		s, err := LineSubtotal(l.Quantity, l.UnitPrice, l.Discount)
		if err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(s)
	}
	saleDiscount = saleDiscount.Round(MoneyPlaces)
	tax := subtotal.Mul(taxRate).Round(MoneyPlaces)
	total := subtotal.Add(tax).Sub(saleDiscount)
	if total.IsNegative() {
		return Totals{}, domain.NewValidationError("discount", "el descuento supera el total de la venta")
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: saleDiscount,
		Total:    total,
	}, nil
}

// ApplyAdjustmentKind combina la cantidad anterior con la solicitada según el tipo:
//
//	add    → previous + requested
//	remove → previous − requested (InsufficientStockError si queda negativo)
//	set    → requested
func ApplyAdjustmentKind(previous decimal.Decimal, kind string, requested decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateRequested(kind, requested); err != nil {
		return decimal.Zero, err
	}
	switch kind {
	case entity.AdjustmentAdd:
		return previous.Add(requested), nil
	case entity.AdjustmentRemove:
		resulting := previous.Sub(requested)
		if resulting.IsNegative() {
			return decimal.Zero, &domain.InsufficientStockError{Available: previous, Requested: requested}
		}
		return resulting, nil
	default:
		return requested, nil
	}
}

// ValidateRequested: add/remove exigen cantidad > 0, set exige cantidad ≥ 0.
func ValidateRequested(kind string, requested decimal.Decimal) error {
	switch kind {
	case entity.AdjustmentAdd, entity.AdjustmentRemove:
		if !requested.IsPositive() {
			return domain.NewValidationError("quantity", "debe ser mayor que cero")
		}
	case entity.AdjustmentSet:
		if requested.IsNegative() {
			return domain.NewValidationError("quantity", "no puede ser negativa")
		}
	default:
		return domain.NewValidationError("kind", "tipo de ajuste desconocido: "+kind)
	}
	return nil
}

// Delta diferencia firmada que produce un ajuste (resulting − previous).
func Delta(previous, resulting decimal.Decimal) decimal.Decimal {
	return resulting.Sub(previous)
}

// MergeDeltas agrupa deltas por stock conservando el orden de primera aparición.
func MergeDeltas(deltas []entity.StockDelta) []entity.StockDelta {
	idx := make(map[string]int, len(deltas))
	out := make([]entity.StockDelta, 0, len(deltas))
	for _, d := range deltas {
		if i, ok := idx[d.StockID]; ok {
			out[i].Quantity = out[i].Quantity.Add(d.Quantity)
			continue
		}
		idx[d.StockID] = len(out)
		out = append(out, d)
	}
	return out
}

// Negate invierte el signo de cada delta (inverso exacto para la anulación).
func Negate(deltas []entity.StockDelta) []entity.StockDelta {
	out := make([]entity.StockDelta, len(deltas))
	for i, d := range deltas {
		out[i] = entity.StockDelta{StockID: d.StockID, Quantity: d.Quantity.Neg()}
	}
	return out
}
