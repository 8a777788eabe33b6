package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Categorías de registro de stock.
const (
	StockCategoryIngredient   = "ingredient"    // insumo consumido por recetas
	StockCategoryFinalProduct = "final-product" // producto vendible
)

// StockRecord cantidad disponible de una entrada del catálogo.
// Quantity solo cambia a través del motor de ledger; Version aumenta en cada escritura
// y sirve como token para el compare-and-set optimista.
type StockRecord struct {
	ID           string
	Name         string
	Unit         string // unidad de medida: "und", "kg", "lt"...
	Category     string
	Cost         decimal.Decimal  // costo unitario de referencia
	Quantity     decimal.Decimal  // nunca negativa tras una operación confirmada
	MinThreshold *decimal.Decimal // umbral mínimo opcional para el reporte de reposición
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowThreshold indica si la cantidad actual está por debajo del umbral mínimo.
func (s *StockRecord) BelowThreshold() bool {
	return s.MinThreshold != nil && s.Quantity.LessThan(*s.MinThreshold)
}
