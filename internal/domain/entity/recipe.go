package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeIngredient consumo de un insumo por cada unidad vendida del producto.
type RecipeIngredient struct {
	StockID  string
	Quantity decimal.Decimal
}

// Recipe asocia un producto terminado con los insumos que consume.
// Solo las recetas activas participan en la deducción y bloquean el borrado de stock.
type Recipe struct {
	ID              string
	ProductID       string
	Name            string
	Category        string
	Price           decimal.Decimal
	PreparationTime int // minutos
	Active          bool
	Ingredients     []RecipeIngredient
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StockDelta cambio de cantidad sobre un registro de stock.
type StockDelta struct {
	StockID  string
	Quantity decimal.Decimal
}
