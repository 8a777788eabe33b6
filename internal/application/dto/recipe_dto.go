package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefineRecipeRequest body para POST /api/recipes.
type DefineRecipeRequest struct {
	ProductID       string                    `json:"product_id"`
	Name            string                    `json:"name"`
	Category        string                    `json:"category,omitempty"`
	Price           decimal.Decimal           `json:"price"`
	PreparationTime int                       `json:"preparation_time"`
	Ingredients     []RecipeIngredientRequest `json:"ingredients"`
}

// RecipeIngredientRequest consumo por unidad vendida.
type RecipeIngredientRequest struct {
	StockID  string          `json:"stock_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// RecipeResponse receta con sus insumos.
type RecipeResponse struct {
	ID              string                    `json:"id"`
	ProductID       string                    `json:"product_id"`
	Name            string                    `json:"name"`
	Category        string                    `json:"category,omitempty"`
	Price           decimal.Decimal           `json:"price"`
	PreparationTime int                       `json:"preparation_time"`
	Active          bool                      `json:"active"`
	Ingredients     []RecipeIngredientRequest `json:"ingredients"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// RecipeListResponse página de recetas.
type RecipeListResponse struct {
	Data []RecipeResponse `json:"data"`
	Page PageResponse     `json:"page"`
}
