package repository

import (
	"context"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// RecipeRepository catálogo de recetas.
type RecipeRepository interface {
	// Save crea o reemplaza la receta del producto (una por producto).
	Save(ctx context.Context, r *entity.Recipe) error
	// GetActiveByProduct devuelve nil, nil si el producto no tiene receta activa.
	GetActiveByProduct(ctx context.Context, productID string) (*entity.Recipe, error)
	GetByID(ctx context.Context, id string) (*entity.Recipe, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Recipe, int, error)
	Deactivate(ctx context.Context, id string) error
	// IsStockReferenced indica si alguna receta activa usa el stock como producto o insumo.
	IsStockReferenced(ctx context.Context, stockID string) (bool, error)
}
