package recipe

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// Resolver expande un producto vendido en el consumo de sus insumos.
type Resolver struct {
	recipes repository.RecipeRepository
	stocks  repository.StockRepository
}

// NewResolver construye el resolvedor de recetas.
func NewResolver(recipes repository.RecipeRepository, stocks repository.StockRepository) *Resolver {
	return &Resolver{recipes: recipes, stocks: stocks}
}

// Expand devuelve la lista (insumo, cantidad consumida) para vender soldQty unidades
// de productID. Sin receta activa devuelve una única entrada sobre el propio producto.
// Cada insumo se verifica contra el catálogo porque pudo borrarse después de definir la receta.
func (r *Resolver) Expand(ctx context.Context, productID string, soldQty decimal.Decimal) ([]entity.StockDelta, error) {
	if !soldQty.IsPositive() {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	rec, err := r.recipes.GetActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", productID, err)
	}
	if rec == nil {
		return []entity.StockDelta{{StockID: productID, Quantity: soldQty}}, nil
	}

	out := make([]entity.StockDelta, 0, len(rec.Ingredients))
	for _, ing := range rec.Ingredients {
		s, err := r.stocks.GetByID(ctx, ing.StockID)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", productID, err)
		}
		if s == nil {
			return nil, &domain.NotFoundError{Resource: "ingrediente", ID: ing.StockID}
		}
		out = append(out, entity.StockDelta{StockID: ing.StockID, Quantity: soldQty.Mul(ing.Quantity)})
	}
	return out, nil
}
