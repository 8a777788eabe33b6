package recipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// UseCase definición y consulta de recetas.
type UseCase struct {
	recipes repository.RecipeRepository
	stocks  repository.StockRepository
	log     zerolog.Logger
}

// NewUseCase construye el caso de uso de recetas.
func NewUseCase(recipes repository.RecipeRepository, stocks repository.StockRepository, log zerolog.Logger) *UseCase {
	return &UseCase{recipes: recipes, stocks: stocks, log: log}
}

// Define crea o reemplaza la receta activa del producto. Todos los insumos deben
// existir en el catálogo (NotFoundError nombrando el faltante).
func (uc *UseCase) Define(ctx context.Context, in dto.DefineRecipeRequest) (*dto.RecipeResponse, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.NewValidationError("product_id", "requerido")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "requerido")
	}
	if len(in.Ingredients) == 0 {
		return nil, domain.NewValidationError("ingredients", "la receta necesita al menos un insumo")
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "no puede ser negativo")
	}
	if in.PreparationTime < 0 {
		return nil, domain.NewValidationError("preparation_time", "no puede ser negativo")
	}

	product, err := uc.stocks.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("define recipe: %w", err)
	}
	if product == nil {
		return nil, &domain.NotFoundError{Resource: "producto", ID: in.ProductID}
	}

	seen := make(map[string]bool, len(in.Ingredients))
	ingredients := make([]entity.RecipeIngredient, 0, len(in.Ingredients))
	for i, ing := range in.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		if ing.StockID == in.ProductID {
			return nil, domain.NewValidationError(field, "el producto no puede ser insumo de sí mismo")
		}
		if seen[ing.StockID] {
			return nil, domain.NewValidationError(field, "insumo repetido: "+ing.StockID)
		}
		if !ing.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field, "la cantidad por unidad debe ser mayor que cero")
		}
		s, err := uc.stocks.GetByID(ctx, ing.StockID)
		if err != nil {
			return nil, fmt.Errorf("define recipe: %w", err)
		}
		if s == nil {
			return nil, &domain.NotFoundError{Resource: "ingrediente", ID: ing.StockID}
		}
		seen[ing.StockID] = true
		ingredients = append(ingredients, entity.RecipeIngredient{StockID: ing.StockID, Quantity: ing.Quantity})
	}

	rec := &entity.Recipe{
		ProductID:       in.ProductID,
		Name:            strings.TrimSpace(in.Name),
		Category:        in.Category,
		Price:           in.Price,
		PreparationTime: in.PreparationTime,
		Active:          true,
		Ingredients:     ingredients,
	}
	if err := uc.recipes.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("define recipe: %w", err)
	}
	uc.log.Info().
		Str("recipe_id", rec.ID).
		Str("product_id", rec.ProductID).
		Int("ingredients", len(ingredients)).
		Msg("receta definida")
	resp := toResponse(rec)
	return &resp, nil
}

// GetByProduct devuelve la receta activa de un producto.
func (uc *UseCase) GetByProduct(ctx context.Context, productID string) (*dto.RecipeResponse, error) {
	rec, err := uc.recipes.GetActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "receta", ID: productID}
	}
	resp := toResponse(rec)
	return &resp, nil
}

// List recetas paginadas.
func (uc *UseCase) List(ctx context.Context, page dto.PageRequest) (*dto.RecipeListResponse, error) {
	page.DefaultPage()
	list, total, err := uc.recipes.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	out := &dto.RecipeListResponse{
		Data: make([]dto.RecipeResponse, 0, len(list)),
		Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, r := range list {
		out.Data = append(out.Data, toResponse(r))
	}
	return out, nil
}

// Deactivate desactiva la receta; deja de expandirse y de bloquear el borrado de sus insumos.
func (uc *UseCase) Deactivate(ctx context.Context, id string) error {
	rec, err := uc.recipes.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivate recipe: %w", err)
	}
	if rec == nil {
		return &domain.NotFoundError{Resource: "receta", ID: id}
	}
	if !rec.Active {
		return &domain.InvalidStateError{Resource: "receta", ID: id, Status: "inactive", Message: "ya desactivada"}
	}
	if err := uc.recipes.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate recipe: %w", err)
	}
	uc.log.Info().Str("recipe_id", id).Msg("receta desactivada")
	return nil
}

func toResponse(r *entity.Recipe) dto.RecipeResponse {
	ings := make([]dto.RecipeIngredientRequest, 0, len(r.Ingredients))
	for _, i := range r.Ingredients {
		ings = append(ings, dto.RecipeIngredientRequest{StockID: i.StockID, Quantity: i.Quantity})
	}
	return dto.RecipeResponse{
		ID:              r.ID,
		ProductID:       r.ProductID,
		Name:            r.Name,
		Category:        r.Category,
		Price:           r.Price,
		PreparationTime: r.PreparationTime,
		Active:          r.Active,
		Ingredients:     ings,
		UpdatedAt:       r.UpdatedAt,
	}
}
