package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo recetas con sus insumos en recipe_ingredients.
// Save ejecuta varias sentencias: llamar con una tx para que sea atómico.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

const recipeColumns = `id, product_id, name, category, price, preparation_time, active, created_at, updated_at`

// Save crea o reemplaza la receta activa del producto.
func (r *RecipeRepo) Save(ctx context.Context, rec *entity.Recipe) error {
	now := time.Now().UTC()
	if rec.ID == "" {
		var existingID string
		var createdAt time.Time
		err := r.q.QueryRow(ctx,
			`SELECT id, created_at FROM recipes WHERE product_id = $1 AND active`, rec.ProductID,
		).Scan(&existingID, &createdAt)
		switch {
		case err == nil:
			rec.ID, rec.CreatedAt = existingID, createdAt
		case errors.Is(err, pgx.ErrNoRows):
			rec.ID = uuid.New().String()
		default:
			return fmt.Errorf("find active recipe: %w", err)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	// Otra receta activa para el mismo producto queda reemplazada.
	if _, err := r.q.Exec(ctx,
		`UPDATE recipes SET active = false, updated_at = $3 WHERE product_id = $1 AND active AND id <> $2`,
		rec.ProductID, rec.ID, now,
	); err != nil {
		return fmt.Errorf("deactivate previous recipe: %w", err)
	}

	query := `
		INSERT INTO recipes (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			preparation_time = EXCLUDED.preparation_time,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, query,
		rec.ID, rec.ProductID, rec.Name, nullIfEmpty(rec.Category), rec.Price, rec.PreparationTime,
		rec.Active, rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save recipe %s: %w", rec.ProductID, domain.ErrDuplicate)
		}
		return fmt.Errorf("save recipe: %w", err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("clear recipe ingredients: %w", err)
	}
	for i, ing := range rec.Ingredients {
		if _, err := r.q.Exec(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, position, stock_id, quantity) VALUES ($1, $2, $3, $4)`,
			rec.ID, i, ing.StockID, ing.Quantity,
		); err != nil {
			return fmt.Errorf("insert recipe ingredient: %w", err)
		}
	}
	return nil
}

// GetActiveByProduct devuelve nil, nil si el producto no tiene receta activa.
func (r *RecipeRepo) GetActiveByProduct(ctx context.Context, productID string) (*entity.Recipe, error) {
	return r.getOne(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE product_id = $1 AND active`, productID)
}

// GetByID devuelve nil, nil si no existe.
func (r *RecipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	return r.getOne(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)
}

func (r *RecipeRepo) List(ctx context.Context, limit, offset int) ([]*entity.Recipe, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM recipes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	var list []*entity.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan recipe: %w", err)
		}
		list = append(list, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	// Los insumos se cargan después de cerrar rows: una tx no admite dos consultas abiertas.
	for _, rec := range list {
		if err := r.loadIngredients(ctx, rec); err != nil {
			return nil, 0, err
		}
	}
	return list, total, nil
}

func (r *RecipeRepo) Deactivate(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `UPDATE recipes SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deactivate recipe %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// IsStockReferenced busca el stock como producto o como insumo de una receta activa.
func (r *RecipeRepo) IsStockReferenced(ctx context.Context, stockID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM recipes WHERE active AND product_id = $1
			UNION ALL
			SELECT 1 FROM recipe_ingredients ri
			JOIN recipes rc ON rc.id = ri.recipe_id
			WHERE rc.active AND ri.stock_id = $1
		)`
	var referenced bool
	if err := r.q.QueryRow(ctx, query, stockID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("recipe references: %w", err)
	}
	return referenced, nil
}

func (r *RecipeRepo) getOne(ctx context.Context, query string, arg string) (*entity.Recipe, error) {
	rec, err := scanRecipe(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if err := r.loadIngredients(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RecipeRepo) loadIngredients(ctx context.Context, rec *entity.Recipe) error {
	rows, err := r.q.Query(ctx,
		`SELECT stock_id, quantity FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("list recipe ingredients: %w", err)
	}
	defer rows.Close()
	rec.Ingredients = nil
	for rows.Next() {
		var ing entity.RecipeIngredient
		if err := rows.Scan(&ing.StockID, &ing.Quantity); err != nil {
			return fmt.Errorf("scan recipe ingredient: %w", err)
		}
		rec.Ingredients = append(rec.Ingredients, ing)
	}
	return rows.Err()
}

func scanRecipe(row pgx.Row) (*entity.Recipe, error) {
	var rec entity.Recipe
	var category *string
	if err := row.Scan(
		&rec.ID, &rec.ProductID, &rec.Name, &category, &rec.Price, &rec.PreparationTime,
		&rec.Active, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Category = derefStr(category)
	return &rec, nil
}
