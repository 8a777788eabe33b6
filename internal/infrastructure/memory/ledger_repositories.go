package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var (
	_ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)
	_ repository.SaleRepository       = (*SaleRepo)(nil)
	_ repository.RecipeRepository     = (*RecipeRepo)(nil)
)

// ── Ajustes ───────────────────────────────────────────────────────────────────

// AdjustmentRepo almacén append-only de ajustes.
type AdjustmentRepo struct {
	s      *Store
	locked bool
}

func (r *AdjustmentRepo) Create(_ context.Context, a *entity.InventoryAdjustment) error {
	defer r.s.guard(r.locked)()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.s.now()
	}
	cp := *a
	r.s.adjustments = append(r.s.adjustments, &cp)
	return nil
}

func (r *AdjustmentRepo) ListByStock(_ context.Context, stockID string, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	defer r.s.guard(r.locked)()
	var all []*entity.InventoryAdjustment
	for i := len(r.s.adjustments) - 1; i >= 0; i-- {
		if a := r.s.adjustments[i]; a.StockID == stockID {
			cp := *a
			all = append(all, &cp)
		}
	}
	from, to := page(len(all), limit, offset)
	return all[from:to], len(all), nil
}

func (r *AdjustmentRepo) List(_ context.Context, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	defer r.s.guard(r.locked)()
	all := make([]*entity.InventoryAdjustment, 0, len(r.s.adjustments))
	for i := len(r.s.adjustments) - 1; i >= 0; i-- {
		cp := *r.s.adjustments[i]
		all = append(all, &cp)
	}
	from, to := page(len(all), limit, offset)
	return all[from:to], len(all), nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

// SaleRepo ventas en memoria con número de venta único.
type SaleRepo struct {
	s      *Store
	locked bool
}

func (r *SaleRepo) Count(_ context.Context) (int64, error) {
	defer r.s.guard(r.locked)()
	return int64(len(r.s.sales)), nil
}

func (r *SaleRepo) Create(_ context.Context, sale *entity.Sale) error {
	defer r.s.guard(r.locked)()
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if _, ok := r.s.saleNumbers[sale.SaleNumber]; ok {
		return fmt.Errorf("create sale %s: %w", sale.SaleNumber, domain.ErrDuplicate)
	}
	if _, ok := r.s.sales[sale.ID]; ok {
		return fmt.Errorf("create sale %s: %w", sale.ID, domain.ErrDuplicate)
	}
	cp := cloneSale(sale)
	r.s.sales[sale.ID] = cp
	r.s.saleNumbers[sale.SaleNumber] = sale.ID
	r.s.saleOrder = append(r.s.saleOrder, sale.ID)
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	defer r.s.guard(r.locked)()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, nil
	}
	return cloneSale(sale), nil
}

func (r *SaleRepo) List(_ context.Context, limit, offset int) ([]*entity.Sale, int, error) {
	defer r.s.guard(r.locked)()
	all := make([]*entity.Sale, 0, len(r.s.saleOrder))
	for i := len(r.s.saleOrder) - 1; i >= 0; i-- {
		if sale, ok := r.s.sales[r.s.saleOrder[i]]; ok {
			all = append(all, cloneSale(sale))
		}
	}
	from, to := page(len(all), limit, offset)
	return all[from:to], len(all), nil
}

func (r *SaleRepo) MarkCancelled(_ context.Context, id, actorID string, at time.Time) (bool, error) {
	defer r.s.guard(r.locked)()
	sale, ok := r.s.sales[id]
	if !ok {
		return false, fmt.Errorf("cancel sale %s: %w", id, domain.ErrNotFound)
	}
	if sale.Status != entity.SaleStatusCompleted {
		return false, nil
	}
	cp := cloneSale(sale)
	cp.Status = entity.SaleStatusCancelled
	cp.CancelledBy = actorID
	cp.CancelledAt = &at
	cp.UpdatedAt = at
	r.s.sales[id] = cp
	return true, nil
}

func (r *SaleRepo) SetConsumption(_ context.Context, id string, consumption []entity.StockDelta, at time.Time) error {
	defer r.s.guard(r.locked)()
	sale, ok := r.s.sales[id]
	if !ok {
		return fmt.Errorf("set consumption %s: %w", id, domain.ErrNotFound)
	}
	cp := cloneSale(sale)
	cp.Consumption = append([]entity.StockDelta(nil), consumption...)
	cp.UpdatedAt = at
	r.s.sales[id] = cp
	return nil
}

func (r *SaleRepo) Delete(_ context.Context, id string) error {
	defer r.s.guard(r.locked)()
	sale, ok := r.s.sales[id]
	if !ok {
		return fmt.Errorf("delete sale %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.sales, id)
	delete(r.s.saleNumbers, sale.SaleNumber)
	// saleOrder conserva el id; List ya salta los que no están en el mapa
	return nil
}

func (r *SaleRepo) IsStockConsumed(_ context.Context, stockID string) (bool, error) {
	defer r.s.guard(r.locked)()
	for _, sale := range r.s.sales {
		if sale.Status != entity.SaleStatusCompleted {
			continue
		}
		for _, c := range sale.Consumption {
			if c.StockID == stockID {
				return true, nil
			}
		}
	}
	return false, nil
}

func cloneSale(s *entity.Sale) *entity.Sale {
	cp := *s
	cp.Lines = append([]entity.SaleLine(nil), s.Lines...)
	cp.Consumption = append([]entity.StockDelta(nil), s.Consumption...)
	if s.Customer != nil {
		c := *s.Customer
		cp.Customer = &c
	}
	return &cp
}

// ── Recetas ───────────────────────────────────────────────────────────────────

// RecipeRepo recetas en memoria; una receta activa por producto.
type RecipeRepo struct {
	s      *Store
	locked bool
}

func (r *RecipeRepo) Save(_ context.Context, rec *entity.Recipe) error {
	defer r.s.guard(r.locked)()
	now := r.s.now()
	for id, existing := range r.s.recipes {
		if existing.ProductID == rec.ProductID && existing.Active && id != rec.ID {
			if rec.ID == "" {
				rec.ID = id
				rec.CreatedAt = existing.CreatedAt
				continue
			}
			// otra receta activa para el mismo producto: se reemplaza
			old := cloneRecipe(existing)
			old.Active = false
			old.UpdatedAt = now
			r.s.recipes[id] = old
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.s.recipes[rec.ID] = cloneRecipe(rec)
	return nil
}

func (r *RecipeRepo) GetActiveByProduct(_ context.Context, productID string) (*entity.Recipe, error) {
	defer r.s.guard(r.locked)()
	for _, rec := range r.s.recipes {
		if rec.ProductID == productID && rec.Active {
			return cloneRecipe(rec), nil
		}
	}
	return nil, nil
}

func (r *RecipeRepo) GetByID(_ context.Context, id string) (*entity.Recipe, error) {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.recipes[id]
	if !ok {
		return nil, nil
	}
	return cloneRecipe(rec), nil
}

func (r *RecipeRepo) List(_ context.Context, limit, offset int) ([]*entity.Recipe, int, error) {
	defer r.s.guard(r.locked)()
	all := make([]*entity.Recipe, 0, len(r.s.recipes))
	for _, rec := range r.s.recipes {
		all = append(all, cloneRecipe(rec))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	from, to := page(len(all), limit, offset)
	return all[from:to], len(all), nil
}

func (r *RecipeRepo) Deactivate(_ context.Context, id string) error {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.recipes[id]
	if !ok {
		return fmt.Errorf("deactivate recipe %s: %w", id, domain.ErrNotFound)
	}
	cp := cloneRecipe(rec)
	cp.Active = false
	cp.UpdatedAt = r.s.now()
	r.s.recipes[id] = cp
	return nil
}

func (r *RecipeRepo) IsStockReferenced(_ context.Context, stockID string) (bool, error) {
	defer r.s.guard(r.locked)()
	for _, rec := range r.s.recipes {
		if !rec.Active {
			continue
		}
		if rec.ProductID == stockID {
			return true, nil
		}
		for _, ing := range rec.Ingredients {
			if ing.StockID == stockID {
				return true, nil
			}
		}
	}
	return false, nil
}

func cloneRecipe(r *entity.Recipe) *entity.Recipe {
	cp := *r
	cp.Ingredients = append([]entity.RecipeIngredient(nil), r.Ingredients...)
	return &cp
}
