package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación en memoria de StockRepository.
type StockRepo struct {
	s      *Store
	locked bool
}

func (r *StockRepo) Create(_ context.Context, rec *entity.StockRecord) error {
	defer r.s.guard(r.locked)()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, ok := r.s.stocks[rec.ID]; ok {
		return fmt.Errorf("create stock: %w", domain.ErrDuplicate)
	}
	now := r.s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if rec.Version == 0 {
		rec.Version = 1
	}
	cp := *rec
	r.s.stocks[rec.ID] = &cp
	return nil
}

func (r *StockRepo) GetByID(_ context.Context, id string) (*entity.StockRecord, error) {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.stocks[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *StockRepo) List(_ context.Context, limit, offset int) ([]*entity.StockRecord, int, error) {
	defer r.s.guard(r.locked)()
	all := make([]*entity.StockRecord, 0, len(r.s.stocks))
	for _, rec := range r.s.stocks {
		cp := *rec
		all = append(all, &cp)
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

func (r *StockRepo) GetQuantity(_ context.Context, id string) (decimal.Decimal, int64, error) {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.stocks[id]
	if !ok {
		return decimal.Zero, 0, fmt.Errorf("get quantity %s: %w", id, domain.ErrNotFound)
	}
	return rec.Quantity, rec.Version, nil
}

func (r *StockRepo) CompareAndSetQuantity(_ context.Context, id string, expectedVersion int64, quantity decimal.Decimal) (bool, error) {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.stocks[id]
	if !ok {
		return false, fmt.Errorf("compare and set %s: %w", id, domain.ErrNotFound)
	}
	if rec.Version != expectedVersion {
		return false, nil
	}
	if quantity.IsNegative() {
		return false, fmt.Errorf("compare and set %s: %w", id, domain.ErrInsufficientStock)
	}
	cp := *rec
	cp.Quantity = quantity
	cp.Version++
	cp.UpdatedAt = r.s.now()
	r.s.stocks[id] = &cp
	return true, nil
}

func (r *StockRepo) IncrementAtomic(_ context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	defer r.s.guard(r.locked)()
	rec, ok := r.s.stocks[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("increment %s: %w", id, domain.ErrNotFound)
	}
	next := rec.Quantity.Add(delta)
	if next.IsNegative() {
		return rec.Quantity, fmt.Errorf("increment %s: %w", id, domain.ErrInsufficientStock)
	}
	cp := *rec
	cp.Quantity = next
	cp.Version++
	cp.UpdatedAt = r.s.now()
	r.s.stocks[id] = &cp
	return next, nil
}

func (r *StockRepo) UpdateDetails(_ context.Context, rec *entity.StockRecord) error {
	defer r.s.guard(r.locked)()
	cur, ok := r.s.stocks[rec.ID]
	if !ok {
		return fmt.Errorf("update stock %s: %w", rec.ID, domain.ErrNotFound)
	}
	cp := *cur
	cp.Name, cp.Unit, cp.Category = rec.Name, rec.Unit, rec.Category
	cp.Cost = rec.Cost
	cp.MinThreshold = nil
	if rec.MinThreshold != nil {
		t := *rec.MinThreshold
		cp.MinThreshold = &t
	}
	cp.UpdatedAt = r.s.now()
	r.s.stocks[rec.ID] = &cp
	*rec = cp
	return nil
}

func (r *StockRepo) Delete(_ context.Context, id string) error {
	defer r.s.guard(r.locked)()
	if _, ok := r.s.stocks[id]; !ok {
		return fmt.Errorf("delete stock %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.stocks, id)
	return nil
}

func (r *StockRepo) ListBelowThreshold(_ context.Context) ([]*entity.StockRecord, error) {
	defer r.s.guard(r.locked)()
	var list []*entity.StockRecord
	for _, rec := range r.s.stocks {
		if rec.BelowThreshold() {
			cp := *rec
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
