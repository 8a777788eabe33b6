package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// StockRepository puerto de persistencia de registros de stock.
// Las escrituras de cantidad pasan solo por CompareAndSetQuantity o IncrementAtomic.
type StockRepository interface {
	Create(ctx context.Context, s *entity.StockRecord) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.StockRecord, error)
	List(ctx context.Context, limit, offset int) ([]*entity.StockRecord, int, error)
	// GetQuantity lectura puntual de cantidad y versión; domain.ErrNotFound si no existe.
	GetQuantity(ctx context.Context, id string) (decimal.Decimal, int64, error)
	// CompareAndSetQuantity escribe la cantidad solo si la versión no cambió.
	// Devuelve false (sin error) ante conflicto.
	CompareAndSetQuantity(ctx context.Context, id string, expectedVersion int64, quantity decimal.Decimal) (bool, error)
	// IncrementAtomic aplica quantity += delta con la guarda quantity+delta >= 0 del lado del
	// almacenamiento. Devuelve domain.ErrInsufficientStock si la guarda rechaza.
	IncrementAtomic(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	// UpdateDetails escribe nombre, unidad, categoría, costo y umbral. No toca
	// cantidad ni versión. domain.ErrNotFound si no existe.
	UpdateDetails(ctx context.Context, s *entity.StockRecord) error
	Delete(ctx context.Context, id string) error
	ListBelowThreshold(ctx context.Context) ([]*entity.StockRecord, error)
}
