package repository

import (
	"context"
	"time"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// SaleRepository persistencia de ventas. El número de venta es único (ErrDuplicate si se repite).
type SaleRepository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, s *entity.Sale) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Sale, int, error)
	// MarkCancelled pasa completed → cancelled de forma condicional.
	// Devuelve false si la venta ya no estaba completed.
	MarkCancelled(ctx context.Context, id, actorID string, at time.Time) (bool, error)
	// SetConsumption reemplaza el consumo registrado. Solo se usa para dejar constancia
	// de lo que realmente se descontó cuando una venta quedó aplicada a medias.
	SetConsumption(ctx context.Context, id string, consumption []entity.StockDelta, at time.Time) error
	// Delete elimina una venta que no llegó a descontar stock.
	Delete(ctx context.Context, id string) error
	// IsStockConsumed indica si alguna venta completada descontó del stock.
	IsStockConsumed(ctx context.Context, stockID string) (bool, error)
}
