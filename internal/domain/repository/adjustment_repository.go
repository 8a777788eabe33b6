package repository

import (
	"context"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// AdjustmentRepository almacén append-only de ajustes de inventario.
type AdjustmentRepository interface {
	Create(ctx context.Context, a *entity.InventoryAdjustment) error
	// ListByStock más recientes primero.
	ListByStock(ctx context.Context, stockID string, limit, offset int) ([]*entity.InventoryAdjustment, int, error)
	// List todos los ajustes, más recientes primero.
	List(ctx context.Context, limit, offset int) ([]*entity.InventoryAdjustment, int, error)
}
