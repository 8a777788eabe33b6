package ports

import (
	"context"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// TxRepos repositorios atados a una misma unidad de trabajo.
type TxRepos struct {
	Stock       repository.StockRepository
	Adjustments repository.AdjustmentRepository
	Sales       repository.SaleRepository
	Recipes     repository.RecipeRepository
}

// TxRunner ejecuta fn dentro de una unidad de trabajo del almacenamiento.
// Si fn devuelve error, el runner deshace lo escrito cuando Atomic() es true;
// en caso contrario las escrituras ya aplicadas permanecen y el llamador debe
// reportarlas como reconciliación.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
	Atomic() bool
}
