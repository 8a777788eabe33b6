package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// StockUseCase alta, consulta y baja de registros de stock del catálogo.
type StockUseCase struct {
	tx     ports.TxRunner
	stocks repository.StockRepository
	log    zerolog.Logger
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(tx ports.TxRunner, stocks repository.StockRepository, log zerolog.Logger) *StockUseCase {
	return &StockUseCase{tx: tx, stocks: stocks, log: log}
}

// Create da de alta un registro. La existencia inicial queda auditada como un ajuste
// set desde cero en la misma unidad de trabajo.
func (uc *StockUseCase) Create(ctx context.Context, actorID string, in dto.CreateStockRequest) (*dto.StockResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "requerido")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return nil, domain.NewValidationError("unit", "requerido")
	}
	if in.Category == "" {
		in.Category = entity.StockCategoryIngredient
	}
	if in.InitialQuantity.IsNegative() {
		return nil, domain.NewValidationError("initial_quantity", "no puede ser negativa")
	}
	if err := validateDetails(in.Category, in.Cost, in.MinThreshold); err != nil {
		return nil, err
	}

	rec := &entity.StockRecord{
		Name:         strings.TrimSpace(in.Name),
		Unit:         strings.TrimSpace(in.Unit),
		Category:     in.Category,
		Cost:         in.Cost,
		Quantity:     in.InitialQuantity,
		MinThreshold: in.MinThreshold,
		Version:      1,
	}
	err := uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		if err := repos.Stock.Create(ctx, rec); err != nil {
			return fmt.Errorf("crear stock: %w", err)
		}
		if rec.Quantity.IsZero() {
			return nil
		}
		return repos.Adjustments.Create(ctx, &entity.InventoryAdjustment{
			StockID:        rec.ID,
			Kind:           entity.AdjustmentSet,
			RequestedQty:   rec.Quantity,
			PreviousQty:    decimal.Zero,
			ResultingQty:   rec.Quantity,
			ReasonCategory: entity.ReasonManualCorrection,
			Reason:         "existencia inicial",
			ActorID:        actorID,
			CreatedAt:      time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("stock_id", rec.ID).Str("name", rec.Name).Msg("registro de stock creado")
	resp := toStockResponse(rec)
	return &resp, nil
}

// GetByID devuelve un registro o NotFoundError.
func (uc *StockUseCase) GetByID(ctx context.Context, id string) (*dto.StockResponse, error) {
	rec, err := uc.stocks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener stock: %w", err)
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "stock", ID: id}
	}
	resp := toStockResponse(rec)
	return &resp, nil
}

// List registros paginados.
func (uc *StockUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.StockListResponse, error) {
	page.DefaultPage()
	list, total, err := uc.stocks.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}
	out := &dto.StockListResponse{
		Data: make([]dto.StockResponse, 0, len(list)),
		Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, r := range list {
		out.Data = append(out.Data, toStockResponse(r))
	}
	return out, nil
}

// Update cambia los datos descriptivos del registro (nombre, unidad, categoría, costo,
// umbral). La cantidad y la versión no se tocan.
func (uc *StockUseCase) Update(ctx context.Context, actorID, id string, in dto.UpdateStockRequest) (*dto.StockResponse, error) {
	if in.Quantity != nil {
		return nil, domain.NewValidationError("quantity", "solo cambia mediante un ajuste de inventario")
	}
	if in.Name == nil && in.Unit == nil && in.Category == nil && in.Cost == nil &&
		in.MinThreshold == nil && !in.ClearMinThreshold {
		return nil, domain.NewValidationError("body", "no hay campos para actualizar")
	}
	if in.ClearMinThreshold && in.MinThreshold != nil {
		return nil, domain.NewValidationError("min_threshold", "no se puede fijar y borrar a la vez")
	}

	var rec *entity.StockRecord
	err := uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		current, err := repos.Stock.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("actualizar stock: %w", err)
		}
		if current == nil {
			return &domain.NotFoundError{Resource: "stock", ID: id}
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.NewValidationError("name", "no puede quedar vacío")
			}
			current.Name = strings.TrimSpace(*in.Name)
		}
		if in.Unit != nil {
			if strings.TrimSpace(*in.Unit) == "" {
				return domain.NewValidationError("unit", "no puede quedar vacía")
			}
			current.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.Category != nil {
			current.Category = *in.Category
		}
		if in.Cost != nil {
			current.Cost = *in.Cost
		}
		switch {
		case in.ClearMinThreshold:
			current.MinThreshold = nil
		case in.MinThreshold != nil:
			current.MinThreshold = in.MinThreshold
		}
		if err := validateDetails(current.Category, current.Cost, current.MinThreshold); err != nil {
			return err
		}
		if err := repos.Stock.UpdateDetails(ctx, current); err != nil {
			return fmt.Errorf("actualizar stock: %w", err)
		}
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("stock_id", id).Str("actor_id", actorID).Msg("registro de stock actualizado")
	resp := toStockResponse(rec)
	return &resp, nil
}

// Delete borra el registro salvo que una receta activa lo use como producto o insumo,
// o que una venta completada lo haya descontado (su anulación necesita el registro).
func (uc *StockUseCase) Delete(ctx context.Context, id string) error {
	err := uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		rec, err := repos.Stock.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("borrar stock: %w", err)
		}
		if rec == nil {
			return &domain.NotFoundError{Resource: "stock", ID: id}
		}
		referenced, err := repos.Recipes.IsStockReferenced(ctx, id)
		if err != nil {
			return fmt.Errorf("borrar stock: %w", err)
		}
		if referenced {
			return &domain.InvalidStateError{
				Resource: "stock", ID: id, Status: "referenced",
				Message: "referenciado por una receta activa",
			}
		}
		consumed, err := repos.Sales.IsStockConsumed(ctx, id)
		if err != nil {
			return fmt.Errorf("borrar stock: %w", err)
		}
		if consumed {
			return &domain.InvalidStateError{
				Resource: "stock", ID: id, Status: "consumed",
				Message: "descontado por ventas completadas",
			}
		}
		return repos.Stock.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("stock_id", id).Msg("registro de stock borrado")
	return nil
}

func validateDetails(category string, cost decimal.Decimal, threshold *decimal.Decimal) error {
	if category != entity.StockCategoryIngredient && category != entity.StockCategoryFinalProduct {
		return domain.NewValidationError("category", "debe ser ingredient o final-product")
	}
	if cost.IsNegative() {
		return domain.NewValidationError("cost", "no puede ser negativo")
	}
	if threshold != nil && threshold.IsNegative() {
		return domain.NewValidationError("min_threshold", "no puede ser negativo")
	}
	return nil
}

func toStockResponse(r *entity.StockRecord) dto.StockResponse {
	return dto.StockResponse{
		ID:           r.ID,
		Name:         r.Name,
		Unit:         r.Unit,
		Category:     r.Category,
		Cost:         r.Cost,
		Quantity:     r.Quantity,
		MinThreshold: r.MinThreshold,
		Version:      r.Version,
		UpdatedAt:    r.UpdatedAt,
	}
}
