package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/telemetry"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/ledger"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// DefaultMaxRetries reintentos optimistas si no se configura otro valor.
const DefaultMaxRetries = 3

// errVersionConflict el compare-and-set perdió contra otra escritura; se reintenta desde la lectura.
var errVersionConflict = errors.New("versión de stock cambiada")

// AdjustmentCommand entrada de ApplyAdjustment.
type AdjustmentCommand struct {
	StockID        string
	Kind           string
	Quantity       decimal.Decimal
	ReasonCategory string
	Reason         string
	ActorID        string
}

// AdjustmentUseCase aplica ajustes manuales de stock con control optimista de concurrencia.
type AdjustmentUseCase struct {
	tx          ports.TxRunner
	stocks      repository.StockRepository
	adjustments repository.AdjustmentRepository
	events      ports.EventPublisher
	log         zerolog.Logger
	tracer      trace.Tracer
	maxRetries  int
	now         func() time.Time
}

// NewAdjustmentUseCase construye el caso de uso. maxRetries <= 0 usa DefaultMaxRetries.
func NewAdjustmentUseCase(
	tx ports.TxRunner,
	stocks repository.StockRepository,
	adjustments repository.AdjustmentRepository,
	events ports.EventPublisher,
	log zerolog.Logger,
	maxRetries int,
) *AdjustmentUseCase {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &AdjustmentUseCase{
		tx:          tx,
		stocks:      stocks,
		adjustments: adjustments,
		events:      events,
		log:         log,
		tracer:      telemetry.Tracer(),
		maxRetries:  maxRetries,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ApplyAdjustment lee la cantidad actual con su versión, calcula la resultante y escribe
// cantidad + registro de auditoría en la misma unidad de trabajo. Si otra escritura ganó
// la carrera, repite desde la lectura hasta maxRetries y luego devuelve ConcurrencyError.
func (uc *AdjustmentUseCase) ApplyAdjustment(ctx context.Context, cmd AdjustmentCommand) (adj *entity.InventoryAdjustment, err error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.ApplyAdjustment")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(
		attribute.String("stock.id", cmd.StockID),
		attribute.String("adjustment.kind", cmd.Kind),
		attribute.String("adjustment.quantity", cmd.Quantity.String()),
	)

	if err := validateCommand(&cmd); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= uc.maxRetries; attempt++ {
		adj, err = uc.tryApply(ctx, cmd)
		if err == nil {
			span.SetAttributes(attribute.Int("adjustment.attempts", attempt))
			uc.log.Info().
				Str("stock_id", adj.StockID).
				Str("kind", adj.Kind).
				Str("previous", adj.PreviousQty.String()).
				Str("resulting", adj.ResultingQty.String()).
				Str("actor_id", adj.ActorID).
				Msg("ajuste de inventario aplicado")
			uc.publishAdjusted(ctx, adj)
			return adj, nil
		}
		if !errors.Is(err, errVersionConflict) {
			return nil, err
		}
		uc.log.Warn().
			Str("stock_id", cmd.StockID).
			Int("attempt", attempt).
			Msg("conflicto de versión en ajuste, reintentando")
	}
	return nil, &domain.ConcurrencyError{Resource: "stock", ID: cmd.StockID, Attempts: uc.maxRetries}
}

func (uc *AdjustmentUseCase) tryApply(ctx context.Context, cmd AdjustmentCommand) (*entity.InventoryAdjustment, error) {
	var adj *entity.InventoryAdjustment
	err := uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		previous, version, err := repos.Stock.GetQuantity(ctx, cmd.StockID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.NotFoundError{Resource: "stock", ID: cmd.StockID}
			}
			return fmt.Errorf("leer cantidad: %w", err)
		}
		resulting, err := ledger.ApplyAdjustmentKind(previous, cmd.Kind, cmd.Quantity)
		if err != nil {
			var ise *domain.InsufficientStockError
			if errors.As(err, &ise) {
				ise.StockID = cmd.StockID
			}
			return err
		}
		ok, err := repos.Stock.CompareAndSetQuantity(ctx, cmd.StockID, version, resulting)
		if err != nil {
			return fmt.Errorf("escribir cantidad: %w", err)
		}
		if !ok {
			return errVersionConflict
		}
		adj = &entity.InventoryAdjustment{
			StockID:        cmd.StockID,
			Kind:           cmd.Kind,
			RequestedQty:   cmd.Quantity,
			PreviousQty:    previous,
			ResultingQty:   resulting,
			ReasonCategory: cmd.ReasonCategory,
			Reason:         cmd.Reason,
			ActorID:        cmd.ActorID,
			CreatedAt:      uc.now(),
		}
		if err := repos.Adjustments.Create(ctx, adj); err != nil {
			return fmt.Errorf("registrar ajuste: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// ApplyFromRequest adapta el body HTTP al comando y devuelve el DTO.
func (uc *AdjustmentUseCase) ApplyFromRequest(ctx context.Context, actorID string, in dto.ApplyAdjustmentRequest) (*dto.AdjustmentResponse, error) {
	adj, err := uc.ApplyAdjustment(ctx, AdjustmentCommand{
		StockID:        in.StockID,
		Kind:           in.Kind,
		Quantity:       in.Quantity,
		ReasonCategory: in.ReasonCategory,
		Reason:         in.Reason,
		ActorID:        actorID,
	})
	if err != nil {
		return nil, err
	}
	resp := toAdjustmentResponse(adj)
	return &resp, nil
}

// GetAdjustmentHistory historial de ajustes de un stock, más recientes primero.
func (uc *AdjustmentUseCase) GetAdjustmentHistory(ctx context.Context, stockID string, page dto.PageRequest) (*dto.AdjustmentHistoryResponse, error) {
	page.DefaultPage()
	s, err := uc.stocks.GetByID(ctx, stockID)
	if err != nil {
		return nil, fmt.Errorf("historial de ajustes: %w", err)
	}
	if s == nil {
		return nil, &domain.NotFoundError{Resource: "stock", ID: stockID}
	}
	list, total, err := uc.adjustments.ListByStock(ctx, stockID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("historial de ajustes: %w", err)
	}
	out := &dto.AdjustmentHistoryResponse{
		StockID: stockID,
		Data:    make([]dto.AdjustmentResponse, 0, len(list)),
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, a := range list {
		out.Data = append(out.Data, toAdjustmentResponse(a))
	}
	return out, nil
}

// ListAdjustments todos los ajustes, más recientes primero.
func (uc *AdjustmentUseCase) ListAdjustments(ctx context.Context, page dto.PageRequest) (*dto.AdjustmentListResponse, error) {
	page.DefaultPage()
	list, total, err := uc.adjustments.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar ajustes: %w", err)
	}
	out := &dto.AdjustmentListResponse{
		Data: make([]dto.AdjustmentResponse, 0, len(list)),
		Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, a := range list {
		out.Data = append(out.Data, toAdjustmentResponse(a))
	}
	return out, nil
}

func validateCommand(cmd *AdjustmentCommand) error {
	if strings.TrimSpace(cmd.StockID) == "" {
		return domain.NewValidationError("stock_id", "requerido")
	}
	if strings.TrimSpace(cmd.ActorID) == "" {
		return domain.NewValidationError("actor_id", "requerido")
	}
	if !entity.IsValidAdjustmentKind(cmd.Kind) {
		return domain.NewValidationError("kind", "debe ser add, remove o set")
	}
	if err := ledger.ValidateRequested(cmd.Kind, cmd.Quantity); err != nil {
		return err
	}
	if cmd.ReasonCategory == "" {
		cmd.ReasonCategory = entity.ReasonManualCorrection
	}
	if !entity.IsValidReasonCategory(cmd.ReasonCategory) {
		return domain.NewValidationError("reason_category", "debe ser waste, additional-use o manual-correction")
	}
	return nil
}

// publishAdjusted notifica el ajuste y, si corresponde, el stock bajo. Los fallos solo se registran.
func (uc *AdjustmentUseCase) publishAdjusted(ctx context.Context, adj *entity.InventoryAdjustment) {
	events := []ports.LedgerEvent{{
		Type:        ports.EventStockAdjusted,
		AggregateID: adj.StockID,
		ActorID:     adj.ActorID,
		Payload: map[string]any{
			"adjustment_id": adj.ID,
			"kind":          adj.Kind,
			"previous":      adj.PreviousQty.String(),
			"resulting":     adj.ResultingQty.String(),
			"delta":         ledger.Delta(adj.PreviousQty, adj.ResultingQty).String(),
		},
		OccurredAt: adj.CreatedAt,
	}}
	if s, err := uc.stocks.GetByID(ctx, adj.StockID); err == nil && s != nil && s.BelowThreshold() {
		events = append(events, lowStockEvent(s, adj.ActorID, adj.CreatedAt))
	}
	if err := uc.events.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Str("stock_id", adj.StockID).Msg("no se pudo publicar evento de ajuste")
	}
}

func lowStockEvent(s *entity.StockRecord, actorID string, at time.Time) ports.LedgerEvent {
	return ports.LedgerEvent{
		Type:        ports.EventStockLow,
		AggregateID: s.ID,
		ActorID:     actorID,
		Payload: map[string]any{
			"quantity":      s.Quantity.String(),
			"min_threshold": s.MinThreshold.String(),
		},
		OccurredAt: at,
	}
}

func toAdjustmentResponse(a *entity.InventoryAdjustment) dto.AdjustmentResponse {
	return dto.AdjustmentResponse{
		ID:             a.ID,
		StockID:        a.StockID,
		Kind:           a.Kind,
		RequestedQty:   a.RequestedQty,
		PreviousQty:    a.PreviousQty,
		ResultingQty:   a.ResultingQty,
		ReasonCategory: a.ReasonCategory,
		Reason:         a.Reason,
		ActorID:        a.ActorID,
		CreatedAt:      a.CreatedAt,
	}
}
