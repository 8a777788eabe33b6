package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/telemetry"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// CancelSale anula una venta completada y devuelve al stock exactamente lo que se
// descontó al crearla. La transición condicional completed → cancelled se ejecuta antes
// de devolver stock, de modo que una segunda anulación concurrente la encuentra cancelled
// y falla con InvalidStateError sin tocar cantidades.
func (uc *SaleUseCase) CancelSale(ctx context.Context, saleID, actorID string) (sale *entity.Sale, err error) {
	ctx, span := uc.tracer.Start(ctx, "sales.CancelSale")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(attribute.String("sale.id", saleID))

	if strings.TrimSpace(saleID) == "" {
		return nil, domain.NewValidationError("sale_id", "requerido")
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, domain.NewValidationError("actor_id", "requerido")
	}

	err = uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		current, err := repos.Sales.GetByID(ctx, saleID)
		if err != nil {
			return fmt.Errorf("obtener venta: %w", err)
		}
		if current == nil {
			return &domain.NotFoundError{Resource: "venta", ID: saleID}
		}
		if err := ensureCancellable(current); err != nil {
			return err
		}
		ok, err := repos.Sales.MarkCancelled(ctx, saleID, actorID, uc.now())
		if err != nil {
			return fmt.Errorf("anular venta: %w", err)
		}
		if !ok {
			return &domain.InvalidStateError{
				Resource: "venta", ID: saleID, Status: entity.SaleStatusCancelled,
				Message: "ya anulada",
			}
		}
		return uc.applyDeltas(ctx, repos, saleID, current.Consumption)
	})
	if err != nil {
		if errors.Is(err, domain.ErrReconciliation) {
			uc.logReconciliation(err, "venta anulada con stock devuelto parcialmente")
		}
		return nil, err
	}

	sale, err = uc.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("obtener venta anulada: %w", err)
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Resource: "venta", ID: saleID}
	}
	uc.log.Info().
		Str("sale_id", sale.ID).
		Str("sale_number", sale.SaleNumber).
		Str("actor_id", actorID).
		Msg("venta anulada")
	uc.publish(ctx, ports.EventSaleCancelled, sale)
	return sale, nil
}

func ensureCancellable(s *entity.Sale) error {
	switch s.Status {
	case entity.SaleStatusCompleted:
		return nil
	case entity.SaleStatusCancelled:
		return &domain.InvalidStateError{Resource: "venta", ID: s.ID, Status: s.Status, Message: "ya anulada"}
	default:
		return &domain.InvalidStateError{Resource: "venta", ID: s.ID, Status: s.Status, Message: "solo se anulan ventas completadas"}
	}
}
