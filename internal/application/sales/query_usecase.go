package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// CreateFromRequest adapta el body HTTP a CreateSaleCommand.
func (uc *SaleUseCase) CreateFromRequest(ctx context.Context, actorID string, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	lines := make([]LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, LineInput{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}
	var customer *entity.CustomerInfo
	if in.Customer != nil {
		customer = &entity.CustomerInfo{
			Name:  strings.TrimSpace(in.Customer.Name),
			Email: strings.TrimSpace(in.Customer.Email),
			Phone: strings.TrimSpace(in.Customer.Phone),
		}
	}
	sale, err := uc.CreateSale(ctx, CreateSaleCommand{
		Lines:         lines,
		PaymentMethod: in.PaymentMethod,
		Customer:      customer,
		Discount:      in.Discount,
		Notes:         in.Notes,
		ActorID:       actorID,
	})
	if err != nil {
		return nil, err
	}
	resp := ToResponse(sale)
	return &resp, nil
}

// CancelFromRequest anula y devuelve el DTO.
func (uc *SaleUseCase) CancelFromRequest(ctx context.Context, actorID, saleID string) (*dto.SaleResponse, error) {
	sale, err := uc.CancelSale(ctx, saleID, actorID)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(sale)
	return &resp, nil
}

// GetSale venta por ID.
func (uc *SaleUseCase) GetSale(ctx context.Context, id string) (*dto.SaleResponse, error) {
	sale, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToResponse(sale)
	return &resp, nil
}

// GetSaleTotals proyección de los totales calculados al crear la venta.
func (uc *SaleUseCase) GetSaleTotals(ctx context.Context, id string) (*dto.SaleTotalsResponse, error) {
	sale, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SaleTotalsResponse{
		SaleID:     sale.ID,
		SaleNumber: sale.SaleNumber,
		Status:     sale.Status,
		Subtotal:   sale.Subtotal,
		Tax:        sale.Tax,
		Discount:   sale.Discount,
		Total:      sale.Total,
	}, nil
}

// ListSales ventas paginadas, más recientes primero.
func (uc *SaleUseCase) ListSales(ctx context.Context, page dto.PageRequest) (*dto.SaleListResponse, error) {
	page.DefaultPage()
	list, total, err := uc.sales.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar ventas: %w", err)
	}
	out := &dto.SaleListResponse{
		Data: make([]dto.SaleResponse, 0, len(list)),
		Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, s := range list {
		out.Data = append(out.Data, ToResponse(s))
	}
	return out, nil
}

func (uc *SaleUseCase) load(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener venta: %w", err)
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Resource: "venta", ID: id}
	}
	return sale, nil
}

// ToResponse convierte la entidad al DTO de respuesta.
func ToResponse(s *entity.Sale) dto.SaleResponse {
	lines := make([]dto.SaleLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, dto.SaleLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
			Subtotal:  l.Subtotal,
		})
	}
	consumption := make([]dto.StockConsumptionDTO, 0, len(s.Consumption))
	for _, c := range s.Consumption {
		consumption = append(consumption, dto.StockConsumptionDTO{StockID: c.StockID, Quantity: c.Quantity})
	}
	var customer *dto.CustomerInfoDTO
	if s.Customer != nil {
		customer = &dto.CustomerInfoDTO{Name: s.Customer.Name, Email: s.Customer.Email, Phone: s.Customer.Phone}
	}
	return dto.SaleResponse{
		ID:            s.ID,
		SaleNumber:    s.SaleNumber,
		Status:        s.Status,
		PaymentMethod: s.PaymentMethod,
		Customer:      customer,
		Notes:         s.Notes,
		Lines:         lines,
		Consumption:   consumption,
		Subtotal:      s.Subtotal,
		Tax:           s.Tax,
		Discount:      s.Discount,
		Total:         s.Total,
		ActorID:       s.ActorID,
		CancelledBy:   s.CancelledBy,
		CreatedAt:     s.CreatedAt,
		CancelledAt:   s.CancelledAt,
	}
}
