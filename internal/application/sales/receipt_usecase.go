package sales

import (
	"context"
	"fmt"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// ReceiptUseCase genera el comprobante PDF de una venta (completada o anulada).
type ReceiptUseCase struct {
	sales        repository.SaleRepository
	generator    ports.ReceiptPDFGenerator
	businessName string
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(sales repository.SaleRepository, generator ports.ReceiptPDFGenerator, businessName string) *ReceiptUseCase {
	return &ReceiptUseCase{sales: sales, generator: generator, businessName: businessName}
}

// DownloadReceipt devuelve (pdfBytes, filename). NotFoundError si la venta no existe.
func (uc *ReceiptUseCase) DownloadReceipt(ctx context.Context, saleID string) ([]byte, string, error) {
	sale, err := uc.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, "", fmt.Errorf("comprobante: obtener venta: %w", err)
	}
	if sale == nil {
		return nil, "", &domain.NotFoundError{Resource: "venta", ID: saleID}
	}
	pdf, err := uc.generator.GenerateSaleReceipt(ctx, sale, uc.businessName)
	if err != nil {
		return nil, "", fmt.Errorf("comprobante: generar PDF: %w", err)
	}
	return pdf, fmt.Sprintf("comprobante_%s.pdf", sale.SaleNumber), nil
}
