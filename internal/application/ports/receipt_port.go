package ports

import (
	"context"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// ReceiptPDFGenerator genera el comprobante PDF de una venta.
type ReceiptPDFGenerator interface {
	GenerateSaleReceipt(ctx context.Context, sale *entity.Sale, businessName string) ([]byte, error)
}
