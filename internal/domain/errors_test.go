package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
)

func TestKindOf_CadaErrorConservaSuTipo(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.NewValidationError("quantity", "debe ser mayor que cero"), domain.KindValidation},
		{&domain.NotFoundError{Resource: "stock", ID: "x"}, domain.KindNotFound},
		{&domain.InsufficientStockError{StockID: "x", Available: decimal.NewFromInt(1), Requested: decimal.NewFromInt(2)}, domain.KindInsufficientStock},
		{&domain.InvalidStateError{Resource: "venta", ID: "s1", Status: "cancelled", Message: "ya anulada"}, domain.KindInvalidState},
		{&domain.ConcurrencyError{Resource: "stock", ID: "x", Attempts: 3}, domain.KindConcurrency},
		{&domain.ReconciliationError{SaleID: "s1", Applied: []string{"a"}, Failed: []string{"b"}}, domain.KindReconciliation},
		{fmt.Errorf("crear venta: %w", domain.ErrDuplicate), domain.KindDuplicate},
		{errors.New("boom"), domain.KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.KindOf(tc.err), tc.err.Error())
	}
	assert.Equal(t, "", domain.KindOf(nil))
}

func TestKindOf_EnvueltoConFmtErrorf(t *testing.T) {
	err := fmt.Errorf("ajuste: %w", &domain.NotFoundError{Resource: "stock", ID: "x"})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, "x", nf.ID)
}

func TestReconciliationError_PrevaleceSobreLaCausa(t *testing.T) {
	cause := &domain.InsufficientStockError{StockID: "b"}
	err := &domain.ReconciliationError{SaleID: "s1", Applied: []string{"a"}, Failed: []string{"b"}, Cause: cause}

	assert.ErrorIs(t, err, domain.ErrReconciliation)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, domain.KindReconciliation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "aplicados [a]")
	assert.Contains(t, err.Error(), "fallidos [b]")
	assert.False(t, domain.IsRetryable(err), "la reconciliación nunca se reintenta")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, domain.IsRetryable(&domain.ConcurrencyError{Resource: "stock", ID: "x", Attempts: 3}))
	assert.False(t, domain.IsRetryable(domain.ErrInsufficientStock))
}
