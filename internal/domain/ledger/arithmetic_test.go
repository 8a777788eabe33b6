package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Subtotales y totales
// ──────────────────────────────────────────────────────────────────────────────

func TestSaleTotals_DosLineasConIVA(t *testing.T) {
	lines := []ledger.Line{
		{Quantity: d("2"), UnitPrice: d("10"), Discount: d("1")},
		{Quantity: d("1"), UnitPrice: d("5"), Discount: decimal.Zero},
	}
	totals, err := ledger.SaleTotals(lines, d("0.10"), decimal.Zero)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(d("23.00")), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(d("2.30")), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(d("25.30")), "total = %s", totals.Total)
}

func TestSaleTotals_DescuentoGlobalSeResta(t *testing.T) {
	lines := []ledger.Line{{Quantity: d("3"), UnitPrice: d("10"), Discount: decimal.Zero}}
	totals, err := ledger.SaleTotals(lines, d("0.10"), d("5"))
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(d("28")), "30 + 3 - 5 = 28, obtenido %s", totals.Total)
	assert.True(t, totals.Discount.Equal(d("5")))
}

func TestSaleTotals_SinDerivaDePuntoFlotante(t *testing.T) {
	lines := []ledger.Line{
		{Quantity: d("3"), UnitPrice: d("0.1"), Discount: decimal.Zero},
		{Quantity: d("1"), UnitPrice: d("0.2"), Discount: decimal.Zero},
	}
	totals, err := ledger.SaleTotals(lines, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "0.5", totals.Total.String())
}

func TestLineSubtotal_DescuentoPorUnidad(t *testing.T) {
	s, err := ledger.LineSubtotal(d("2"), d("10"), d("1"))
	require.NoError(t, err)
	assert.True(t, s.Equal(d("18")), "subtotal = %s", s)
}

func TestSaleTotals_CantidadFraccionariaRedondeaImportes(t *testing.T) {
	s, err := ledger.LineSubtotal(d("0.333"), d("10.01"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, s.Equal(d("3.33")), "subtotal de línea = %s", s)

	lines := []ledger.Line{
		{Quantity: d("0.333"), UnitPrice: d("10.01"), Discount: decimal.Zero},
		{Quantity: d("0.335"), UnitPrice: d("1"), Discount: decimal.Zero},
	}
	totals, err := ledger.SaleTotals(lines, d("0.10"), d("0.005"))
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(d("3.67")), "subtotal = %s", totals.Subtotal) // 3.33 + 0.34
	assert.True(t, totals.Tax.Equal(d("0.37")), "tax = %s", totals.Tax)
	assert.True(t, totals.Discount.Equal(d("0.01")), "discount = %s", totals.Discount)
	assert.True(t, totals.Total.Equal(d("4.03")), "total = %s", totals.Total)
	for _, v := range []decimal.Decimal{totals.Subtotal, totals.Tax, totals.Discount, totals.Total} {
		assert.LessOrEqual(t, -v.Exponent(), int32(ledger.MoneyPlaces), "%s tiene más de dos decimales", v)
	}
}

func TestLineSubtotal_DescuentoMayorAlValor(t *testing.T) {
	_, err := ledger.LineSubtotal(d("1"), d("5"), d("6"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSaleTotals_TasaNegativaRechazada(t *testing.T) {
	_, err := ledger.SaleTotals(nil, d("-0.1"), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tipos de ajuste
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyAdjustmentKind(t *testing.T) {
	cases := []struct {
		name      string
		previous  string
		kind      string
		requested string
		want      string
		wantErr   error
	}{
		{"add suma", "5", entity.AdjustmentAdd, "2.5", "7.5", nil},
		{"remove resta", "5", entity.AdjustmentRemove, "5", "0", nil},
		{"remove insuficiente", "3", entity.AdjustmentRemove, "5", "", domain.ErrInsufficientStock},
		{"set reemplaza", "12", entity.AdjustmentSet, "7", "7", nil},
		{"set a cero", "12", entity.AdjustmentSet, "0", "0", nil},
		{"set negativo", "12", entity.AdjustmentSet, "-1", "", domain.ErrInvalidInput},
		{"add cero", "1", entity.AdjustmentAdd, "0", "", domain.ErrInvalidInput},
		{"remove negativo", "1", entity.AdjustmentRemove, "-1", "", domain.ErrInvalidInput},
		{"tipo desconocido", "1", "transfer", "1", "", domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ledger.ApplyAdjustmentKind(d(tc.previous), tc.kind, d(tc.requested))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "error %v no envuelve %v", err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tc.want)), "esperado %s, obtenido %s", tc.want, got)
		})
	}
}

func TestApplyAdjustmentKind_InsuficienteReportaCantidades(t *testing.T) {
	_, err := ledger.ApplyAdjustmentKind(d("3"), entity.AdjustmentRemove, d("5"))
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.True(t, ise.Available.Equal(d("3")))
	assert.True(t, ise.Requested.Equal(d("5")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Deltas
// ──────────────────────────────────────────────────────────────────────────────

func TestMergeDeltas_AgrupaPorStock(t *testing.T) {
	merged := ledger.MergeDeltas([]entity.StockDelta{
		{StockID: "a", Quantity: d("-1")},
		{StockID: "b", Quantity: d("-2")},
		{StockID: "a", Quantity: d("-3")},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].StockID)
	assert.True(t, merged[0].Quantity.Equal(d("-4")))
	assert.Equal(t, "b", merged[1].StockID)
}

func TestNegate_EsInversoExacto(t *testing.T) {
	in := []entity.StockDelta{{StockID: "a", Quantity: d("-6")}}
	out := ledger.Negate(in)
	assert.True(t, out[0].Quantity.Equal(d("6")))
	assert.True(t, in[0].Quantity.Equal(d("-6")), "no debe mutar la entrada")
}
