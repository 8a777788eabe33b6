package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

func TestStockCreate_ExistenciaInicialAuditada(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Arroz", "20")

	got, err := f.stock.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StockCategoryIngredient, got.Category)
	assert.True(t, got.Quantity.Equal(d("20")))

	hist, err := f.adjustments.GetAdjustmentHistory(context.Background(), id, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, hist.Data, 1)
	assert.Equal(t, entity.AdjustmentSet, hist.Data[0].Kind)
	assert.True(t, hist.Data[0].PreviousQty.IsZero())
	assert.True(t, hist.Data[0].ResultingQty.Equal(d("20")))
}

func TestStockCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	neg := d("-1")
	cases := []dto.CreateStockRequest{
		{Name: "", Unit: "kg"},
		{Name: "x", Unit: ""},
		{Name: "x", Unit: "kg", Category: "bebida"},
		{Name: "x", Unit: "kg", InitialQuantity: d("-1")},
		{Name: "x", Unit: "kg", Cost: d("-1")},
		{Name: "x", Unit: "kg", MinThreshold: &neg},
	}
	for _, in := range cases {
		_, err := f.stock.Create(ctx, "u1", in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", in)
	}
}

func TestStockDelete_BloqueadoPorRecetaActiva(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seed(t, "Pizza", "0")
	cheese := f.seed(t, "Mozzarella", "10")

	rec := &entity.Recipe{
		ProductID: product, Name: "Pizza", Active: true,
		Ingredients: []entity.RecipeIngredient{{StockID: cheese, Quantity: d("0.2")}},
	}
	require.NoError(t, f.store.Recipes().Save(ctx, rec))

	err := f.stock.Delete(ctx, cheese)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	err = f.stock.Delete(ctx, product)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, f.store.Recipes().Deactivate(ctx, rec.ID))
	require.NoError(t, f.stock.Delete(ctx, cheese))

	_, err = f.stock.GetByID(ctx, cheese)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.stock.Delete(ctx, cheese), domain.ErrNotFound)
}

func TestStockList_Paginado(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"c", "a", "b"} {
		f.seed(t, n, "1")
	}
	page, err := f.stock.List(context.Background(), dto.PageRequest{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "b", page.Data[0].Name)
	assert.Equal(t, "c", page.Data[1].Name)
}

func TestLowStock_OrdenPorDeficitRelativo(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Lleno", "10", "5")
	half := f.seed(t, "Mitad", "5", "10")
	empty := f.seed(t, "Vacío", "0", "4")

	list, err := inventory.NewLowStockUseCase(f.store.Stocks()).GenerateLowStockList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, empty, list[0].StockID)
	assert.Equal(t, 1, list[0].Priority)
	assert.True(t, list[0].IdealStock.Equal(d("6")))
	assert.True(t, list[0].SuggestedQty.Equal(d("6")))
	assert.True(t, list[0].EstimatedCost.Equal(decimal.RequireFromString("15")))

	assert.Equal(t, half, list[1].StockID)
	assert.True(t, list[1].SuggestedQty.Equal(d("10")))
}

func TestStockDelete_BloqueadoPorVentaCompletada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soda := f.seed(t, "Gaseosa", "10")

	sale := &entity.Sale{
		SaleNumber:  "SALE-000001",
		Status:      entity.SaleStatusCompleted,
		ActorID:     "u-caja",
		Consumption: []entity.StockDelta{{StockID: soda, Quantity: d("2")}},
	}
	require.NoError(t, f.store.Sales().Create(ctx, sale))

	err := f.stock.Delete(ctx, soda)
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "consumed", ise.Status)

	// anulada, la venta ya no necesita el registro
	ok, err := f.store.Sales().MarkCancelled(ctx, sale.ID, "u-admin", sale.CreatedAt)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.stock.Delete(ctx, soda))
}

func TestStockUpdate_SoloDatosDescriptivos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "Harina", "12", "4")
	before, err := f.stock.GetByID(ctx, id)
	require.NoError(t, err)

	name, cost, threshold := "Harina 000", d("3.10"), d("6")
	out, err := f.stock.Update(ctx, "u-admin", id, dto.UpdateStockRequest{
		Name: &name, Cost: &cost, MinThreshold: &threshold,
	})
	require.NoError(t, err)
	assert.Equal(t, "Harina 000", out.Name)
	assert.Equal(t, "und", out.Unit)
	assert.True(t, out.Cost.Equal(d("3.10")))
	require.NotNil(t, out.MinThreshold)
	assert.True(t, out.MinThreshold.Equal(d("6")))
	assert.True(t, out.Quantity.Equal(d("12")))
	assert.Equal(t, before.Version, out.Version, "la versión es del CAS de cantidad")

	out, err = f.stock.Update(ctx, "u-admin", id, dto.UpdateStockRequest{ClearMinThreshold: true})
	require.NoError(t, err)
	assert.Nil(t, out.MinThreshold)

	hist, err := f.adjustments.GetAdjustmentHistory(ctx, id, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Page.Total, "editar datos no genera ajustes")
}

func TestStockUpdate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(t, "Sal", "1")
	empty, bad, neg := "  ", "bebida", d("-1")
	qty := d("50")

	cases := map[string]dto.UpdateStockRequest{
		"sin campos":         {},
		"cantidad":           {Quantity: &qty},
		"nombre vacío":       {Name: &empty},
		"unidad vacía":       {Unit: &empty},
		"categoría inválida": {Category: &bad},
		"costo negativo":     {Cost: &neg},
		"umbral negativo":    {MinThreshold: &neg},
		"fijar y borrar":     {MinThreshold: &qty, ClearMinThreshold: true},
	}
	for name, in := range cases {
		_, err := f.stock.Update(ctx, "u-admin", id, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
	assert.True(t, f.quantity(t, id).Equal(d("1")))

	name := "Sal fina"
	_, err := f.stock.Update(ctx, "u-admin", "nada", dto.UpdateStockRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
