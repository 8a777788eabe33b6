package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedStock(t *testing.T, s *Store, id, qty string) {
	t.Helper()
	require.NoError(t, s.Stocks().Create(context.Background(), &entity.StockRecord{ID: id, Name: id, Quantity: dec(qty)}))
}

func TestRun_AtomicoRestauraAnteError(t *testing.T) {
	s := New()
	seedStock(t, s, "a", "5")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		_, err := repos.Stock.IncrementAtomic(ctx, "a", dec("-2"))
		require.NoError(t, err)
		require.NoError(t, repos.Sales.Create(ctx, &entity.Sale{SaleNumber: "SALE-000001"}))
		require.NoError(t, repos.Adjustments.Create(ctx, &entity.InventoryAdjustment{StockID: "a"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	q, _, err := s.Stocks().GetQuantity(ctx, "a")
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("5")))
	n, _ := s.Sales().Count(ctx)
	assert.Zero(t, n)
	_, total, _ := s.Adjustments().ListByStock(ctx, "a", 10, 0)
	assert.Zero(t, total)

	// el número liberado puede reutilizarse
	require.NoError(t, s.Sales().Create(ctx, &entity.Sale{SaleNumber: "SALE-000001"}))
}

func TestRun_SinTransaccionesConservaLoEscrito(t *testing.T) {
	s := New(WithoutTransactions())
	seedStock(t, s, "a", "5")
	ctx := context.Background()

	_ = s.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		_, _ = repos.Stock.IncrementAtomic(ctx, "a", dec("-2"))
		return errors.New("boom")
	})
	q, _, err := s.Stocks().GetQuantity(ctx, "a")
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("3")))
	assert.False(t, s.Atomic())
}

func TestCompareAndSet_Version(t *testing.T) {
	s := New()
	seedStock(t, s, "a", "5")
	ctx := context.Background()

	_, v, err := s.Stocks().GetQuantity(ctx, "a")
	require.NoError(t, err)

	ok, err := s.Stocks().CompareAndSetQuantity(ctx, "a", v, dec("7"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Stocks().CompareAndSetQuantity(ctx, "a", v, dec("9"))
	require.NoError(t, err)
	assert.False(t, ok, "versión vieja")

	q, v2, _ := s.Stocks().GetQuantity(ctx, "a")
	assert.True(t, q.Equal(dec("7")))
	assert.Equal(t, v+1, v2)

	_, err = s.Stocks().CompareAndSetQuantity(ctx, "nada", 1, dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIncrementAtomic_Guarda(t *testing.T) {
	s := New()
	seedStock(t, s, "a", "1")
	ctx := context.Background()

	_, err := s.Stocks().IncrementAtomic(ctx, "a", dec("-2"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	next, err := s.Stocks().IncrementAtomic(ctx, "a", dec("-1"))
	require.NoError(t, err)
	assert.True(t, next.IsZero())

	_, err = s.Stocks().IncrementAtomic(ctx, "nada", dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaleRepo_NumeroUnicoYMarkCancelled(t *testing.T) {
	s := New()
	ctx := context.Background()
	sale := &entity.Sale{SaleNumber: "SALE-000001", Status: entity.SaleStatusCompleted}
	require.NoError(t, s.Sales().Create(ctx, sale))

	err := s.Sales().Create(ctx, &entity.Sale{SaleNumber: "SALE-000001"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	ok, err := s.Sales().MarkCancelled(ctx, sale.ID, "u1", s.now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Sales().MarkCancelled(ctx, sale.ID, "u1", s.now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusCancelled, got.Status)
	assert.Equal(t, "u1", got.CancelledBy)
}

func TestPage(t *testing.T) {
	from, to := page(5, 2, 4)
	assert.Equal(t, 4, from)
	assert.Equal(t, 5, to)
	from, to = page(5, 2, 10)
	assert.Equal(t, 5, from)
	assert.Equal(t, 5, to)
}

func TestSaleRepo_ConsumoBorradoYUsoDeStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	sale := &entity.Sale{
		SaleNumber:  "SALE-000001",
		Status:      entity.SaleStatusCompleted,
		Consumption: []entity.StockDelta{{StockID: "a", Quantity: dec("2")}, {StockID: "b", Quantity: dec("1")}},
	}
	require.NoError(t, s.Sales().Create(ctx, sale))

	used, err := s.Sales().IsStockConsumed(ctx, "b")
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, s.Sales().SetConsumption(ctx, sale.ID, []entity.StockDelta{{StockID: "a", Quantity: dec("2")}}, s.now()))
	got, err := s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Consumption, 1)
	used, _ = s.Sales().IsStockConsumed(ctx, "b")
	assert.False(t, used)

	_, err = s.Sales().MarkCancelled(ctx, sale.ID, "u1", s.now())
	require.NoError(t, err)
	used, _ = s.Sales().IsStockConsumed(ctx, "a")
	assert.False(t, used, "las ventas anuladas no cuentan")

	require.NoError(t, s.Sales().Delete(ctx, sale.ID))
	got, err = s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, total, _ := s.Sales().List(ctx, 10, 0)
	assert.Zero(t, total)
	assert.ErrorIs(t, s.Sales().Delete(ctx, sale.ID), domain.ErrNotFound)
	assert.ErrorIs(t, s.Sales().SetConsumption(ctx, sale.ID, nil, s.now()), domain.ErrNotFound)

	// el número queda libre
	require.NoError(t, s.Sales().Create(ctx, &entity.Sale{SaleNumber: "SALE-000001"}))
}

func TestStockRepo_UpdateDetailsNoTocaCantidad(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedStock(t, s, "a", "5")
	before, err := s.Stocks().GetByID(ctx, "a")
	require.NoError(t, err)

	th := dec("3")
	rec := &entity.StockRecord{ID: "a", Name: "Harina", Unit: "kg", Quantity: dec("99"), Version: 40, MinThreshold: &th}
	require.NoError(t, s.Stocks().UpdateDetails(ctx, rec))
	th = dec("100")

	got, err := s.Stocks().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Harina", got.Name)
	assert.True(t, got.Quantity.Equal(dec("5")))
	assert.Equal(t, before.Version, got.Version)
	require.NotNil(t, got.MinThreshold)
	assert.True(t, got.MinThreshold.Equal(dec("3")))
	assert.True(t, rec.Quantity.Equal(dec("5")), "el registro devuelto refleja lo persistido")

	assert.ErrorIs(t, s.Stocks().UpdateDetails(ctx, &entity.StockRecord{ID: "nada"}), domain.ErrNotFound)
}

func TestAdjustmentRepo_ListMasRecientePrimero(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a"} {
		require.NoError(t, s.Adjustments().Create(ctx, &entity.InventoryAdjustment{StockID: id, Reason: id}))
	}
	items, total, err := s.Adjustments().List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].StockID)
	assert.Equal(t, "b", items[1].StockID)
}
