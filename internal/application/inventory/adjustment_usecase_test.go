package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/memory"
)

func TestApplyAdjustment_Add(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Harina", "10")

	adj, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: id, Kind: entity.AdjustmentAdd, Quantity: d("2.5"), ActorID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, adj.PreviousQty.Equal(d("10")))
	assert.True(t, adj.ResultingQty.Equal(d("12.5")))
	assert.Equal(t, entity.ReasonManualCorrection, adj.ReasonCategory)
	assert.True(t, f.quantity(t, id).Equal(d("12.5")))
	assert.Contains(t, f.events.types(), ports.EventStockAdjusted)
}

func TestApplyAdjustment_RemoveMasDeLoDisponible(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Queso", "3")

	_, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: id, Kind: entity.AdjustmentRemove, Quantity: d("5"), ActorID: "u1",
	})
	require.Error(t, err)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, id, ise.StockID)
	assert.True(t, ise.Available.Equal(d("3")))
	assert.True(t, ise.Requested.Equal(d("5")))

	assert.True(t, f.quantity(t, id).Equal(d("3")))
	hist, err := f.adjustments.GetAdjustmentHistory(context.Background(), id, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, hist.Data, 1, "solo la existencia inicial")
}

func TestApplyAdjustment_SetRegistraAnteriorYResultante(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Tomate", "12")

	adj, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: id, Kind: entity.AdjustmentSet, Quantity: d("7"), ReasonCategory: entity.ReasonWaste,
		Reason: "conteo físico", ActorID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, adj.PreviousQty.Equal(d("12")))
	assert.True(t, adj.ResultingQty.Equal(d("7")))
	assert.True(t, f.quantity(t, id).Equal(d("7")))
}

func TestApplyAdjustment_Validaciones(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Sal", "1")
	ctx := context.Background()

	cases := []inventory.AdjustmentCommand{
		{StockID: "", Kind: entity.AdjustmentAdd, Quantity: d("1"), ActorID: "u1"},
		{StockID: id, Kind: "multiply", Quantity: d("1"), ActorID: "u1"},
		{StockID: id, Kind: entity.AdjustmentAdd, Quantity: d("0"), ActorID: "u1"},
		{StockID: id, Kind: entity.AdjustmentSet, Quantity: d("-1"), ActorID: "u1"},
		{StockID: id, Kind: entity.AdjustmentAdd, Quantity: d("1"), ActorID: ""},
		{StockID: id, Kind: entity.AdjustmentAdd, Quantity: d("1"), ActorID: "u1", ReasonCategory: "robo"},
	}
	for _, cmd := range cases {
		_, err := f.adjustments.ApplyAdjustment(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", cmd)
	}
	assert.True(t, f.quantity(t, id).Equal(d("1")))
}

func TestApplyAdjustment_StockInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: "nada", Kind: entity.AdjustmentAdd, Quantity: d("1"), ActorID: "u1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyAdjustment_CarreraPorUltimaUnidad(t *testing.T) {
	cases := map[string][]memory.Option{
		"transaccional":      nil,
		"sin transacciones": {memory.WithoutTransactions()},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			raceForLastUnit(t, newFixture(t, opts...))
		})
	}
}

// raceForLastUnit: ocho retiros de 1 sobre una existencia de 1. Solo uno gana; sin
// transacciones los perdedores caen en el CAS por versión y releen la cantidad.
func raceForLastUnit(t *testing.T, f *fixture) {
	id := f.seed(t, "Trufa", "1")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		short     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
				StockID: id, Kind: entity.AdjustmentRemove, Quantity: d("1"), ActorID: "u1",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, short)
	assert.True(t, f.quantity(t, id).IsZero())

	hist, err := f.adjustments.GetAdjustmentHistory(context.Background(), id, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, hist.Page.Total, "existencia inicial + un retiro")
}

func TestApplyAdjustment_ConflictoPersistenteEsConcurrencyError(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Aceite", "4")
	uc := inventory.NewAdjustmentUseCase(conflictingRunner{inner: f.store}, f.store.Stocks(), f.store.Adjustments(), f.events, zerolog.Nop(), 2)

	_, err := uc.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: id, Kind: entity.AdjustmentAdd, Quantity: d("1"), ActorID: "u1",
	})
	var ce *domain.ConcurrencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Attempts)
	assert.True(t, domain.IsRetryable(err))
	assert.True(t, f.quantity(t, id).Equal(d("4")))
}

func TestApplyAdjustment_PublicaStockBajo(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Pan", "10", "5")

	_, err := f.adjustments.ApplyAdjustment(context.Background(), inventory.AdjustmentCommand{
		StockID: id, Kind: entity.AdjustmentRemove, Quantity: d("6"), ActorID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ports.EventStockAdjusted, ports.EventStockLow}, f.events.types())
}

func TestGetAdjustmentHistory_MasRecientePrimero(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, "Leche", "5")
	ctx := context.Background()
	for _, q := range []string{"1", "2", "3"} {
		_, err := f.adjustments.ApplyAdjustment(ctx, inventory.AdjustmentCommand{
			StockID: id, Kind: entity.AdjustmentAdd, Quantity: d(q), ActorID: "u1",
		})
		require.NoError(t, err)
	}

	hist, err := f.adjustments.GetAdjustmentHistory(ctx, id, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, hist.Page.Total)
	require.Len(t, hist.Data, 2)
	assert.True(t, hist.Data[0].RequestedQty.Equal(d("3")))
	assert.True(t, hist.Data[0].ResultingQty.Equal(d("11")))
	assert.True(t, hist.Data[1].RequestedQty.Equal(d("2")))

	_, err = f.adjustments.GetAdjustmentHistory(ctx, "nada", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAdjustments_TodosLosStocksMasRecientePrimero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.seed(t, "Arroz", "5")
	milk := f.seed(t, "Leche", "0")
	_, err := f.adjustments.ApplyAdjustment(ctx, inventory.AdjustmentCommand{
		StockID: milk, Kind: entity.AdjustmentAdd, Quantity: d("2"), ActorID: "u1",
	})
	require.NoError(t, err)
	_, err = f.adjustments.ApplyAdjustment(ctx, inventory.AdjustmentCommand{
		StockID: rice, Kind: entity.AdjustmentRemove, Quantity: d("1"), ActorID: "u1",
		ReasonCategory: entity.ReasonWaste,
	})
	require.NoError(t, err)

	all, err := f.adjustments.ListAdjustments(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Page.Total, "existencia inicial de arroz + dos ajustes")
	require.Len(t, all.Data, 3)
	assert.Equal(t, rice, all.Data[0].StockID)
	assert.Equal(t, entity.AdjustmentRemove, all.Data[0].Kind)
	assert.Equal(t, milk, all.Data[1].StockID)
	assert.Equal(t, entity.AdjustmentSet, all.Data[2].Kind)

	page, err := f.adjustments.ListAdjustments(ctx, dto.PageRequest{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, milk, page.Data[0].StockID)
}
