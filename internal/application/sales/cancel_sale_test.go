package sales_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

func TestCancelSale_ConservaElStock(t *testing.T) {
	f := newFixture(t)
	pizza := f.seed(t, "Pizza", "0")
	cheese := f.seed(t, "Queso", "5.5")
	dough := f.seed(t, "Masa", "4")
	soda := f.seed(t, "Gaseosa", "12")
	f.define(t, pizza, map[string]string{cheese: "0.25", dough: "1"}, cheese, dough)

	ids := []string{pizza, cheese, dough, soda}
	before := make(map[string]string, len(ids))
	for _, id := range ids {
		before[id] = f.quantity(t, id).String()
	}

	ctx := context.Background()
	first, err := f.sales.CreateSale(ctx, cmd(line(pizza, "3", "20"), line(soda, "2", "3")))
	require.NoError(t, err)
	second, err := f.sales.CreateSale(ctx, cmd(line(pizza, "1", "20"), line(soda, "1", "3")))
	require.NoError(t, err)
	assert.True(t, f.quantity(t, cheese).Equal(d("4.5")))
	assert.True(t, f.quantity(t, dough).IsZero())

	for _, s := range []*entity.Sale{second, first} {
		_, err := f.sales.CancelSale(ctx, s.ID, "u-admin")
		require.NoError(t, err)
	}
	for _, id := range ids {
		assert.True(t, f.quantity(t, id).Equal(d(before[id])), "stock %s", id)
	}
}

func TestCancelSale_DobleAnulacionEsInvalidState(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, "Café", "10")
	ctx := context.Background()

	sale, err := f.sales.CreateSale(ctx, cmd(line(p, "4", "2")))
	require.NoError(t, err)

	cancelled, err := f.sales.CancelSale(ctx, sale.ID, "u-admin")
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusCancelled, cancelled.Status)
	assert.Equal(t, "u-admin", cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, f.quantity(t, p).Equal(d("10")))

	_, err = f.sales.CancelSale(ctx, sale.ID, "u-admin")
	var ise *domain.InvalidStateError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, entity.SaleStatusCancelled, ise.Status)
	assert.True(t, f.quantity(t, p).Equal(d("10")), "la segunda anulación no devuelve stock")
	assert.Equal(t, 1, f.events.count(ports.EventSaleCancelled))
}

func TestCancelSale_AnulacionesConcurrentesDevuelvenUnaVez(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, "Té", "10")
	ctx := context.Background()
	sale, err := f.sales.CreateSale(ctx, cmd(line(p, "3", "1")))
	require.NoError(t, err)

	const workers = 6
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.CancelSale(ctx, sale.ID, "u-admin")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.True(t, f.quantity(t, p).Equal(d("10")))
}

func TestCancelSale_NoEncontradaYValidacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sales.CancelSale(ctx, "no-existe", "u-admin")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.sales.CancelSale(ctx, "", "u-admin")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.sales.CancelSale(ctx, "x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancelSale_PendienteNoSeAnula(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := &entity.Sale{SaleNumber: "SALE-000009", Status: entity.SaleStatusPending}
	require.NoError(t, f.store.Sales().Create(ctx, pending))

	_, err := f.sales.CancelSale(ctx, pending.ID, "u-admin")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
