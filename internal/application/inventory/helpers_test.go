package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/memory"
)

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...ports.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store       *memory.Store
	stock       *inventory.StockUseCase
	adjustments *inventory.AdjustmentUseCase
	events      *recordingPublisher
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.New(opts...)
	pub := &recordingPublisher{}
	return &fixture{
		store:       store,
		stock:       inventory.NewStockUseCase(store, store.Stocks(), zerolog.Nop()),
		adjustments: inventory.NewAdjustmentUseCase(store, store.Stocks(), store.Adjustments(), pub, zerolog.Nop(), 3),
		events:      pub,
	}
}

func (f *fixture) seed(t *testing.T, name string, qty string, threshold ...string) string {
	t.Helper()
	in := dto.CreateStockRequest{
		Name:            name,
		Unit:            "und",
		Cost:            decimal.RequireFromString("2.5"),
		InitialQuantity: decimal.RequireFromString(qty),
	}
	if len(threshold) > 0 {
		th := decimal.RequireFromString(threshold[0])
		in.MinThreshold = &th
	}
	out, err := f.stock.Create(context.Background(), "u-admin", in)
	require.NoError(t, err)
	return out.ID
}

func (f *fixture) quantity(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	q, _, err := f.store.Stocks().GetQuantity(context.Background(), id)
	require.NoError(t, err)
	return q
}

// conflictingRunner corre sobre el store real pero todo compare-and-set pierde la carrera.
type conflictingRunner struct {
	inner *memory.Store
}

type alwaysStaleStock struct {
	repository.StockRepository
}

func (alwaysStaleStock) CompareAndSetQuantity(context.Context, string, int64, decimal.Decimal) (bool, error) {
	return false, nil
}

func (r conflictingRunner) Atomic() bool { return true }

func (r conflictingRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		repos.Stock = alwaysStaleStock{repos.Stock}
		return fn(ctx, repos)
	})
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
