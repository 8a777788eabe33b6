package sales_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/recipe"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/sales"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

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

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	store   *memory.Store
	stock   *inventory.StockUseCase
	recipes *recipe.UseCase
	sales   *sales.SaleUseCase
	events  *recordingPublisher
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.New(opts...)
	return newFixtureWithRunner(t, store, store, sales.DefaultConfig())
}

func newFixtureWithRunner(t *testing.T, store *memory.Store, tx ports.TxRunner, cfg sales.Config) *fixture {
	t.Helper()
	pub := &recordingPublisher{}
	resolver := recipe.NewResolver(store.Recipes(), store.Stocks())
	return &fixture{
		store:   store,
		stock:   inventory.NewStockUseCase(store, store.Stocks(), zerolog.Nop()),
		recipes: recipe.NewUseCase(store.Recipes(), store.Stocks(), zerolog.Nop()),
		sales:   sales.NewSaleUseCase(tx, store.Stocks(), store.Sales(), resolver, pub, zerolog.Nop(), cfg),
		events:  pub,
	}
}

func (f *fixture) seed(t *testing.T, name, qty string) string {
	t.Helper()
	out, err := f.stock.Create(context.Background(), "u-admin", dto.CreateStockRequest{
		Name: name, Unit: "und", InitialQuantity: d(qty),
	})
	require.NoError(t, err)
	return out.ID
}

func (f *fixture) define(t *testing.T, productID string, ingredients map[string]string, order ...string) {
	t.Helper()
	in := dto.DefineRecipeRequest{ProductID: productID, Name: "receta " + productID, Price: d("10")}
	for _, id := range order {
		in.Ingredients = append(in.Ingredients, dto.RecipeIngredientRequest{StockID: id, Quantity: d(ingredients[id])})
	}
	_, err := f.recipes.Define(context.Background(), in)
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	q, _, err := f.store.Stocks().GetQuantity(context.Background(), id)
	require.NoError(t, err)
	return q
}

func (f *fixture) saleCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.Sales().Count(context.Background())
	require.NoError(t, err)
	return n
}

func line(productID, qty, price string) sales.LineInput {
	return sales.LineInput{ProductID: productID, Quantity: d(qty), UnitPrice: d(price)}
}

func cmd(lines ...sales.LineInput) sales.CreateSaleCommand {
	return sales.CreateSaleCommand{Lines: lines, PaymentMethod: "cash", ActorID: "u-caja"}
}

// rejectingRunner envuelve el store y hace fallar el incremento atómico sobre un stock.
type rejectingRunner struct {
	inner  *memory.Store
	atomic bool
	reject string
}

type rejectingStock struct {
	repository.StockRepository
	reject string
}

func (s rejectingStock) IncrementAtomic(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	if id == s.reject {
		return decimal.Zero, fmt.Errorf("increment %s: %w", id, domain.ErrInsufficientStock)
	}
	return s.StockRepository.IncrementAtomic(ctx, id, delta)
}

func (r rejectingRunner) Atomic() bool { return r.atomic }

func (r rejectingRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
		repos.Stock = rejectingStock{StockRepository: repos.Stock, reject: r.reject}
		return fn(ctx, repos)
	})
}
