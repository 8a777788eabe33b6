// Package memory implementa los puertos de persistencia en memoria. Se usa en
// desarrollo (STORE_DRIVER=memory) y como fixture de los tests de casos de uso.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var _ ports.TxRunner = (*Store)(nil)

// Store guarda todo en mapas protegidos por un mutex.
//
// En modo atómico (por defecto) Run toma el mutex durante toda la función y
// restaura el estado previo si falla, igual que una transacción serializable.
// Con WithoutTransactions cada operación bloquea por separado y un fallo a
// mitad de Run deja aplicadas las escrituras previas.
type Store struct {
	mu     sync.Mutex
	atomic bool
	now    func() time.Time

	stocks      map[string]*entity.StockRecord
	adjustments []*entity.InventoryAdjustment
	sales       map[string]*entity.Sale
	saleNumbers map[string]string // sale_number -> id
	saleOrder   []string
	recipes     map[string]*entity.Recipe
}

// Option configura el Store.
type Option func(*Store)

// WithoutTransactions desactiva el rollback de Run.
func WithoutTransactions() Option {
	return func(s *Store) { s.atomic = false }
}

// WithClock fija el reloj usado para timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New construye un Store vacío.
func New(opts ...Option) *Store {
	s := &Store{
		atomic:      true,
		now:         func() time.Time { return time.Now().UTC() },
		stocks:      make(map[string]*entity.StockRecord),
		sales:       make(map[string]*entity.Sale),
		saleNumbers: make(map[string]string),
		recipes:     make(map[string]*entity.Recipe),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stocks repositorio de stock fuera de transacción.
func (s *Store) Stocks() repository.StockRepository { return &StockRepo{s: s} }

// Adjustments repositorio de ajustes fuera de transacción.
func (s *Store) Adjustments() repository.AdjustmentRepository { return &AdjustmentRepo{s: s} }

// Sales repositorio de ventas fuera de transacción.
func (s *Store) Sales() repository.SaleRepository { return &SaleRepo{s: s} }

// Recipes repositorio de recetas fuera de transacción.
func (s *Store) Recipes() repository.RecipeRepository { return &RecipeRepo{s: s} }

// Atomic indica si Run deshace las escrituras ante error.
func (s *Store) Atomic() bool { return s.atomic }

// Run ejecuta fn con repositorios de la unidad de trabajo.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepos) error) error {
	if !s.atomic {
		return fn(ctx, ports.TxRepos{
			Stock:       s.Stocks(),
			Adjustments: s.Adjustments(),
			Sales:       s.Sales(),
			Recipes:     s.Recipes(),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	err := fn(ctx, ports.TxRepos{
		Stock:       &StockRepo{s: s, locked: true},
		Adjustments: &AdjustmentRepo{s: s, locked: true},
		Sales:       &SaleRepo{s: s, locked: true},
		Recipes:     &RecipeRepo{s: s, locked: true},
	})
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Las entidades guardadas nunca se mutan en sitio (copy-on-write), así que
// basta con copiar los mapas para poder restaurarlos.
type snapshot struct {
	stocks      map[string]*entity.StockRecord
	adjustments int
	sales       map[string]*entity.Sale
	saleNumbers map[string]string
	saleOrder   int
	recipes     map[string]*entity.Recipe
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		stocks:      copyMap(s.stocks),
		adjustments: len(s.adjustments),
		sales:       copyMap(s.sales),
		saleNumbers: copyMap(s.saleNumbers),
		saleOrder:   len(s.saleOrder),
		recipes:     copyMap(s.recipes),
	}
}

func (s *Store) restore(snap snapshot) {
	s.stocks = snap.stocks
	s.adjustments = s.adjustments[:snap.adjustments]
	s.sales = snap.sales
	s.saleNumbers = snap.saleNumbers
	s.saleOrder = s.saleOrder[:snap.saleOrder]
	s.recipes = snap.recipes
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// guard bloquea el store salvo que el repositorio ya corra dentro de Run.
func (s *Store) guard(locked bool) func() {
	if locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func page(total, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}
