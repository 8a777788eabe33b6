package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `id, name, unit, category, cost, quantity, min_threshold, version, created_at, updated_at`

func (r *StockRepo) Create(ctx context.Context, s *entity.StockRecord) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Version == 0 {
		s.Version = 1
	}
	query := `
		INSERT INTO stock_records (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.Name, s.Unit, s.Category, s.Cost, s.Quantity, s.MinThreshold, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert stock %s: %w", s.ID, domain.ErrDuplicate)
		}
		if isCheckViolation(err) {
			return domain.NewValidationError("quantity", "no puede ser negativa")
		}
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

// GetByID obtiene un registro por ID. Devuelve nil, nil si no existe.
func (r *StockRepo) GetByID(ctx context.Context, id string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE id = $1`
	s, err := scanStock(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

func (r *StockRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockRecord, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock: %w", err)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records ORDER BY name, id LIMIT $1 OFFSET $2`
	list, err := r.queryStocks(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetQuantity lectura puntual de cantidad y versión.
func (r *StockRepo) GetQuantity(ctx context.Context, id string) (decimal.Decimal, int64, error) {
	var qty decimal.Decimal
	var version int64
	err := r.q.QueryRow(ctx, `SELECT quantity, version FROM stock_records WHERE id = $1`, id).Scan(&qty, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, 0, fmt.Errorf("get quantity %s: %w", id, domain.ErrNotFound)
		}
		return decimal.Zero, 0, fmt.Errorf("get quantity: %w", err)
	}
	return qty, version, nil
}

// CompareAndSetQuantity UPDATE condicionado a la versión leída; 0 filas = conflicto.
func (r *StockRepo) CompareAndSetQuantity(ctx context.Context, id string, expectedVersion int64, quantity decimal.Decimal) (bool, error) {
	query := `
		UPDATE stock_records
		SET quantity = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, id, expectedVersion, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return false, fmt.Errorf("compare and set %s: %w", id, domain.ErrInsufficientStock)
		}
		return false, fmt.Errorf("compare and set: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, _, err := r.GetQuantity(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// IncrementAtomic quantity += delta en una sola sentencia; la guarda va en el WHERE.
func (r *StockRepo) IncrementAtomic(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE stock_records
		SET quantity = quantity + $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING quantity`
	var next decimal.Decimal
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("increment stock: %w", err)
	}
	current, _, err := r.GetQuantity(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return current, fmt.Errorf("increment %s: %w", id, domain.ErrInsufficientStock)
}

// UpdateDetails no toca quantity ni version: los datos descriptivos no compiten con el CAS.
func (r *StockRepo) UpdateDetails(ctx context.Context, s *entity.StockRecord) error {
	query := `
		UPDATE stock_records
		SET name = $2, unit = $3, category = $4, cost = $5, min_threshold = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + stockColumns
	updated, err := scanStock(r.q.QueryRow(ctx, query, s.ID, s.Name, s.Unit, s.Category, s.Cost, s.MinThreshold))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update stock %s: %w", s.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update stock: %w", err)
	}
	*s = *updated
	return nil
}

func (r *StockRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete stock %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *StockRepo) ListBelowThreshold(ctx context.Context) ([]*entity.StockRecord, error) {
	query := `
		SELECT ` + stockColumns + ` FROM stock_records
		WHERE min_threshold IS NOT NULL AND quantity < min_threshold
		ORDER BY id`
	return r.queryStocks(ctx, query)
}

func (r *StockRepo) queryStocks(ctx context.Context, query string, args ...any) ([]*entity.StockRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	var threshold decimal.NullDecimal
	err := row.Scan(
		&s.ID, &s.Name, &s.Unit, &s.Category, &s.Cost, &s.Quantity, &threshold,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if threshold.Valid {
		t := threshold.Decimal
		s.MinThreshold = &t
	}
	return &s, nil
}
