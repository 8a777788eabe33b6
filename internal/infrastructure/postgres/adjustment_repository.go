package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo historial de ajustes (solo INSERT y SELECT).
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

const adjustmentColumns = `id, stock_id, kind, requested_qty, previous_qty, resulting_qty, reason_category, reason, actor_id, created_at`

func (r *AdjustmentRepo) Create(ctx context.Context, a *entity.InventoryAdjustment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO inventory_adjustments (` + adjustmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.StockID, a.Kind, a.RequestedQty, a.PreviousQty, a.ResultingQty,
		a.ReasonCategory, nullIfEmpty(a.Reason), a.ActorID, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

// ListByStock historial paginado, más recientes primero.
func (r *AdjustmentRepo) ListByStock(ctx context.Context, stockID string, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM inventory_adjustments WHERE stock_id = $1`, stockID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count adjustments: %w", err)
	}
	query := `
		SELECT ` + adjustmentColumns + `
		FROM inventory_adjustments
		WHERE stock_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	list, err := r.queryAdjustments(ctx, query, stockID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// List historial completo paginado, más recientes primero.
func (r *AdjustmentRepo) List(ctx context.Context, limit, offset int) ([]*entity.InventoryAdjustment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM inventory_adjustments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count adjustments: %w", err)
	}
	query := `
		SELECT ` + adjustmentColumns + `
		FROM inventory_adjustments
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	list, err := r.queryAdjustments(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *AdjustmentRepo) queryAdjustments(ctx context.Context, query string, args ...any) ([]*entity.InventoryAdjustment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var list []*entity.InventoryAdjustment
	for rows.Next() {
		var a entity.InventoryAdjustment
		var reason *string
		if err := rows.Scan(
			&a.ID, &a.StockID, &a.Kind, &a.RequestedQty, &a.PreviousQty, &a.ResultingQty,
			&a.ReasonCategory, &reason, &a.ActorID, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.Reason = derefStr(reason)
		list = append(list, &a)
	}
	return list, rows.Err()
}
