package postgres

import (
	"context"
	"encoding/json"
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

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas en PostgreSQL. Líneas y consumo se guardan como JSONB en la misma fila:
// la venta completada es inmutable y siempre se lee entera.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

type saleLineJSON struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type stockDeltaJSON struct {
	StockID  string          `json:"stock_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

type customerJSON struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

const saleColumns = `id, sale_number, customer, payment_method, notes, lines, consumption,
	subtotal, tax, discount, total, status, actor_id, cancelled_by, created_at, updated_at, cancelled_at`

func (r *SaleRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

// Create inserta la venta. ErrDuplicate si el número (o el ID) ya existe.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	lines, consumption, customer, err := encodeSale(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.q.Exec(ctx, query,
		s.ID, s.SaleNumber, customer, s.PaymentMethod, nullIfEmpty(s.Notes), lines, consumption,
		s.Subtotal, s.Tax, s.Discount, s.Total, s.Status, s.ActorID, nullIfEmpty(s.CancelledBy),
		s.CreatedAt, s.UpdatedAt, s.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert sale %s: %w", s.SaleNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return s, nil
}

func (r *SaleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Sale, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC, sale_number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// MarkCancelled UPDATE condicionado a status = 'completed'; 0 filas = ya no estaba completada.
func (r *SaleRepo) MarkCancelled(ctx context.Context, id, actorID string, at time.Time) (bool, error) {
	query := `
		UPDATE sales
		SET status = 'cancelled', cancelled_by = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'completed'`
	tag, err := r.q.Exec(ctx, query, id, actorID, at)
	if err != nil {
		return false, fmt.Errorf("cancel sale: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sales WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("cancel sale: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("cancel sale %s: %w", id, domain.ErrNotFound)
	}
	return false, nil
}

// SetConsumption reescribe el JSONB de consumo.
func (r *SaleRepo) SetConsumption(ctx context.Context, id string, consumption []entity.StockDelta, at time.Time) error {
	cs := make([]stockDeltaJSON, 0, len(consumption))
	for _, c := range consumption {
		cs = append(cs, stockDeltaJSON(c))
	}
	raw, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("encode sale consumption: %w", err)
	}
	tag, err := r.q.Exec(ctx, `UPDATE sales SET consumption = $2, updated_at = $3 WHERE id = $1`, id, raw, at)
	if err != nil {
		return fmt.Errorf("set sale consumption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set sale consumption %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete sale %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// IsStockConsumed usa contención JSONB (@>) sobre el arreglo de consumo; lo cubre idx_sales_consumption.
func (r *SaleRepo) IsStockConsumed(ctx context.Context, stockID string) (bool, error) {
	filter, err := json.Marshal([]map[string]string{{"stock_id": stockID}})
	if err != nil {
		return false, fmt.Errorf("encode consumption filter: %w", err)
	}
	var consumed bool
	query := `SELECT EXISTS(SELECT 1 FROM sales WHERE status = 'completed' AND consumption @> $1::jsonb)`
	if err := r.q.QueryRow(ctx, query, filter).Scan(&consumed); err != nil {
		return false, fmt.Errorf("sale consumption lookup: %w", err)
	}
	return consumed, nil
}

func encodeSale(s *entity.Sale) (lines, consumption, customer []byte, err error) {
	ls := make([]saleLineJSON, 0, len(s.Lines))
	for _, l := range s.Lines {
		ls = append(ls, saleLineJSON(l))
	}
	if lines, err = json.Marshal(ls); err != nil {
		return nil, nil, nil, fmt.Errorf("encode sale lines: %w", err)
	}
	cs := make([]stockDeltaJSON, 0, len(s.Consumption))
	for _, c := range s.Consumption {
		cs = append(cs, stockDeltaJSON(c))
	}
	if consumption, err = json.Marshal(cs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode sale consumption: %w", err)
	}
	if s.Customer != nil {
		if customer, err = json.Marshal(customerJSON(*s.Customer)); err != nil {
			return nil, nil, nil, fmt.Errorf("encode customer: %w", err)
		}
	}
	return lines, consumption, customer, nil
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	var customer, lines, consumption []byte
	var notes, cancelledBy *string
	err := row.Scan(
		&s.ID, &s.SaleNumber, &customer, &s.PaymentMethod, &notes, &lines, &consumption,
		&s.Subtotal, &s.Tax, &s.Discount, &s.Total, &s.Status, &s.ActorID, &cancelledBy,
		&s.CreatedAt, &s.UpdatedAt, &s.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	s.Notes = derefStr(notes)
	s.CancelledBy = derefStr(cancelledBy)

	var ls []saleLineJSON
	if err := json.Unmarshal(lines, &ls); err != nil {
		return nil, fmt.Errorf("decode sale lines: %w", err)
	}
	for _, l := range ls {
		s.Lines = append(s.Lines, entity.SaleLine(l))
	}
	var cs []stockDeltaJSON
	if err := json.Unmarshal(consumption, &cs); err != nil {
		return nil, fmt.Errorf("decode sale consumption: %w", err)
	}
	for _, c := range cs {
		s.Consumption = append(s.Consumption, entity.StockDelta(c))
	}
	if len(customer) > 0 {
		var c customerJSON
		if err := json.Unmarshal(customer, &c); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
		ci := entity.CustomerInfo(c)
		s.Customer = &ci
	}
	return &s, nil
}
