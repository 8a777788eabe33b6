package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
)

// ==================== Conversión decimal ====================

func toD128(field string, d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, domain.NewValidationError(field, fmt.Sprintf("fuera de rango para Decimal128: %s", d))
	}
	return v, nil
}

func fromD128(field string, v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, fmt.Sprintf("valor almacenado inválido %q", v.String()))
	}
	return d, nil
}

// decimalCodec acumula el primer error para no repetir el chequeo en cada campo.
type decimalCodec struct{ err error }

func (c *decimalCodec) to(field string, d decimal.Decimal) bson.Decimal128 {
	if c.err != nil {
		return bson.Decimal128{}
	}
	v, err := toD128(field, d)
	c.err = err
	return v
}

func (c *decimalCodec) from(field string, v bson.Decimal128) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	d, err := fromD128(field, v)
	c.err = err
	return d
}

// ==================== Stock ====================

type stockModel struct {
	ID           string           `bson:"_id"`
	Name         string           `bson:"name"`
	Unit         string           `bson:"unit"`
	Category     string           `bson:"category"`
	Cost         bson.Decimal128  `bson:"cost"`
	Quantity     bson.Decimal128  `bson:"quantity"`
	MinThreshold *bson.Decimal128 `bson:"min_threshold"`
	Version      int64            `bson:"version"`
	CreatedAt    time.Time        `bson:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at"`
}

func toStockModel(s *entity.StockRecord) (*stockModel, error) {
	var c decimalCodec
	m := &stockModel{
		ID:        s.ID,
		Name:      s.Name,
		Unit:      s.Unit,
		Category:  s.Category,
		Cost:      c.to("cost", s.Cost),
		Quantity:  c.to("quantity", s.Quantity),
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.MinThreshold != nil {
		t := c.to("min_threshold", *s.MinThreshold)
		m.MinThreshold = &t
	}
	return m, c.err
}

func fromStockModel(m *stockModel) (*entity.StockRecord, error) {
	var c decimalCodec
	s := &entity.StockRecord{
		ID:        m.ID,
		Name:      m.Name,
		Unit:      m.Unit,
		Category:  m.Category,
		Cost:      c.from("cost", m.Cost),
		Quantity:  c.from("quantity", m.Quantity),
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.MinThreshold != nil {
		t := c.from("min_threshold", *m.MinThreshold)
		s.MinThreshold = &t
	}
	return s, c.err
}

// ==================== Ajustes ====================

type adjustmentModel struct {
	ID             string          `bson:"_id"`
	StockID        string          `bson:"stock_id"`
	Kind           string          `bson:"kind"`
	RequestedQty   bson.Decimal128 `bson:"requested_qty"`
	PreviousQty    bson.Decimal128 `bson:"previous_qty"`
	ResultingQty   bson.Decimal128 `bson:"resulting_qty"`
	ReasonCategory string          `bson:"reason_category"`
	Reason         string          `bson:"reason,omitempty"`
	ActorID        string          `bson:"actor_id"`
	CreatedAt      time.Time       `bson:"created_at"`
}

func toAdjustmentModel(a *entity.InventoryAdjustment) (*adjustmentModel, error) {
	var c decimalCodec
	m := &adjustmentModel{
		ID:             a.ID,
		StockID:        a.StockID,
		Kind:           a.Kind,
		RequestedQty:   c.to("requested_qty", a.RequestedQty),
		PreviousQty:    c.to("previous_qty", a.PreviousQty),
		ResultingQty:   c.to("resulting_qty", a.ResultingQty),
		ReasonCategory: a.ReasonCategory,
		Reason:         a.Reason,
		ActorID:        a.ActorID,
		CreatedAt:      a.CreatedAt,
	}
	return m, c.err
}

func fromAdjustmentModel(m *adjustmentModel) (*entity.InventoryAdjustment, error) {
	var c decimalCodec
	a := &entity.InventoryAdjustment{
		ID:             m.ID,
		StockID:        m.StockID,
		Kind:           m.Kind,
		RequestedQty:   c.from("requested_qty", m.RequestedQty),
		PreviousQty:    c.from("previous_qty", m.PreviousQty),
		ResultingQty:   c.from("resulting_qty", m.ResultingQty),
		ReasonCategory: m.ReasonCategory,
		Reason:         m.Reason,
		ActorID:        m.ActorID,
		CreatedAt:      m.CreatedAt,
	}
	return a, c.err
}

// ==================== Ventas ====================

type saleLineModel struct {
	ProductID string          `bson:"product_id"`
	Name      string          `bson:"name"`
	Quantity  bson.Decimal128 `bson:"quantity"`
	UnitPrice bson.Decimal128 `bson:"unit_price"`
	Discount  bson.Decimal128 `bson:"discount"`
	Subtotal  bson.Decimal128 `bson:"subtotal"`
}

type stockDeltaModel struct {
	StockID  string          `bson:"stock_id"`
	Quantity bson.Decimal128 `bson:"quantity"`
}

type customerModel struct {
	Name  string `bson:"name,omitempty"`
	Email string `bson:"email,omitempty"`
	Phone string `bson:"phone,omitempty"`
}

type saleModel struct {
	ID            string            `bson:"_id"`
	SaleNumber    string            `bson:"sale_number"`
	Customer      *customerModel    `bson:"customer,omitempty"`
	PaymentMethod string            `bson:"payment_method"`
	Notes         string            `bson:"notes,omitempty"`
	Lines         []saleLineModel   `bson:"lines"`
	Consumption   []stockDeltaModel `bson:"consumption"`
	Subtotal      bson.Decimal128   `bson:"subtotal"`
	Tax           bson.Decimal128   `bson:"tax"`
	Discount      bson.Decimal128   `bson:"discount"`
	Total         bson.Decimal128   `bson:"total"`
	Status        string            `bson:"status"`
	ActorID       string            `bson:"actor_id"`
	CancelledBy   string            `bson:"cancelled_by,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
	CancelledAt   *time.Time        `bson:"cancelled_at,omitempty"`
}

func toSaleModel(s *entity.Sale) (*saleModel, error) {
	var c decimalCodec
	m := &saleModel{
		ID:            s.ID,
		SaleNumber:    s.SaleNumber,
		PaymentMethod: s.PaymentMethod,
		Notes:         s.Notes,
		Lines:         make([]saleLineModel, len(s.Lines)),
		Consumption:   make([]stockDeltaModel, len(s.Consumption)),
		Subtotal:      c.to("subtotal", s.Subtotal),
		Tax:           c.to("tax", s.Tax),
		Discount:      c.to("discount", s.Discount),
		Total:         c.to("total", s.Total),
		Status:        s.Status,
		ActorID:       s.ActorID,
		CancelledBy:   s.CancelledBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		CancelledAt:   s.CancelledAt,
	}
	if s.Customer != nil {
		m.Customer = &customerModel{Name: s.Customer.Name, Email: s.Customer.Email, Phone: s.Customer.Phone}
	}
	for i, l := range s.Lines {
		m.Lines[i] = saleLineModel{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  c.to("lines.quantity", l.Quantity),
			UnitPrice: c.to("lines.unit_price", l.UnitPrice),
			Discount:  c.to("lines.discount", l.Discount),
			Subtotal:  c.to("lines.subtotal", l.Subtotal),
		}
	}
	for i, d := range s.Consumption {
		m.Consumption[i] = stockDeltaModel{StockID: d.StockID, Quantity: c.to("consumption.quantity", d.Quantity)}
	}
	return m, c.err
}

func fromSaleModel(m *saleModel) (*entity.Sale, error) {
	var c decimalCodec
	s := &entity.Sale{
		ID:            m.ID,
		SaleNumber:    m.SaleNumber,
		PaymentMethod: m.PaymentMethod,
		Notes:         m.Notes,
		Lines:         make([]entity.SaleLine, len(m.Lines)),
		Consumption:   make([]entity.StockDelta, len(m.Consumption)),
		Subtotal:      c.from("subtotal", m.Subtotal),
		Tax:           c.from("tax", m.Tax),
		Discount:      c.from("discount", m.Discount),
		Total:         c.from("total", m.Total),
		Status:        m.Status,
		ActorID:       m.ActorID,
		CancelledBy:   m.CancelledBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		CancelledAt:   m.CancelledAt,
	}
	if m.Customer != nil {
		s.Customer = &entity.CustomerInfo{Name: m.Customer.Name, Email: m.Customer.Email, Phone: m.Customer.Phone}
	}
	for i, l := range m.Lines {
		s.Lines[i] = entity.SaleLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  c.from("lines.quantity", l.Quantity),
			UnitPrice: c.from("lines.unit_price", l.UnitPrice),
			Discount:  c.from("lines.discount", l.Discount),
			Subtotal:  c.from("lines.subtotal", l.Subtotal),
		}
	}
	for i, d := range m.Consumption {
		s.Consumption[i] = entity.StockDelta{StockID: d.StockID, Quantity: c.from("consumption.quantity", d.Quantity)}
	}
	return s, c.err
}

// ==================== Recetas ====================

type ingredientModel struct {
	StockID  string          `bson:"stock_id"`
	Quantity bson.Decimal128 `bson:"quantity"`
}

type recipeModel struct {
	ID              string            `bson:"_id"`
	ProductID       string            `bson:"product_id"`
	Name            string            `bson:"name"`
	Category        string            `bson:"category,omitempty"`
	Price           bson.Decimal128   `bson:"price"`
	PreparationTime int               `bson:"preparation_time"`
	Active          bool              `bson:"active"`
	Ingredients     []ingredientModel `bson:"ingredients"`
	CreatedAt       time.Time         `bson:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at"`
}

func toRecipeModel(r *entity.Recipe) (*recipeModel, error) {
	var c decimalCodec
	m := &recipeModel{
		ID:              r.ID,
		ProductID:       r.ProductID,
		Name:            r.Name,
		Category:        r.Category,
		Price:           c.to("price", r.Price),
		PreparationTime: r.PreparationTime,
		Active:          r.Active,
		Ingredients:     make([]ingredientModel, len(r.Ingredients)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for i, ing := range r.Ingredients {
		m.Ingredients[i] = ingredientModel{StockID: ing.StockID, Quantity: c.to("ingredients.quantity", ing.Quantity)}
	}
	return m, c.err
}

func fromRecipeModel(m *recipeModel) (*entity.Recipe, error) {
	var c decimalCodec
	r := &entity.Recipe{
		ID:              m.ID,
		ProductID:       m.ProductID,
		Name:            m.Name,
		Category:        m.Category,
		Price:           c.from("price", m.Price),
		PreparationTime: m.PreparationTime,
		Active:          m.Active,
		Ingredients:     make([]entity.RecipeIngredient, len(m.Ingredients)),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for i, ing := range m.Ingredients {
		r.Ingredients[i] = entity.RecipeIngredient{StockID: ing.StockID, Quantity: c.from("ingredients.quantity", ing.Quantity)}
	}
	return r, c.err
}
