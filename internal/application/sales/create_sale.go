package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/telemetry"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/entity"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/ledger"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// errSaleNumberTaken otro proceso insertó el mismo número de venta.
var errSaleNumberTaken = errors.New("número de venta ocupado")

// Config política de ventas.
type Config struct {
	TaxRate      decimal.Decimal
	MaxRetries   int
	NumberPrefix string
	NumberWidth  int
}

// DefaultConfig IVA 10%, 3 reintentos, números SALE-000001.
func DefaultConfig() Config {
	return Config{
		TaxRate:      decimal.RequireFromString("0.10"),
		MaxRetries:   3,
		NumberPrefix: "SALE",
		NumberWidth:  6,
	}
}

// RecipeExpander expande un producto vendido en consumo de insumos.
type RecipeExpander interface {
	Expand(ctx context.Context, productID string, soldQty decimal.Decimal) ([]entity.StockDelta, error)
}

// LineInput línea solicitada por el llamador.
type LineInput struct {
	ProductID string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// CreateSaleCommand entrada de CreateSale.
type CreateSaleCommand struct {
	Lines         []LineInput
	PaymentMethod string
	Customer      *entity.CustomerInfo
	Discount      decimal.Decimal
	Notes         string
	ActorID       string
}

// SaleUseCase procesa la creación y anulación de ventas sobre el libro de stock.
type SaleUseCase struct {
	tx       ports.TxRunner
	stocks   repository.StockRepository
	sales    repository.SaleRepository
	resolver RecipeExpander
	events   ports.EventPublisher
	log      zerolog.Logger
	tracer   trace.Tracer
	cfg      Config
	now      func() time.Time
}

// NewSaleUseCase construye el caso de uso de ventas.
func NewSaleUseCase(
	tx ports.TxRunner,
	stocks repository.StockRepository,
	sales repository.SaleRepository,
	resolver RecipeExpander,
	events ports.EventPublisher,
	log zerolog.Logger,
	cfg Config,
) *SaleUseCase {
	def := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = def.NumberPrefix
	}
	if cfg.NumberWidth <= 0 {
		cfg.NumberWidth = def.NumberWidth
	}
	return &SaleUseCase{
		tx:       tx,
		stocks:   stocks,
		sales:    sales,
		resolver: resolver,
		events:   events,
		log:      log,
		tracer:   telemetry.Tracer(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale valida la orden, calcula totales, verifica contra una foto de todas las
// cantidades afectadas y, en una unidad de trabajo, persiste la venta como completed
// y descuenta el stock (con recetas expandidas) usando incrementos atómicos con guarda.
func (uc *SaleUseCase) CreateSale(ctx context.Context, cmd CreateSaleCommand) (sale *entity.Sale, err error) {
	ctx, span := uc.tracer.Start(ctx, "sales.CreateSale")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(attribute.Int("sale.lines", len(cmd.Lines)))

	// 1. Validación y totales (sin escrituras)
	sale, err = uc.buildSale(ctx, cmd)
	if err != nil {
		return nil, err
	}

	// 2. Expansión de recetas y agrupación por stock
	consumption, err := uc.expand(ctx, sale.Lines)
	if err != nil {
		return nil, err
	}
	sale.Consumption = consumption

	// 3. Pre-flight: todas las deducciones contra una foto previa a cualquier escritura
	if err := uc.preflight(ctx, consumption); err != nil {
		return nil, err
	}

	// 4. Persistencia con reintento ante número de venta repetido
	lastOrdinal := int64(0)
	for attempt := 1; attempt <= uc.cfg.MaxRetries; attempt++ {
		err = uc.tx.Run(ctx, func(ctx context.Context, repos ports.TxRepos) error {
			count, err := repos.Sales.Count(ctx)
			if err != nil {
				return fmt.Errorf("contar ventas: %w", err)
			}
			lastOrdinal = max(count+1, lastOrdinal+1)
			sale.ID = ""
			sale.SaleNumber = uc.formatNumber(lastOrdinal)
			if err := repos.Sales.Create(ctx, sale); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return errSaleNumberTaken
				}
				return fmt.Errorf("crear venta: %w", err)
			}
			return uc.applyDeltas(ctx, repos, sale.ID, ledger.Negate(consumption))
		})
		if err == nil {
			break
		}
		if !errors.Is(err, errSaleNumberTaken) {
			var re *domain.ReconciliationError
			if errors.As(err, &re) {
				return nil, uc.settlePartial(ctx, sale, re)
			}
			return nil, err
		}
		uc.log.Warn().
			Str("sale_number", sale.SaleNumber).
			Int("attempt", attempt).
			Msg("número de venta repetido, reintentando con conteo nuevo")
	}
	if err != nil {
		return nil, &domain.ConcurrencyError{Resource: "sale_number", ID: sale.SaleNumber, Attempts: uc.cfg.MaxRetries}
	}

	span.SetAttributes(
		attribute.String("sale.id", sale.ID),
		attribute.String("sale.number", sale.SaleNumber),
		attribute.String("sale.total", sale.Total.String()),
	)
	uc.log.Info().
		Str("sale_id", sale.ID).
		Str("sale_number", sale.SaleNumber).
		Str("total", sale.Total.String()).
		Int("stocks", len(consumption)).
		Str("actor_id", sale.ActorID).
		Msg("venta creada")
	uc.publish(ctx, ports.EventSaleCreated, sale)
	return sale, nil
}

func (uc *SaleUseCase) buildSale(ctx context.Context, cmd CreateSaleCommand) (*entity.Sale, error) {
	if len(cmd.Lines) == 0 {
		return nil, domain.NewValidationError("lines", "la venta necesita al menos una línea")
	}
	if strings.TrimSpace(cmd.ActorID) == "" {
		return nil, domain.NewValidationError("actor_id", "requerido")
	}
	if !entity.IsValidPaymentMethod(cmd.PaymentMethod) {
		return nil, domain.NewValidationError("payment_method", "debe ser cash, card o transfer")
	}

	lines := make([]entity.SaleLine, 0, len(cmd.Lines))
	totalsIn := make([]ledger.Line, 0, len(cmd.Lines))
	for i, in := range cmd.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if strings.TrimSpace(in.ProductID) == "" {
			return nil, domain.NewValidationError(field+".product_id", "requerido")
		}
		if !in.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field+".quantity", "debe ser mayor que cero")
		}
		subtotal, err := ledger.LineSubtotal(in.Quantity, in.UnitPrice, in.Discount)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				ve.Field = field + "." + ve.Field
			}
			return nil, err
		}
		product, err := uc.stocks.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("obtener producto: %w", err)
		}
		if product == nil {
			return nil, &domain.NotFoundError{Resource: "producto", ID: in.ProductID}
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = product.Name
		}
		lines = append(lines, entity.SaleLine{
			ProductID: in.ProductID,
			Name:      name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Discount:  in.Discount,
			Subtotal:  subtotal,
		})
		totalsIn = append(totalsIn, ledger.Line{Quantity: in.Quantity, UnitPrice: in.UnitPrice, Discount: in.Discount})
	}

	totals, err := ledger.SaleTotals(totalsIn, uc.cfg.TaxRate, cmd.Discount)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	return &entity.Sale{
		Customer:      cmd.Customer,
		PaymentMethod: cmd.PaymentMethod,
		Notes:         strings.TrimSpace(cmd.Notes),
		Lines:         lines,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Discount:      totals.Discount,
		Total:         totals.Total,
		Status:        entity.SaleStatusCompleted,
		ActorID:       cmd.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (uc *SaleUseCase) expand(ctx context.Context, lines []entity.SaleLine) ([]entity.StockDelta, error) {
	var all []entity.StockDelta
	for _, l := range lines {
		deltas, err := uc.resolver.Expand(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, err
		}
		all = append(all, deltas...)
	}
	return ledger.MergeDeltas(all), nil
}

func (uc *SaleUseCase) preflight(ctx context.Context, consumption []entity.StockDelta) error {
	for _, c := range consumption {
		available, _, err := uc.stocks.GetQuantity(ctx, c.StockID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.NotFoundError{Resource: "stock", ID: c.StockID}
			}
			return fmt.Errorf("pre-flight: %w", err)
		}
		if available.LessThan(c.Quantity) {
			return &domain.InsufficientStockError{StockID: c.StockID, Available: available, Requested: c.Quantity}
		}
	}
	return nil
}

// applyDeltas aplica cada delta firmado con incremento atómico: negativo al vender, positivo al anular.
// Con runner atómico un rechazo aborta toda la unidad de trabajo; sin él, lo ya aplicado
// no se puede deshacer y se reporta como ReconciliationError.
func (uc *SaleUseCase) applyDeltas(ctx context.Context, repos ports.TxRepos, saleID string, deltas []entity.StockDelta) error {
	applied := make([]string, 0, len(deltas))
	for i, c := range deltas {
		_, err := repos.Stock.IncrementAtomic(ctx, c.StockID, c.Quantity)
		if err == nil {
			applied = append(applied, c.StockID)
			continue
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			available, _, _ := repos.Stock.GetQuantity(ctx, c.StockID)
			err = &domain.InsufficientStockError{StockID: c.StockID, Available: available, Requested: c.Quantity.Abs()}
		} else if errors.Is(err, domain.ErrNotFound) {
			err = &domain.NotFoundError{Resource: "stock", ID: c.StockID}
		}
		if uc.tx.Atomic() {
			return err
		}
		failed := make([]string, 0, len(deltas)-i)
		for _, rest := range deltas[i:] {
			failed = append(failed, rest.StockID)
		}
		return &domain.ReconciliationError{SaleID: saleID, Applied: applied, Failed: failed, Cause: err}
	}
	return nil
}

// settlePartial deja la venta persistida de acuerdo con lo que realmente se descontó.
// Si no se aplicó nada la venta se elimina y se devuelve la causa; si se aplicó una parte
// el consumo registrado se reduce a esa parte, que es lo único que una anulación devuelve.
func (uc *SaleUseCase) settlePartial(ctx context.Context, sale *entity.Sale, re *domain.ReconciliationError) error {
	applied := appliedConsumption(sale.Consumption, re.Applied)
	if len(applied) == 0 && re.Cause != nil {
		if err := uc.sales.Delete(ctx, re.SaleID); err != nil {
			uc.log.Error().Err(err).Str("sale_id", re.SaleID).Msg("no se pudo eliminar la venta sin stock descontado")
			uc.logReconciliation(re, "venta creada sin stock descontado")
			return re
		}
		uc.log.Warn().Err(re.Cause).Str("sale_number", sale.SaleNumber).Msg("venta descartada: ningún stock descontado")
		return re.Cause
	}
	if err := uc.sales.SetConsumption(ctx, re.SaleID, applied, uc.now()); err != nil {
		uc.log.Error().Err(err).Str("sale_id", re.SaleID).Msg("no se pudo registrar el consumo parcial")
	}
	uc.logReconciliation(re, "venta creada con stock aplicado parcialmente")
	return re
}

// appliedConsumption filtra el consumo a los stocks efectivamente descontados.
// El consumo viene agrupado, así que cada stock aparece una sola vez.
func appliedConsumption(consumption []entity.StockDelta, applied []string) []entity.StockDelta {
	done := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		done[id] = struct{}{}
	}
	out := make([]entity.StockDelta, 0, len(applied))
	for _, c := range consumption {
		if _, ok := done[c.StockID]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (uc *SaleUseCase) formatNumber(ordinal int64) string {
	return fmt.Sprintf("%s-%0*d", uc.cfg.NumberPrefix, uc.cfg.NumberWidth, ordinal)
}

func (uc *SaleUseCase) logReconciliation(err error, msg string) {
	var re *domain.ReconciliationError
	if !errors.As(err, &re) {
		return
	}
	uc.log.Error().
		Err(re.Cause).
		Str("sale_id", re.SaleID).
		Strs("applied", re.Applied).
		Strs("failed", re.Failed).
		Msg(msg)
}

// publish emite el evento de la venta y stock.low para los insumos que quedaron bajo umbral.
func (uc *SaleUseCase) publish(ctx context.Context, eventType string, sale *entity.Sale) {
	at := uc.now()
	actor := sale.ActorID
	if eventType == ports.EventSaleCancelled {
		actor = sale.CancelledBy
	}
	events := []ports.LedgerEvent{{
		Type:        eventType,
		AggregateID: sale.ID,
		ActorID:     actor,
		Payload: map[string]any{
			"sale_number": sale.SaleNumber,
			"status":      sale.Status,
			"total":       sale.Total.String(),
		},
		OccurredAt: at,
	}}
	if eventType == ports.EventSaleCreated {
		for _, c := range sale.Consumption {
			s, err := uc.stocks.GetByID(ctx, c.StockID)
			if err != nil || s == nil || !s.BelowThreshold() {
				continue
			}
			events = append(events, ports.LedgerEvent{
				Type:        ports.EventStockLow,
				AggregateID: s.ID,
				ActorID:     sale.ActorID,
				Payload: map[string]any{
					"quantity":      s.Quantity.String(),
					"min_threshold": s.MinThreshold.String(),
				},
				OccurredAt: at,
			})
		}
	}
	if err := uc.events.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Str("sale_id", sale.ID).Msg("no se pudo publicar evento de venta")
	}
}
