package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los errores estructurados de abajo envuelven estos
// sentinelas para que los llamadores usen errors.Is.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("transición de estado inválida")
	ErrConcurrency       = errors.New("conflicto de concurrencia")
	ErrReconciliation    = errors.New("aplicación parcial de stock")
)

// Códigos estables de error expuestos a la API y usados por los tests.
const (
	KindValidation        = "VALIDATION"
	KindNotFound          = "NOT_FOUND"
	KindInsufficientStock = "INSUFFICIENT_STOCK"
	KindInvalidState      = "INVALID_STATE"
	KindConcurrency       = "CONCURRENCY"
	KindReconciliation    = "RECONCILIATION"
	KindDuplicate         = "DUPLICATE"
	KindForbidden         = "FORBIDDEN"
	KindUnauthorized      = "UNAUTHORIZED"
	KindInternal          = "INTERNAL"
)

// ValidationError entrada mal formada o fuera de rango.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Message
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para construir un ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError recurso referenciado ausente (stock, producto, ingrediente, venta).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError una salida dejaría la cantidad en negativo.
type InsufficientStockError struct {
	StockID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	if e.StockID == "" {
		return fmt.Sprintf("stock insuficiente: disponible %s, solicitado %s", e.Available, e.Requested)
	}
	return fmt.Sprintf("stock insuficiente para %s: disponible %s, solicitado %s",
		e.StockID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidStateError transición de estado no permitida (ej. anular dos veces).
type InvalidStateError struct {
	Resource string
	ID       string
	Status   string
	Message  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s en estado %s: %s", e.Resource, e.ID, e.Status, e.Message)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ConcurrencyError se agotaron los reintentos optimistas.
type ConcurrencyError struct {
	Resource string
	ID       string
	Attempts int
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s %s: conflicto de concurrencia tras %d intentos", e.Resource, e.ID, e.Attempts)
}

func (e *ConcurrencyError) Unwrap() error { return ErrConcurrency }

// ReconciliationError una venta quedó aplicada a medias. Applied lista los stocks
// ya descontados y Failed los que no se pudieron descontar; nunca se reintenta.
type ReconciliationError struct {
	SaleID  string
	Applied []string
	Failed  []string
	Cause   error
}

func (e *ReconciliationError) Error() string {
	msg := fmt.Sprintf("venta %s aplicada parcialmente: aplicados [%s], fallidos [%s]",
		e.SaleID, strings.Join(e.Applied, ", "), strings.Join(e.Failed, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap expone tanto el sentinela como la causa original.
func (e *ReconciliationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrReconciliation}
	}
	return []error{ErrReconciliation, e.Cause}
}

// KindOf devuelve el código estable del error. La reconciliación se evalúa
// primero porque también envuelve la causa que la provocó.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReconciliation):
		return KindReconciliation
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrConcurrency):
		return KindConcurrency
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// IsRetryable indica si el llamador puede reintentar la operación completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency) && !errors.Is(err, ErrReconciliation)
}
