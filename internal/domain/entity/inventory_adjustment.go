package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de ajuste: cómo se combina la cantidad solicitada con la anterior.
const (
	AdjustmentAdd    = "add"
	AdjustmentRemove = "remove"
	AdjustmentSet    = "set"
)

// Motivos de ajuste heredados del back office (categoría del registro, no afectan el cálculo).
const (
	ReasonWaste            = "waste"
	ReasonAdditionalUse    = "additional-use"
	ReasonManualCorrection = "manual-correction"
)

// InventoryAdjustment registro inmutable de un cambio manual de stock.
// ResultingQty = PreviousQty combinado con RequestedQty según Kind.
type InventoryAdjustment struct {
	ID             string
	StockID        string
	Kind           string
	RequestedQty   decimal.Decimal
	PreviousQty    decimal.Decimal
	ResultingQty   decimal.Decimal
	ReasonCategory string
	Reason         string
	ActorID        string
	CreatedAt      time.Time
}

// IsValidAdjustmentKind verifica el tipo de ajuste.
func IsValidAdjustmentKind(kind string) bool {
	switch kind {
	case AdjustmentAdd, AdjustmentRemove, AdjustmentSet:
		return true
	}
	return false
}

// IsValidReasonCategory verifica la categoría del motivo.
func IsValidReasonCategory(c string) bool {
	switch c {
	case ReasonWaste, ReasonAdditionalUse, ReasonManualCorrection:
		return true
	}
	return false
}
