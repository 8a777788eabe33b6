package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
)

// idealFactor stock ideal = umbral mínimo × 1.5.
var idealFactor = decimal.RequireFromString("1.5")

// LowStockUseCase genera la lista de reposición de registros bajo su umbral mínimo.
type LowStockUseCase struct {
	stocks repository.StockRepository
}

// NewLowStockUseCase construye el caso de uso de reposición.
func NewLowStockUseCase(stocks repository.StockRepository) *LowStockUseCase {
	return &LowStockUseCase{stocks: stocks}
}

// GenerateLowStockList devuelve los registros bajo umbral con la cantidad sugerida,
// ordenados por déficit relativo (el más vacío primero) y numerados por prioridad.
func (uc *LowStockUseCase) GenerateLowStockList(ctx context.Context) ([]dto.LowStockSuggestionDTO, error) {
	records, err := uc.stocks.ListBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []dto.LowStockSuggestionDTO{}, nil
	}

	suggestions := make([]dto.LowStockSuggestionDTO, 0, len(records))
	for _, r := range records {
		if r.MinThreshold == nil {
			continue
		}
		threshold := *r.MinThreshold
		ideal := threshold.Mul(idealFactor)
		suggested := ideal.Sub(r.Quantity)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		suggestions = append(suggestions, dto.LowStockSuggestionDTO{
			StockID:       r.ID,
			Name:          r.Name,
			Unit:          r.Unit,
			CurrentStock:  r.Quantity,
			MinThreshold:  threshold,
			IdealStock:    ideal,
			SuggestedQty:  suggested,
			EstimatedCost: suggested.Mul(r.Cost),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		ra, rb := fillRatio(a), fillRatio(b)
		if !ra.Equal(rb) {
			return ra.LessThan(rb)
		}
		// desempate: mayor déficit absoluto
		return a.MinThreshold.Sub(a.CurrentStock).GreaterThan(b.MinThreshold.Sub(b.CurrentStock))
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// fillRatio cantidad actual / umbral (0 = vacío).
func fillRatio(s dto.LowStockSuggestionDTO) decimal.Decimal {
	if s.MinThreshold.IsZero() {
		return decimal.Zero
	}
	return s.CurrentStock.Div(s.MinThreshold)
}
