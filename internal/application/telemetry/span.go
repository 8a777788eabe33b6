// Package telemetry agrupa los helpers de trazas usados por los casos de uso.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain"
)

// TracerName nombre de instrumentación del motor de stock.
const TracerName = "macanudo-backend/ledger"

// Tracer devuelve el tracer del proveedor global (no-op si no se configuró OTel).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// End marca el estado del span según err y lo cierra.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("ledger.error_kind", domain.KindOf(err)))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
