// Package telemetry expone utilidades de trazas OpenTelemetry para los servicios del ledger.
// Sin un TracerProvider configurado las trazas son no-op.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName nombre del tracer de negocio.
const TracerName = "stockledger"

// StartServiceSpan inicia un span {service}.{method} con los atributos dados.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "consume", attribute.String("product_id", id))
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("%s.%s", service, method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End marca el span con el error (si lo hay) y lo cierra. Pensado para usarse con defer
// sobre un error de retorno con nombre.
func End(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
