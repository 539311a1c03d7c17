// internal/circulation/telemetry.go
package circulation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "libralend/circulation"

type instruments struct {
	checkouts     metric.Int64Counter
	returns       metric.Int64Counter
	renewals      metric.Int64Counter
	reservations  metric.Int64Counter
	finesAssessed metric.Int64Counter
	fineAmount    metric.Int64Counter
	compensations metric.Int64Counter
}

func newInstruments(meter metric.Meter, logger *slog.Logger) *instruments {
	counter := func(name, description, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err != nil {
			logger.Warn("failed to create counter, recording disabled", "counter", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &instruments{
		checkouts:     counter("circulation.checkouts", "Loans opened", "{loan}"),
		returns:       counter("circulation.returns", "Loans closed", "{loan}"),
		renewals:      counter("circulation.renewals", "Loans renewed", "{loan}"),
		reservations:  counter("circulation.reservations", "Reservation transitions", "{reservation}"),
		finesAssessed: counter("circulation.fines.assessed", "Fines created on overdue returns", "{fine}"),
		fineAmount:    counter("circulation.fines.amount", "Total fine amount assessed in minor units", "{cent}"),
		compensations: counter("circulation.compensations", "Multi-step operations rolled back", "{operation}"),
	}
}

func (e *engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
