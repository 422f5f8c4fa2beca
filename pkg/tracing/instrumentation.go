package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Database span attributes
const (
	DBSystemKey    = attribute.Key("db.system")
	DBStatementKey = attribute.Key("db.statement")
	DBOperationKey = attribute.Key("db.operation")
)

// Business logic span attributes
const (
	MatchTierKey         = attribute.Key("estimate.tier")
	PriceBandKey         = attribute.Key("estimate.price_band")
	CandidateCountKey    = attribute.Key("estimate.candidates")
	RouteDistanceKey     = attribute.Key("route.distance_meters")
	RouteDurationKey     = attribute.Key("route.duration_seconds")
	LocationLatitudeKey  = attribute.Key("location.latitude")
	LocationLongitudeKey = attribute.Key("location.longitude")
)

// TraceDBQuery wraps a database query with tracing
func TraceDBQuery(ctx context.Context, tracerName, operation, query string, fn func() error) error {
	_, span := StartSpan(ctx, tracerName, fmt.Sprintf("db.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		DBSystemKey.String("postgresql"),
		DBOperationKey.String(operation),
		DBStatementKey.String(query),
	)

	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// TraceExternalAPI wraps external API calls with tracing
func TraceExternalAPI(ctx context.Context, tracerName, serviceName, operation string, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, fmt.Sprintf("%s.%s", serviceName, operation),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("external.service", serviceName),
		attribute.String("external.operation", operation),
	)

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// EstimateAttributes builds attributes describing an estimation outcome
func EstimateAttributes(tier string, band int, candidates int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if tier != "" {
		attrs = append(attrs, MatchTierKey.String(tier))
	}
	if band > 0 {
		attrs = append(attrs, PriceBandKey.Int(band))
	}
	if candidates >= 0 {
		attrs = append(attrs, CandidateCountKey.Int(candidates))
	}
	return attrs
}

// RouteAttributes builds attributes describing a resolved route
func RouteAttributes(distanceM, durationS float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		RouteDistanceKey.Float64(distanceM),
		RouteDurationKey.Float64(durationS),
	}
}

// LocationAttributes builds attributes for a coordinate pair
func LocationAttributes(latitude, longitude float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		LocationLatitudeKey.Float64(latitude),
		LocationLongitudeKey.Float64(longitude),
	}
}
