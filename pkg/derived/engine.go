package derived

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

const instrumentationName = "github.com/goliatone/go-formbuilder/pkg/derived"

// Propagation controls how far a single change travels through derived
// fields.
type Propagation int

const (
	// SingleHop recomputes only the fields whose parent is the changed field.
	// Fields derived from those are left untouched until their own parent
	// changes.
	SingleHop Propagation = iota
	// Transitive recomputes every downstream field in dependency order. Forms
	// should pass model.CheckStrict before using it.
	Transitive
)

// String returns the configuration name of p.
func (p Propagation) String() string {
	if p == Transitive {
		return "transitive"
	}
	return "single"
}

// ParsePropagation maps a configuration name to a Propagation.
func ParsePropagation(name string) (Propagation, bool) {
	switch name {
	case "", "single":
		return SingleHop, true
	case "transitive":
		return Transitive, true
	default:
		return SingleHop, false
	}
}

// Engine computes derived field values. It holds no session state; every call
// works only on its arguments, so one Engine can serve many sessions.
type Engine struct {
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
	propagation Propagation
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by age and difference.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger routes fallback diagnostics to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer overrides the tracer used for update spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithPropagation selects single-hop (default) or transitive propagation.
func WithPropagation(p Propagation) Option {
	return func(e *Engine) {
		e.propagation = p
	}
}

// New constructs an Engine with the supplied options.
func New(options ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Propagation reports the engine's propagation mode.
func (e *Engine) Propagation() Propagation {
	return e.propagation
}

// Update applies newValue to changedID and recomputes the derived fields that
// depend on it. The returned map is a fresh copy of current with every touched
// entry overwritten; current is never modified.
func (e *Engine) Update(ctx context.Context, changedID string, newValue any, fields []model.FormField, current map[string]any) map[string]any {
	ctx, span := e.tracer.Start(ctx, "derived.Update", trace.WithAttributes(
		attribute.String("field.id", changedID),
		attribute.String("derived.propagation", e.propagation.String()),
	))
	defer span.End()

	out := make(map[string]any, len(current)+1)
	maps.Copy(out, current)
	out[changedID] = newValue

	targets := e.dependents(changedID, fields)
	for _, field := range targets {
		out[field.ID] = e.Calculate(ctx, field, out, fields)
	}
	span.SetAttributes(attribute.Int("derived.recomputed", len(targets)))
	return out
}

// Affected lists the fields Update would recompute for a change to id.
func (e *Engine) Affected(id string, fields []model.FormField) []string {
	targets := e.dependents(id, fields)
	out := make([]string, 0, len(targets))
	for _, field := range targets {
		out = append(out, field.ID)
	}
	return out
}

func (e *Engine) dependents(changedID string, fields []model.FormField) []model.FormField {
	if e.propagation == Transitive {
		byID := make(map[string]model.FormField, len(fields))
		for _, field := range fields {
			byID[field.ID] = field
		}
		var out []model.FormField
		for _, id := range model.NewGraph(fields).Downstream(changedID) {
			out = append(out, byID[id])
		}
		return out
	}

	var out []model.FormField
	for _, field := range fields {
		if field.IsDerived && field.DerivedConfig != nil && field.DerivedConfig.ParentFieldID == changedID {
			out = append(out, field)
		}
	}
	return out
}

// fallback records a calculation that degraded to an empty or zero value.
// The caller still gets the degraded value; this only makes it discoverable.
func (e *Engine) fallback(ctx context.Context, field model.FormField, reason string, err error) {
	calc := ""
	if field.DerivedConfig != nil {
		calc = string(field.DerivedConfig.Calculation)
	}
	attrs := []attribute.KeyValue{
		attribute.String("field.id", field.ID),
		attribute.String("derived.calculation", calc),
		attribute.String("derived.reason", reason),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("derived.fallback", trace.WithAttributes(attrs...))

	args := []any{"field", field.ID, "calculation", calc, "reason", reason}
	if err != nil {
		args = append(args, "error", err)
	}
	e.log().WarnContext(ctx, "derived: calculation fell back", args...)
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

var defaultEngine = New()

// UpdateDerivedFields runs a single-hop update with the default engine.
func UpdateDerivedFields(changedID string, newValue any, fields []model.FormField, current map[string]any) map[string]any {
	return defaultEngine.Update(context.Background(), changedID, newValue, fields, current)
}

// CalculateDerivedValue computes field's value with the default engine.
func CalculateDerivedValue(field model.FormField, values map[string]any, fields []model.FormField) any {
	return defaultEngine.Calculate(context.Background(), field, values, fields)
}
