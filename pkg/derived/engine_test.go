package derived

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func derivedField(id, label, parent string, calc model.Calculation, formula string) model.FormField {
	return model.FormField{
		ID:        id,
		Type:      model.FieldTypeNumber,
		Label:     label,
		IsDerived: true,
		DerivedConfig: &model.DerivedFieldConfig{
			ParentFieldID: parent,
			Calculation:   calc,
			Formula:       formula,
		},
	}
}

func quietEngine(opts ...Option) (*Engine, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{WithLogger(logger), WithTracer(noop.NewTracerProvider().Tracer("test"))}
	return New(append(base, opts...)...), buf
}

func TestCalculateAgeAroundBirthday(t *testing.T) {
	t.Parallel()

	dob := model.FormField{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth"}
	age := derivedField("age", "Age", "dob", model.CalculationAge, "")
	fields := []model.FormField{dob, age}
	values := map[string]any{"dob": "2000-06-15"}

	tests := []struct {
		today string
		want  int
	}{
		{"2024-06-14", 23},
		{"2024-06-15", 24},
		{"2024-06-16", 24},
		{"1999-01-01", 0},
	}
	for _, tt := range tests {
		engine, _ := quietEngine(WithClock(fixedClock(tt.today)))
		got := engine.Calculate(context.Background(), age, values, fields)
		if got != tt.want {
			t.Fatalf("age on %s = %v, want %d", tt.today, got, tt.want)
		}
	}
}

func TestCalculateAgeFallsBackOnBadDate(t *testing.T) {
	t.Parallel()

	engine, logs := quietEngine(WithClock(fixedClock("2024-01-01")))
	age := derivedField("age", "Age", "dob", model.CalculationAge, "")
	got := engine.Calculate(context.Background(), age, map[string]any{"dob": "not a date"}, nil)
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if !strings.Contains(logs.String(), "unparseable date") {
		t.Fatalf("expected fallback log, got %q", logs.String())
	}
}

func TestCalculateEmptyParentAndNonDerived(t *testing.T) {
	t.Parallel()

	engine, _ := quietEngine()
	age := derivedField("age", "Age", "dob", model.CalculationAge, "")

	for _, parent := range []any{nil, "", "  ", false, 0, []any{}} {
		got := engine.Calculate(context.Background(), age, map[string]any{"dob": parent}, nil)
		if got != "" {
			t.Fatalf("parent %#v: expected empty string, got %#v", parent, got)
		}
	}

	plain := model.FormField{ID: "name", Type: model.FieldTypeText, DefaultValue: "Ada"}
	if got := engine.Calculate(context.Background(), plain, nil, nil); got != "Ada" {
		t.Fatalf("expected default value, got %#v", got)
	}
	brokenDerived := model.FormField{ID: "x", IsDerived: true, DefaultValue: 3}
	if got := engine.Calculate(context.Background(), brokenDerived, nil, nil); got != 3 {
		t.Fatalf("derived without config should use default, got %#v", got)
	}
}

func TestCalculateSum(t *testing.T) {
	t.Parallel()

	engine, _ := quietEngine()
	fields := []model.FormField{
		{ID: "a", Type: model.FieldTypeNumber},
		{ID: "b", Type: model.FieldTypeNumber},
		{ID: "c", Type: model.FieldTypeNumber},
		{ID: "note", Type: model.FieldTypeText},
		derivedField("total", "Total", "a", model.CalculationSum, ""),
	}
	values := map[string]any{
		"a":     3,
		"b":     4.5,
		"c":     "x",
		"note":  7,
		"total": 1000.0,
	}
	got := engine.Calculate(context.Background(), fields[4], values, fields)
	if got != 7.5 {
		t.Fatalf("sum = %#v, want 7.5", got)
	}
}

func TestCalculateDifference(t *testing.T) {
	t.Parallel()

	diff := derivedField("days", "Days", "start", model.CalculationDifference, "")

	engine, _ := quietEngine(WithClock(fixedClock("2024-06-20")))
	if got := engine.Calculate(context.Background(), diff, map[string]any{"start": "2024-06-15"}, nil); got != 5 {
		t.Fatalf("past difference = %#v, want 5", got)
	}
	if got := engine.Calculate(context.Background(), diff, map[string]any{"start": "2024-06-25"}, nil); got != 5 {
		t.Fatalf("future difference = %#v, want 5", got)
	}

	noon := func() time.Time { return time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC) }
	engine, _ = quietEngine(WithClock(noon))
	if got := engine.Calculate(context.Background(), diff, map[string]any{"start": "2024-06-15"}, nil); got != 6 {
		t.Fatalf("partial day should round up, got %#v", got)
	}
	if got := engine.Calculate(context.Background(), diff, map[string]any{"start": "20240615"}, nil); got != 0 {
		t.Fatalf("value without '-' should yield 0, got %#v", got)
	}
	if got := engine.Calculate(context.Background(), diff, map[string]any{"start": 42}, nil); got != 0 {
		t.Fatalf("non-string parent should yield 0, got %#v", got)
	}
}

func TestCalculateCustom(t *testing.T) {
	t.Parallel()

	engine, logs := quietEngine()
	year := model.FormField{ID: "year", Type: model.FieldTypeNumber, Label: "Birth Year"}
	plus := derivedField("plus", "Plus", "year", model.CalculationCustom, "{Birth Year} + 10")
	fields := []model.FormField{year, plus}

	got := engine.Calculate(context.Background(), plus, map[string]any{"year": 1990}, fields)
	if got != float64(2000) {
		t.Fatalf("custom = %#v, want 2000", got)
	}

	for _, formula := range []string{"{Birth Year} +", "{Unknown} + 1", "{Birth Year} / 0", "alert(1)", ""} {
		broken := derivedField("plus", "Plus", "year", model.CalculationCustom, formula)
		if got := engine.Calculate(context.Background(), broken, map[string]any{"year": 1990}, fields); got != "" {
			t.Fatalf("formula %q: expected empty string, got %#v", formula, got)
		}
	}
	if !strings.Contains(logs.String(), "derived: calculation fell back") {
		t.Fatalf("expected fallback logs, got %q", logs.String())
	}
}

func chain() []model.FormField {
	return []model.FormField{
		{ID: "a", Type: model.FieldTypeNumber, Label: "A"},
		derivedField("b", "B", "a", model.CalculationCustom, "{A} * 2"),
		derivedField("c", "C", "b", model.CalculationCustom, "{B} + 1"),
	}
}

func TestUpdateSingleHop(t *testing.T) {
	t.Parallel()

	engine, _ := quietEngine()
	current := map[string]any{"a": 1, "b": 2.0, "c": 3.0}

	got := engine.Update(context.Background(), "a", 5, chain(), current)
	want := map[string]any{"a": 5, "b": 10.0, "c": 3.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if current["a"] != 1 {
		t.Fatalf("input map was modified: %#v", current)
	}
	if diff := cmp.Diff([]string{"b"}, engine.Affected("a", chain())); diff != "" {
		t.Fatalf("affected mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateTransitive(t *testing.T) {
	t.Parallel()

	engine, _ := quietEngine(WithPropagation(Transitive))
	got := engine.Update(context.Background(), "a", 5, chain(), map[string]any{})
	want := map[string]any{"a": 5, "b": 10.0, "c": 11.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, engine.Affected("a", chain())); diff != "" {
		t.Fatalf("affected mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	t.Parallel()

	engine, _ := quietEngine(WithClock(fixedClock("2024-06-15")))
	fields := []model.FormField{
		{ID: "dob", Type: model.FieldTypeDate, Label: "Date of Birth"},
		derivedField("age", "Age", "dob", model.CalculationAge, ""),
	}
	first := engine.Update(context.Background(), "dob", "2000-06-15", fields, nil)
	second := engine.Update(context.Background(), "dob", "2000-06-15", fields, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("updates differ (-first +second):\n%s", diff)
	}
	if first["age"] != 24 {
		t.Fatalf("age = %#v, want 24", first["age"])
	}
}

func TestParsePropagation(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Propagation{"": SingleHop, "single": SingleHop, "transitive": Transitive} {
		got, ok := ParsePropagation(name)
		if !ok || got != want {
			t.Fatalf("ParsePropagation(%q) = %v, %v", name, got, ok)
		}
		if name != "" && got.String() != name {
			t.Fatalf("String() = %q, want %q", got.String(), name)
		}
	}
	if _, ok := ParsePropagation("fanout"); ok {
		t.Fatalf("expected unknown mode to be rejected")
	}
}

func TestPackageLevelHelpers(t *testing.T) {
	t.Parallel()

	got := UpdateDerivedFields("a", 3, chain(), nil)
	if got["b"] != 6.0 {
		t.Fatalf("b = %#v, want 6", got["b"])
	}
	if _, ok := got["c"]; ok {
		t.Fatalf("single hop should not touch c: %#v", got)
	}
	if v := CalculateDerivedValue(chain()[2], map[string]any{"b": 6.0}, chain()); v != 7.0 {
		t.Fatalf("c = %#v, want 7", v)
	}
}
