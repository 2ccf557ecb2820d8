package derived

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/derived/formula"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Calculate computes the value of field from values. Non-derived fields yield
// their DefaultValue. A derived field whose parent is empty yields "".
//
// Results by calculation:
//   - age: int whole years, never negative
//   - sum: float64 total of the form's numeric number fields
//   - difference: int whole days between the parent date and now, rounded up
//   - custom: float64 formula result, or "" when evaluation fails
func (e *Engine) Calculate(ctx context.Context, field model.FormField, values map[string]any, fields []model.FormField) any {
	if !field.IsDerived || field.DerivedConfig == nil {
		return field.DefaultValue
	}
	cfg := field.DerivedConfig
	parent := values[cfg.ParentFieldID]
	if isFalsy(parent) {
		return ""
	}

	switch cfg.Calculation {
	case model.CalculationAge:
		birth, err := parseDate(parent)
		if err != nil {
			e.fallback(ctx, field, "unparseable date", err)
			return 0
		}
		return ageAt(birth, e.now())

	case model.CalculationSum:
		return sumNumbers(field.ID, values, fields)

	case model.CalculationDifference:
		text, ok := parent.(string)
		if !ok || !strings.Contains(text, "-") {
			e.fallback(ctx, field, "parent is not a date", nil)
			return 0
		}
		date, err := parseDate(text)
		if err != nil {
			e.fallback(ctx, field, "unparseable date", err)
			return 0
		}
		return daysBetween(date, e.now())

	case model.CalculationCustom:
		if strings.TrimSpace(cfg.Formula) == "" {
			e.fallback(ctx, field, "missing formula", formula.ErrEmpty)
			return ""
		}
		out, err := formula.Eval(cfg.Formula, labelResolver(values, fields))
		if err != nil {
			e.fallback(ctx, field, "formula failed", err)
			return ""
		}
		return out

	default:
		e.fallback(ctx, field, "unknown calculation", fmt.Errorf("calculation %q", cfg.Calculation))
		return field.DefaultValue
	}
}

// labelResolver resolves `{Label}` by field label and bare identifiers by
// field id. A known field without a value reads as nil, which the formula
// package treats as zero.
func labelResolver(values map[string]any, fields []model.FormField) formula.Resolver {
	return func(name string) (any, bool) {
		for _, field := range fields {
			if field.Label == name {
				return values[field.ID], true
			}
		}
		for _, field := range fields {
			if field.ID == name {
				return values[field.ID], true
			}
		}
		return nil, false
	}
}

func ageAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func daysBetween(date, now time.Time) int {
	diff := now.Sub(date)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func sumNumbers(selfID string, values map[string]any, fields []model.FormField) float64 {
	total := 0.0
	for _, field := range fields {
		if field.ID == selfID || field.Type != model.FieldTypeNumber {
			continue
		}
		if n, ok := numeric(values[field.ID]); ok {
			total += n
		}
	}
	return total
}

// numeric accepts Go numbers and json.Number. Numeric-looking strings do not
// count.
func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case nil, string, bool:
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var errNotDate = errors.New("derived: value is not a date")

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		ts, ok := model.ParseTimestamp(strings.TrimSpace(v))
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %q", errNotDate, v)
		}
		return ts, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %T", errNotDate, value)
	}
}

// isFalsy mirrors the emptiness rules used for parents: nil, false, zero
// numbers, blank strings and empty collections.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return strings.TrimSpace(v) == ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	default:
		return false
	}
}
