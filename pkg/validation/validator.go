package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

const passwordMinLength = 8

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
)

// Validator checks field values against their validation rules. A Validator
// is immutable and safe for concurrent use.
type Validator struct {
	locale string
	msgs   messages
}

// Option configures a Validator.
type Option func(*Validator)

// WithLocale selects the language of default messages. Custom rule messages
// are returned as written.
func WithLocale(locale string) Option {
	return func(v *Validator) {
		v.locale = strings.TrimSpace(locale)
	}
}

// New builds a Validator. It fails when the requested locale has no message
// catalog.
func New(options ...Option) (*Validator, error) {
	v := &Validator{locale: language.English.String()}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	if v.locale == "" {
		v.locale = language.English.String()
	}

	bundle, err := loadBundle()
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(v.locale)
	if err != nil {
		return nil, fmt.Errorf("validation: invalid locale %q: %w", v.locale, err)
	}
	if !supported(bundle.LanguageTags(), tag) {
		return nil, fmt.Errorf("validation: locale %q not supported", v.locale)
	}
	v.msgs = newMessages(bundle, v.locale)
	return v, nil
}

func supported(tags []language.Tag, want language.Tag) bool {
	wantBase, _ := want.Base()
	for _, tag := range tags {
		base, _ := tag.Base()
		if base == wantBase {
			return true
		}
	}
	return false
}

// Locale reports the validator's message language.
func (v *Validator) Locale() string {
	return v.locale
}

// Validate returns one message per failing rule, in rule order. An empty
// result means the value is valid.
func (v *Validator) Validate(field model.FormField, value any) []string {
	var out []string
	for _, rule := range field.ValidationRules {
		if msg, failed := v.check(field, rule, value); failed {
			out = append(out, msg)
		}
	}
	return out
}

// ValidateForm validates every field against values[field.ID]. Fields without
// errors are omitted from the result.
func (v *Validator) ValidateForm(fields []model.FormField, values map[string]any) map[string][]string {
	out := make(map[string][]string)
	for _, field := range fields {
		if errs := v.Validate(field, values[field.ID]); len(errs) > 0 {
			out[field.ID] = errs
		}
	}
	return out
}

func (v *Validator) check(field model.FormField, rule model.ValidationRule, value any) (string, bool) {
	threshold := rule.Threshold()
	fail := func(id string, n *float64) (string, bool) {
		if rule.Message != "" {
			return rule.Message, true
		}
		return v.msgs.render(id, field.Label, n), true
	}

	switch rule.Type {
	case model.RuleRequired:
		if isEmpty(value) {
			return fail(msgRequired, nil)
		}

	case model.RuleMinLength:
		if s, ok := nonEmptyString(value); ok && float64(utf8.RuneCountInString(s)) < threshold {
			return fail(msgMinLength, &threshold)
		}

	case model.RuleMaxLength:
		if s, ok := nonEmptyString(value); ok && float64(utf8.RuneCountInString(s)) > threshold {
			return fail(msgMaxLength, &threshold)
		}

	case model.RuleEmail:
		if s, ok := nonEmptyString(value); ok && !emailPattern.MatchString(s) {
			return fail(msgEmail, nil)
		}

	case model.RulePassword:
		s, ok := nonEmptyString(value)
		if !ok {
			break
		}
		switch {
		case utf8.RuneCountInString(s) < passwordMinLength:
			n := float64(passwordMinLength)
			return fail(msgMinLength, &n)
		case !digitPattern.MatchString(s):
			return fail(msgPasswordNumber, nil)
		case !letterPattern.MatchString(s):
			return fail(msgPasswordLetter, nil)
		}

	case model.RuleMin:
		if value != nil && toNumber(value) < threshold {
			return fail(msgMin, &threshold)
		}

	case model.RuleMax:
		if value != nil && toNumber(value) > threshold {
			return fail(msgMax, &threshold)
		}

	case model.RuleCustom:
		// Reserved. Never fails.
	}
	return "", false
}

func nonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// isEmpty reports whether a value fails "required": nil, false, blank strings,
// numeric zero (or NaN) and empty collections.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return strings.TrimSpace(v) == ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
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

// toNumber coerces a value the way min/max compare it. Blank strings are 0;
// values that cannot be read as numbers become NaN and never fail a bound.
func toNumber(value any) float64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return math.NaN()
	}
}

var defaultValidator = sync.OnceValue(func() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
})

// Validate checks value against field's rules with English default messages.
func Validate(field model.FormField, value any) []string {
	return defaultValidator().Validate(field, value)
}

// ValidateForm validates all fields with English default messages.
func ValidateForm(fields []model.FormField, values map[string]any) map[string][]string {
	return defaultValidator().ValidateForm(fields, values)
}

// Default returns the shared English validator used by the package-level
// functions.
func Default() *Validator {
	return defaultValidator()
}
