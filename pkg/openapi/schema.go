package openapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

const passwordMinLength = 8

// Schema builds the object schema for form's submission payload. Properties
// are keyed by field id and titled by label.
func Schema(form model.Form) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Title = form.Name
	schema.Description = form.Description

	for _, field := range model.Normalize(form).Fields {
		schema.Properties[field.ID] = openapi3.NewSchemaRef("", fieldSchema(field))
		if isRequired(field) {
			schema.Required = append(schema.Required, field.ID)
		}
	}
	return schema
}

// ComponentName derives a schema component name from the form name, for
// example "Contact Form" becomes "ContactFormSubmission".
func ComponentName(form model.Form) string {
	var b strings.Builder
	upper := true
	for _, r := range form.Name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		b.WriteString("Form")
	}
	b.WriteString("Submission")
	return b.String()
}

func isRequired(field model.FormField) bool {
	if field.IsDerived {
		return false
	}
	return field.Required || field.HasRule(model.RuleRequired)
}

func fieldSchema(field model.FormField) *openapi3.Schema {
	if field.IsDerived {
		// Derived values are numbers once computed and "" while the parent is
		// blank, so no type is enforced.
		s := openapi3.NewSchema()
		s.Title = field.Label
		s.ReadOnly = true
		if field.DerivedConfig != nil {
			s.Description = fmt.Sprintf("Derived (%s) from field %s", field.DerivedConfig.Calculation, field.DerivedConfig.ParentFieldID)
		}
		return s
	}

	var s *openapi3.Schema
	switch field.Type {
	case model.FieldTypeNumber:
		s = openapi3.NewFloat64Schema()
		for _, rule := range field.ValidationRules {
			switch rule.Type {
			case model.RuleMin:
				s = s.WithMin(rule.Threshold())
			case model.RuleMax:
				s = s.WithMax(rule.Threshold())
			}
		}
	case model.FieldTypeDate:
		s = openapi3.NewStringSchema().WithFormat("date")
	case model.FieldTypeSelect, model.FieldTypeRadio:
		s = openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			s = s.WithEnum(enumValues(field.Options)...)
		}
	case model.FieldTypeCheckbox:
		if len(field.Options) == 0 {
			s = openapi3.NewBoolSchema()
			break
		}
		s = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema().WithEnum(enumValues(field.Options)...))
		s.UniqueItems = true
	default:
		s = stringSchema(field)
	}

	s.Title = field.Label
	if field.Placeholder != "" {
		s.Description = field.Placeholder
	}
	return s
}

func stringSchema(field model.FormField) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	var minLength, maxLength int64 = -1, -1
	for _, rule := range field.ValidationRules {
		switch rule.Type {
		case model.RuleMinLength:
			minLength = max(minLength, int64(rule.Threshold()))
		case model.RuleMaxLength:
			if n := int64(rule.Threshold()); maxLength < 0 || n < maxLength {
				maxLength = n
			}
		case model.RulePassword:
			minLength = max(minLength, passwordMinLength)
			s.Format = "password"
		case model.RuleEmail:
			s.Format = "email"
		}
	}
	if minLength > 0 {
		s = s.WithMinLength(minLength)
	}
	if maxLength >= 0 {
		s = s.WithMaxLength(maxLength)
	}
	return s
}

func enumValues(options []string) []any {
	out := make([]any, len(options))
	for i, option := range options {
		out[i] = option
	}
	return out
}

// CheckPayload validates values against the form's schema. Blank answers
// (nil, "", empty lists) count as absent, so an empty optional field passes
// and an empty required field is reported as missing. Keys that are not
// fields of the form are ignored.
func CheckPayload(form model.Form, values map[string]any) error {
	payload := make(map[string]any, len(values))
	for _, field := range form.Fields {
		value, ok := values[field.ID]
		if !ok || blank(value) {
			continue
		}
		payload[field.ID] = value
	}

	normalized, err := jsonRoundTrip(payload)
	if err != nil {
		return fmt.Errorf("openapi: normalize payload: %w", err)
	}
	if err := Schema(form).VisitJSON(normalized, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("openapi: payload does not match %s: %w", ComponentName(form), err)
	}
	return nil
}

// Issues flattens a CheckPayload error into one message per violation.
func Issues(err error) []string {
	if err == nil {
		return nil
	}
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := make([]string, 0, len(multi))
		for _, item := range multi {
			out = append(out, item.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func blank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}

// jsonRoundTrip converts Go values (ints, typed slices) into the generic JSON
// shapes the schema visitor expects.
func jsonRoundTrip(payload map[string]any) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
