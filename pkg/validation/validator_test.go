package validation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

func num(v float64) *float64 { return &v }

func field(label string, rules ...model.ValidationRule) model.FormField {
	return model.FormField{ID: "f", Type: model.FieldTypeText, Label: label, ValidationRules: rules}
}

func TestValidateDefaultMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rule  model.ValidationRule
		value any
		want  []string
	}{
		{"required nil", model.ValidationRule{Type: model.RuleRequired}, nil, []string{"Name is required"}},
		{"required blank", model.ValidationRule{Type: model.RuleRequired}, "   ", []string{"Name is required"}},
		{"required false", model.ValidationRule{Type: model.RuleRequired}, false, []string{"Name is required"}},
		{"required empty list", model.ValidationRule{Type: model.RuleRequired}, []string{}, []string{"Name is required"}},
		{"required zero int", model.ValidationRule{Type: model.RuleRequired}, 0, []string{"Name is required"}},
		{"required zero float", model.ValidationRule{Type: model.RuleRequired}, 0.0, []string{"Name is required"}},
		{"required zero json number", model.ValidationRule{Type: model.RuleRequired}, json.Number("0"), []string{"Name is required"}},
		{"required non-zero number", model.ValidationRule{Type: model.RuleRequired}, 3, nil},
		{"required ok", model.ValidationRule{Type: model.RuleRequired}, "Ada", nil},
		{"minLength", model.ValidationRule{Type: model.RuleMinLength, Value: num(3)}, "ab", []string{"Name must be at least 3 characters"}},
		{"minLength runes", model.ValidationRule{Type: model.RuleMinLength, Value: num(3)}, "éèê", nil},
		{"minLength empty skipped", model.ValidationRule{Type: model.RuleMinLength, Value: num(3)}, "", nil},
		{"minLength non-string skipped", model.ValidationRule{Type: model.RuleMinLength, Value: num(3)}, 12, nil},
		{"maxLength", model.ValidationRule{Type: model.RuleMaxLength, Value: num(2)}, "abc", []string{"Name must be no more than 2 characters"}},
		{"maxLength missing threshold", model.ValidationRule{Type: model.RuleMaxLength}, "a", []string{"Name must be no more than 0 characters"}},
		{"email bad", model.ValidationRule{Type: model.RuleEmail}, "ada@example", []string{"Name must be a valid email address"}},
		{"email ok", model.ValidationRule{Type: model.RuleEmail}, "ada@example.com", nil},
		{"email empty skipped", model.ValidationRule{Type: model.RuleEmail}, "", nil},
		{"password short", model.ValidationRule{Type: model.RulePassword}, "a1", []string{"Name must be at least 8 characters"}},
		{"password no digit", model.ValidationRule{Type: model.RulePassword}, "abcdefgh", []string{"Name must contain at least one number"}},
		{"password no letter", model.ValidationRule{Type: model.RulePassword}, "12345678", []string{"Name must contain at least one letter"}},
		{"password ok", model.ValidationRule{Type: model.RulePassword}, "abcd1234", nil},
		{"min", model.ValidationRule{Type: model.RuleMin, Value: num(18)}, 17, []string{"Name must be at least 18"}},
		{"min numeric string", model.ValidationRule{Type: model.RuleMin, Value: num(18)}, "17", []string{"Name must be at least 18"}},
		{"min blank string is zero", model.ValidationRule{Type: model.RuleMin, Value: num(1)}, "", []string{"Name must be at least 1"}},
		{"min non-numeric passes", model.ValidationRule{Type: model.RuleMin, Value: num(1)}, "abc", nil},
		{"min nil skipped", model.ValidationRule{Type: model.RuleMin, Value: num(1)}, nil, nil},
		{"max", model.ValidationRule{Type: model.RuleMax, Value: num(2.5)}, 3, []string{"Name must be no more than 2.5"}},
		{"max ok", model.ValidationRule{Type: model.RuleMax, Value: num(2.5)}, 2.5, nil},
		{"custom never fails", model.ValidationRule{Type: model.RuleCustom}, nil, nil},
		{"override message", model.ValidationRule{Type: model.RuleRequired, Message: "Tell us your name"}, "", []string{"Tell us your name"}},
	}

	for _, tt := range tests {
		got := Validate(field("Name", tt.rule), tt.value)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%s: messages mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestValidateKeepsRuleOrder(t *testing.T) {
	t.Parallel()

	f := field("Code",
		model.ValidationRule{Type: model.RuleMaxLength, Value: num(3)},
		model.ValidationRule{Type: model.RuleEmail},
		model.ValidationRule{Type: model.RulePassword, Message: "weak"},
	)
	want := []string{
		"Code must be no more than 3 characters",
		"Code must be a valid email address",
		"weak",
	}
	first := Validate(f, "abcdefghij")
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, Validate(f, "abcdefghij")); diff != "" {
		t.Fatalf("validation not idempotent (-first +second):\n%s", diff)
	}
}

func TestValidateForm(t *testing.T) {
	t.Parallel()

	fields := []model.FormField{
		{ID: "name", Label: "Name", ValidationRules: []model.ValidationRule{{Type: model.RuleRequired}}},
		{ID: "email", Label: "Email", ValidationRules: []model.ValidationRule{{Type: model.RuleRequired}, {Type: model.RuleEmail}}},
		{ID: "notes", Label: "Notes"},
	}
	got := ValidateForm(fields, map[string]any{"email": "nope"})
	want := map[string][]string{
		"name":  {"Name is required"},
		"email": {"Email must be a valid email address"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	got = ValidateForm(fields, map[string]any{"name": "Ada", "email": "ada@example.com"})
	if len(got) != 0 {
		t.Fatalf("expected no errors, got %v", got)
	}
}

func TestValidatorSpanish(t *testing.T) {
	t.Parallel()

	v, err := New(WithLocale("es"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if v.Locale() != "es" {
		t.Fatalf("locale = %q", v.Locale())
	}
	got := v.Validate(field("Nombre",
		model.ValidationRule{Type: model.RuleRequired},
		model.ValidationRule{Type: model.RuleMin, Value: num(3)},
	), "")
	want := []string{"Nombre es obligatorio", "Nombre debe ser al menos 3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatorRejectsUnknownLocale(t *testing.T) {
	t.Parallel()

	if _, err := New(WithLocale("xx-invalid-tag-!")); err == nil {
		t.Fatalf("expected invalid tag error")
	}
	if _, err := New(WithLocale("ja")); err == nil {
		t.Fatalf("expected unsupported locale error")
	}
	if diff := cmp.Diff([]string{"en", "es"}, Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
}
