package store

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename returns the download name for a form:
// whitespace runs become "_", the result is lowercased and suffixed with
// "_form.json".
func ExportFilename(name string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(name, "_")) + "_form.json"
}

// Export serializes form as indented JSON and names the file.
func Export(form model.Form) (string, []byte, error) {
	data, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("store: export %q: %w", form.ID, err)
	}
	return ExportFilename(form.Name), data, nil
}

// Import reads a form definition in JSON or YAML. Documents missing id or name,
// or whose fields are not a list, are rejected with ErrInvalidForm before any
// decoding into the model. Free text is stripped of markup.
func Import(r io.Reader) (model.Form, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Form{}, fmt.Errorf("store: read import: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Form{}, fmt.Errorf("%w: empty document", ErrInvalidForm)
	}

	decode, raw, err := parseDocument(data)
	if err != nil {
		return model.Form{}, err
	}
	if err := checkShape(raw); err != nil {
		return model.Form{}, err
	}

	var form model.Form
	if err := decode(&form); err != nil {
		return model.Form{}, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	form = sanitizeForm(form)
	if form.Fields == nil {
		form.Fields = []model.FormField{}
	}
	if err := model.Check(form); err != nil {
		return model.Form{}, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	return model.Normalize(form), nil
}

// parseDocument tries JSON first, then YAML, and returns the generic document
// plus a decoder for the typed form.
func parseDocument(data []byte) (func(any) error, map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		return func(v any) error { return json.Unmarshal(data, v) }, raw, nil
	}
	raw = nil
	if err := yaml.Unmarshal(data, &raw); err == nil && raw != nil {
		return func(v any) error { return yaml.Unmarshal(data, v) }, raw, nil
	}
	return nil, nil, fmt.Errorf("%w: invalid JSON or YAML", ErrInvalidForm)
}

func checkShape(raw map[string]any) error {
	for _, key := range []string{"id", "name"} {
		value, ok := raw[key].(string)
		if !ok || strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidForm, key)
		}
	}
	fields, present := raw["fields"]
	if !present {
		return fmt.Errorf("%w: missing fields", ErrInvalidForm)
	}
	if _, ok := fields.([]any); !ok {
		return fmt.Errorf("%w: fields must be a list", ErrInvalidForm)
	}
	return nil
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// sanitizeText removes all markup. bluemonday escapes entities in its output;
// they are decoded again so plain text such as "R&D" survives.
func sanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := textSanitizer().Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func sanitizeForm(form model.Form) model.Form {
	out := form.Clone()
	out.Name = sanitizeText(out.Name)
	out.Description = sanitizeText(out.Description)
	for i := range out.Fields {
		field := &out.Fields[i]
		field.Label = sanitizeText(field.Label)
		field.Placeholder = sanitizeText(field.Placeholder)
		for j, option := range field.Options {
			field.Options[j] = sanitizeText(option)
		}
		for j := range field.ValidationRules {
			field.ValidationRules[j].Message = sanitizeText(field.ValidationRules[j].Message)
		}
	}
	return out
}
