package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errFormIDMissing   = errors.New("form id is required")
	errFormNameMissing = errors.New("form name is required")
)

// Problem is a single structural defect found in a form definition.
type Problem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// StructuralError aggregates the problems that make a form unusable. It is
// returned at ingestion boundaries before a form reaches the engines.
type StructuralError struct {
	Problems []Problem
}

func (e *StructuralError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "model: invalid form"
	}
	first := e.Problems[0]
	msg := first.Message
	if first.Field != "" {
		msg = fmt.Sprintf("field %s: %s", first.Field, first.Message)
	}
	if len(e.Problems) > 1 {
		return fmt.Sprintf("model: invalid form: %s (and %d more)", msg, len(e.Problems)-1)
	}
	return "model: invalid form: " + msg
}

// Check validates the shape of form: identity, unique field ids, enum members
// and derived-field references. It does not inspect values.
func Check(form Form) error {
	problems := checkForm(form)
	if len(problems) == 0 {
		return nil
	}
	return &StructuralError{Problems: problems}
}

// CheckStrict runs Check and additionally rejects cycles between derived
// fields, which would never settle under transitive propagation.
func CheckStrict(form Form) error {
	problems := checkForm(form)
	if len(problems) == 0 {
		if cycle := NewGraph(form.Fields).Cycle(); len(cycle) > 0 {
			problems = append(problems, Problem{
				Field:   cycle[0],
				Message: "derived fields form a cycle: " + strings.Join(cycle, " -> "),
			})
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &StructuralError{Problems: problems}
}

func checkForm(form Form) []Problem {
	var problems []Problem
	if strings.TrimSpace(form.ID) == "" {
		problems = append(problems, Problem{Message: errFormIDMissing.Error()})
	}
	if strings.TrimSpace(form.Name) == "" {
		problems = append(problems, Problem{Message: errFormNameMissing.Error()})
	}

	ids := make(map[string]struct{}, len(form.Fields))
	for i, field := range form.Fields {
		if strings.TrimSpace(field.ID) == "" {
			problems = append(problems, Problem{Message: fmt.Sprintf("field at position %d has no id", i)})
			continue
		}
		if _, dup := ids[field.ID]; dup {
			problems = append(problems, Problem{Field: field.ID, Message: "duplicate field id"})
		}
		ids[field.ID] = struct{}{}
	}

	for _, field := range form.Fields {
		problems = append(problems, checkField(field, ids)...)
	}
	return problems
}

func checkField(field FormField, ids map[string]struct{}) []Problem {
	var problems []Problem
	add := func(format string, args ...any) {
		problems = append(problems, Problem{Field: field.ID, Message: fmt.Sprintf(format, args...)})
	}

	if !field.Type.Valid() {
		add("unsupported field type %q", field.Type)
	}
	for _, rule := range field.ValidationRules {
		if !rule.Type.Valid() {
			add("unsupported validation rule %q", rule.Type)
		}
	}

	if !field.IsDerived {
		return problems
	}
	cfg := field.DerivedConfig
	if cfg == nil {
		add("derived field requires a derived config")
		return problems
	}
	if !cfg.Calculation.Valid() {
		add("unsupported calculation %q", cfg.Calculation)
	}
	parent := strings.TrimSpace(cfg.ParentFieldID)
	switch {
	case parent == "":
		add("derived field requires a parent field")
	case parent == field.ID:
		add("derived field cannot depend on itself")
	default:
		if _, ok := ids[parent]; !ok {
			add("parent field %q does not exist", parent)
		}
	}
	return problems
}
