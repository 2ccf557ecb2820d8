package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh identifier for forms and fields.
func NewID() string {
	return uuid.NewString()
}

// Timestamp formats t as the ISO-8601 string stored on forms (UTC, millisecond
// precision).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimestamp parses a stored timestamp. Both the millisecond layout written
// by Timestamp and plain RFC 3339 are accepted.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NewForm returns an empty form stamped with now.
func NewForm(name, description string, now time.Time) Form {
	ts := Timestamp(now)
	return Form{
		ID:          NewID(),
		Name:        name,
		Description: description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
		Fields:      []FormField{},
	}
}

// Clone deep-copies the form so callers can edit the result freely.
func (f Form) Clone() Form {
	out := f
	if f.Fields != nil {
		out.Fields = make([]FormField, len(f.Fields))
		for i, field := range f.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// Clone deep-copies the field, including rules, options and derived config.
func (f FormField) Clone() FormField {
	out := f
	if f.ValidationRules != nil {
		out.ValidationRules = make([]ValidationRule, len(f.ValidationRules))
		for i, rule := range f.ValidationRules {
			if rule.Value != nil {
				v := *rule.Value
				rule.Value = &v
			}
			out.ValidationRules[i] = rule
		}
	}
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.DerivedConfig != nil {
		cfg := *f.DerivedConfig
		out.DerivedConfig = &cfg
	}
	if list, ok := f.DefaultValue.([]any); ok {
		out.DefaultValue = append([]any(nil), list...)
	}
	return out
}

// SetName returns a copy of form with the supplied name.
func SetName(form Form, name string) Form {
	out := form.Clone()
	out.Name = name
	return out
}

// SetDescription returns a copy of form with the supplied description.
func SetDescription(form Form, description string) Form {
	out := form.Clone()
	out.Description = description
	return out
}

// Touch returns a copy of form with UpdatedAt set to now. CreatedAt is filled
// when it was never set.
func Touch(form Form, now time.Time) Form {
	out := form.Clone()
	ts := Timestamp(now)
	if out.CreatedAt == "" {
		out.CreatedAt = ts
	}
	out.UpdatedAt = ts
	return out
}

// AddField appends field to the form. A missing id is generated and Order is
// set to the new field's rank.
func AddField(form Form, field FormField) Form {
	out := form.Clone()
	next := field.Clone()
	if strings.TrimSpace(next.ID) == "" {
		next.ID = NewID()
	}
	if next.ValidationRules == nil {
		next.ValidationRules = []ValidationRule{}
	}
	next.Order = len(out.Fields)
	out.Fields = append(out.Fields, next)
	return out
}

// UpdateField replaces the field sharing field.ID. The replacement keeps the
// existing Order. Unknown ids leave the form unchanged.
func UpdateField(form Form, field FormField) Form {
	out := form.Clone()
	for i := range out.Fields {
		if out.Fields[i].ID == field.ID {
			next := field.Clone()
			next.Order = out.Fields[i].Order
			out.Fields[i] = next
			break
		}
	}
	return out
}

// DeleteField removes the field with the supplied id and renumbers the rest.
func DeleteField(form Form, id string) Form {
	out := form.Clone()
	kept := make([]FormField, 0, len(out.Fields))
	for _, field := range out.Fields {
		if field.ID == id {
			continue
		}
		kept = append(kept, field)
	}
	out.Fields = renumber(kept)
	return out
}

// ReorderFields arranges the fields in the order given by ids, which must be a
// permutation of the form's field ids.
func ReorderFields(form Form, ids []string) (Form, error) {
	if len(ids) != len(form.Fields) {
		return Form{}, fmt.Errorf("model: reorder expects %d ids, got %d", len(form.Fields), len(ids))
	}
	index := make(map[string]int, len(form.Fields))
	for i, field := range form.Fields {
		index[field.ID] = i
	}

	out := form.Clone()
	ordered := make([]FormField, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pos, ok := index[id]
		if !ok {
			return Form{}, fmt.Errorf("model: reorder references unknown field %q", id)
		}
		if _, dup := seen[id]; dup {
			return Form{}, fmt.Errorf("model: reorder lists field %q twice", id)
		}
		seen[id] = struct{}{}
		ordered = append(ordered, out.Fields[pos])
	}
	out.Fields = renumber(ordered)
	return out, nil
}

// MoveField moves the field at index from to index to, shifting the fields in
// between.
func MoveField(form Form, from, to int) (Form, error) {
	n := len(form.Fields)
	if from < 0 || from >= n || to < 0 || to >= n {
		return Form{}, fmt.Errorf("model: move %d -> %d out of range [0,%d)", from, to, n)
	}
	out := form.Clone()
	if from == to {
		out.Fields = renumber(out.Fields)
		return out, nil
	}
	moved := out.Fields[from]
	rest := append(append([]FormField(nil), out.Fields[:from]...), out.Fields[from+1:]...)
	fields := make([]FormField, 0, n)
	fields = append(fields, rest[:to]...)
	fields = append(fields, moved)
	fields = append(fields, rest[to:]...)
	out.Fields = renumber(fields)
	return out, nil
}

// Normalize sorts fields by their declared Order (stable) and renumbers them
// to 0..n-1. Loaded and imported forms pass through it so display order is
// always dense.
func Normalize(form Form) Form {
	out := form.Clone()
	sort.SliceStable(out.Fields, func(i, j int) bool {
		return out.Fields[i].Order < out.Fields[j].Order
	})
	out.Fields = renumber(out.Fields)
	return out
}

func renumber(fields []FormField) []FormField {
	for i := range fields {
		fields[i].Order = i
	}
	return fields
}
