package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/session"
)

const dateHelp = "YYYY-MM-DD"

// Renderer previews a form in the terminal. Every answer is fed through a
// session controller, so validation and derived values behave exactly as in
// any other host of the session.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	logger       *slog.Logger
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Preview.
func (r *Renderer) ContentType() string {
	if r.outputFormat == OutputFormatPrettyText {
		return "text/plain"
	}
	return "application/json"
}

// Preview loads form into ctrl and prompts every non-derived field in order.
// A field is asked again until the session reports no errors for it. After
// the last field the user confirms the submission; the collected values are
// returned serialized whether or not they chose to submit. A nil ctrl gets a
// fresh session with default options.
func (r *Renderer) Preview(ctx context.Context, form model.Form, ctrl *session.Controller) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	if ctrl == nil {
		ctrl = session.New(session.WithLogger(r.logger))
	}

	form = model.Normalize(form)
	ctrl.Load(form)
	r.log().Debug("tui: preview started", "form.id", form.ID, "fields", len(form.Fields))

	if form.Description != "" {
		if err := r.info(ctx, form.Description); err != nil {
			return nil, err
		}
	}

	for _, field := range form.Fields {
		if field.IsDerived {
			continue
		}
		if err := r.promptField(ctx, form, field, ctrl); err != nil {
			return nil, err
		}
	}

	submit, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Submit %s?", form.Name),
		Default: true,
	})
	if err != nil {
		return nil, err
	}
	if submit {
		ok, err := ctrl.Submit(ctx)
		if err != nil {
			return nil, fmt.Errorf("tui: submit: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotSubmitted, summarize(form, ctrl.Snapshot()))
		}
		if err := r.info(ctx, "Form submitted successfully!"); err != nil {
			return nil, err
		}
	}

	return r.serialize(form, ctrl.Snapshot().Values)
}

func (r *Renderer) promptField(ctx context.Context, form model.Form, field model.FormField, ctrl *session.Controller) error {
	for {
		value, err := r.ask(ctx, field)
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return err
		}

		before := ctrl.Snapshot().Values
		if err := ctrl.Change(ctx, field.ID, value); err != nil {
			return fmt.Errorf("tui: change %s: %w", field.ID, err)
		}
		after := ctrl.Snapshot()

		if msgs := after.ErrorsFor(field.ID); len(msgs) > 0 {
			for _, msg := range msgs {
				if err := r.fail(ctx, msg); err != nil {
					return err
				}
			}
			continue
		}
		return r.echoDerived(ctx, form, before, after.Values)
	}
}

// errRetry marks an answer that could not be parsed; the field is asked again.
var errRetry = errors.New("tui: retry")

func (r *Renderer) ask(ctx context.Context, field model.FormField) (any, error) {
	help := field.Placeholder
	def := defaultString(field.DefaultValue)

	switch field.Type {
	case model.FieldTypeTextarea:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: field.Label, Default: def, Help: help})

	case model.FieldTypeNumber:
		return r.askParsed(ctx, InputConfig{Message: field.Label, Default: def, Help: help, Validator: numberCheck(field.Label)},
			func(raw string) any {
				n, _ := strconv.ParseFloat(raw, 64)
				return n
			})

	case model.FieldTypeDate:
		if help == "" {
			help = dateHelp
		}
		return r.askParsed(ctx, InputConfig{Message: field.Label, Default: def, Help: help, Validator: dateCheck(field.Label)},
			func(raw string) any { return raw })

	case model.FieldTypeSelect, model.FieldTypeRadio:
		if len(field.Options) == 0 {
			return r.driver.Input(ctx, InputConfig{Message: field.Label, Default: def, Help: help})
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      field.Label,
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, def),
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, r.retry(ctx, fmt.Sprintf("Invalid %s selection", field.Label))
		}
		return field.Options[idx], nil

	case model.FieldTypeCheckbox:
		if len(field.Options) == 0 {
			def, _ := field.DefaultValue.(bool)
			return r.driver.Confirm(ctx, ConfirmConfig{Message: field.Label, Default: def, Help: help})
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  field.Label,
			Options:  field.Options,
			Defaults: indicesOf(field.Options, defaultStrings(field.DefaultValue)),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		selected := defaultsFromIndices(field.Options, indices)
		if selected == nil {
			selected = []string{}
		}
		return selected, nil

	default:
		cfg := InputConfig{Message: field.Label, Default: def, Help: help}
		if field.HasRule(model.RulePassword) {
			return r.driver.Password(ctx, cfg)
		}
		return r.driver.Input(ctx, cfg)
	}
}

// askParsed asks for a typed value. The survey driver enforces cfg.Validator
// at the prompt; the answer is re-checked here for drivers that do not.
// Blank answers are sent as "".
func (r *Renderer) askParsed(ctx context.Context, cfg InputConfig, convert func(string) any) (any, error) {
	raw, err := r.driver.Input(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validator(raw); err != nil {
		return nil, r.retry(ctx, err.Error())
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	return convert(raw), nil
}

func numberCheck(label string) func(string) error {
	return func(raw string) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("%s must be a number", label)
		}
		return nil
	}
}

func dateCheck(label string) func(string) error {
	return func(raw string) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		if _, ok := model.ParseTimestamp(raw); !ok {
			return fmt.Errorf("%s must be a date (%s)", label, dateHelp)
		}
		return nil
	}
}

func (r *Renderer) retry(ctx context.Context, msg string) error {
	if err := r.fail(ctx, msg); err != nil {
		return err
	}
	return errRetry
}

func (r *Renderer) echoDerived(ctx context.Context, form model.Form, before, after map[string]any) error {
	for _, field := range form.Fields {
		if !field.IsDerived {
			continue
		}
		next, ok := after[field.ID]
		if !ok {
			continue
		}
		prev, had := before[field.ID]
		if had && fmt.Sprint(prev) == fmt.Sprint(next) {
			continue
		}
		if !had && display(next) == "" {
			continue
		}
		if err := r.info(ctx, fmt.Sprintf("%s = %s", field.Label, display(next))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) fail(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func (r *Renderer) serialize(form model.Form, values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatPrettyText:
		return []byte(prettyPrint(form, values)), nil
	default:
		return json.MarshalIndent(values, "", "  ")
	}
}

func (r *Renderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func prettyPrint(form model.Form, values map[string]any) string {
	var b strings.Builder
	for _, field := range form.Fields {
		value, ok := values[field.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field.Label, display(value))
	}
	return b.String()
}

func display(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, ", ")
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func summarize(form model.Form, snap session.Snapshot) string {
	var parts []string
	for _, field := range form.Fields {
		parts = append(parts, snap.ErrorsFor(field.ID)...)
	}
	if len(parts) == 0 {
		return "form is invalid"
	}
	return strings.Join(parts, "; ")
}

func defaultString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func defaultStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
