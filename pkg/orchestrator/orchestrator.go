package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/derived"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/templates"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithStore injects the saved-forms store. Defaults to an empty MemoryStore.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithEngine injects the derived-field engine shared by sessions and checks.
func WithEngine(engine *derived.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = engine
	}
}

// WithValidator injects the validation engine.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithSubmitter sets the collaborator sessions submit to.
func WithSubmitter(s session.Submitter) Option {
	return func(o *Orchestrator) {
		o.submitter = s
	}
}

// WithSuccessWindow sets how long sessions report a successful submission.
func WithSuccessWindow(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.window = d
	}
}

// WithClock overrides the time source for timestamps, sessions and the
// default derived engine.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRenderer injects the terminal preview renderer.
func WithRenderer(r *tui.Renderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithTransformer registers a Transformer applied to imported and templated
// forms before they are stored.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithLogger sets the logger handed to sessions and used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator is the single entry point for hosts such as the CLI. Missing
// dependencies are initialised with the built-in implementations so callers
// can start with a single constructor call.
type Orchestrator struct {
	store       store.Store
	engine      *derived.Engine
	validator   *validation.Validator
	submitter   session.Submitter
	window      time.Duration
	now         func() time.Time
	renderer    *tui.Renderer
	transformer Transformer
	logger      *slog.Logger
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.now == nil {
		o.now = time.Now
	}
	if o.store == nil {
		o.store = store.NewMemoryStore()
	}
	if o.engine == nil {
		o.engine = derived.New(derived.WithClock(o.now), derived.WithLogger(o.logger))
	}
	if o.validator == nil {
		o.validator = validation.Default()
	}
	if o.renderer == nil {
		o.renderer = tui.New(tui.WithLogger(o.logger))
	}
}

// Forms lists the saved forms matching q.
func (o *Orchestrator) Forms(ctx context.Context, q store.Query) ([]model.Form, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("orchestrator: invalid query %+v", q)
	}
	forms, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list forms: %w", err)
	}
	return store.Filter(forms, q), nil
}

// Form returns the saved form with id.
func (o *Orchestrator) Form(ctx context.Context, id string) (model.Form, error) {
	form, err := o.store.Get(ctx, id)
	if err != nil {
		return model.Form{}, fmt.Errorf("orchestrator: form %q: %w", id, err)
	}
	return form, nil
}

// Import parses a JSON or YAML form document, applies the transformer and
// saves the result, replacing any stored form with the same id. Missing
// timestamps are stamped with the current time.
func (o *Orchestrator) Import(ctx context.Context, r io.Reader) (model.Form, error) {
	form, err := store.Import(r)
	if err != nil {
		return model.Form{}, err
	}
	if form.CreatedAt == "" {
		form.CreatedAt = model.Timestamp(o.now())
	}
	if form.UpdatedAt == "" {
		form.UpdatedAt = form.CreatedAt
	}
	return o.ingest(ctx, form)
}

// Export returns the download filename and pretty JSON for the form with id.
func (o *Orchestrator) Export(ctx context.Context, id string) (string, []byte, error) {
	form, err := o.Form(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return store.Export(form)
}

// Delete removes the form with id. Deleting an unknown id is not an error.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if err := o.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("orchestrator: delete %q: %w", id, err)
	}
	return nil
}

// Duplicate stores a copy of the form with id under a new id and returns it.
func (o *Orchestrator) Duplicate(ctx context.Context, id string) (model.Form, error) {
	form, err := o.Form(ctx, id)
	if err != nil {
		return model.Form{}, err
	}
	dup := store.Duplicate(form, o.now())
	if err := o.store.Save(ctx, dup); err != nil {
		return model.Form{}, fmt.Errorf("orchestrator: save duplicate: %w", err)
	}
	return dup, nil
}

// NewFromTemplate instantiates a built-in template and saves it.
func (o *Orchestrator) NewFromTemplate(ctx context.Context, name string) (model.Form, error) {
	form, err := templates.New(name, o.now())
	if err != nil {
		return model.Form{}, err
	}
	return o.ingest(ctx, form)
}

func (o *Orchestrator) ingest(ctx context.Context, form model.Form) (model.Form, error) {
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &form); err != nil {
			return model.Form{}, fmt.Errorf("orchestrator: transform form: %w", err)
		}
		form = model.Normalize(form)
	}
	if err := model.CheckStrict(form); err != nil {
		return model.Form{}, fmt.Errorf("%w: %w", store.ErrInvalidForm, err)
	}
	if err := o.store.Save(ctx, form); err != nil {
		return model.Form{}, fmt.Errorf("orchestrator: save form: %w", err)
	}
	o.log().Info("orchestrator: form stored", "form.id", form.ID, "fields", len(form.Fields))
	return form, nil
}

// Session returns a fresh controller configured with the orchestrator's
// engines, submitter and clock.
func (o *Orchestrator) Session() *session.Controller {
	opts := []session.Option{
		session.WithEngine(o.engine),
		session.WithValidator(o.validator),
		session.WithClock(o.now),
		session.WithLogger(o.logger),
	}
	if o.submitter != nil {
		opts = append(opts, session.WithSubmitter(o.submitter))
	}
	if o.window > 0 {
		opts = append(opts, session.WithSuccessWindow(o.window))
	}
	return session.New(opts...)
}

// Preview runs the terminal preview for the form with id in a fresh session.
func (o *Orchestrator) Preview(ctx context.Context, id string) ([]byte, error) {
	form, err := o.Form(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.renderer.Preview(ctx, form, o.Session())
}

// Report is the outcome of checking a set of answers against a form.
type Report struct {
	// Values are the answers with every derived field recomputed.
	Values map[string]any
	// FieldErrors holds validation messages keyed by field id.
	FieldErrors map[string][]string
	// SchemaIssues lists violations of the form's OpenAPI payload schema.
	SchemaIssues []string
}

// Valid reports whether the answers passed both checks.
func (r Report) Valid() bool {
	return len(r.FieldErrors) == 0 && len(r.SchemaIssues) == 0
}

// Check validates values against the form with id without a session: derived
// fields are recomputed, every rule is evaluated and the payload is matched
// against the exported schema.
func (o *Orchestrator) Check(ctx context.Context, id string, values map[string]any) (Report, error) {
	form, err := o.Form(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return o.CheckForm(ctx, form, values), nil
}

// CheckForm is Check for a form the caller already holds.
func (o *Orchestrator) CheckForm(ctx context.Context, form model.Form, values map[string]any) Report {
	form = model.Normalize(form)
	current := make(map[string]any, len(values))
	for k, v := range values {
		current[k] = v
	}
	for _, field := range form.Fields {
		if field.IsDerived {
			current[field.ID] = o.engine.Calculate(ctx, field, current, form.Fields)
		}
	}

	report := Report{
		Values:      current,
		FieldErrors: o.validator.ValidateForm(form.Fields, current),
	}
	if err := openapi.CheckPayload(form, current); err != nil {
		report.SchemaIssues = openapi.Issues(err)
	}
	return report
}

// Document returns the OpenAPI document describing submissions of the form
// with id.
func (o *Orchestrator) Document(ctx context.Context, id string) (*openapi3.T, error) {
	form, err := o.Form(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := openapi.Document(form)
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("orchestrator: invalid document for %q: %w", id, err)
	}
	return doc, nil
}

// Lint parses a form document and runs the strict structural checks without
// storing it.
func Lint(r io.Reader) (model.Form, error) {
	form, err := store.Import(r)
	if err != nil {
		return model.Form{}, err
	}
	if err := model.CheckStrict(form); err != nil {
		var structural *model.StructuralError
		if errors.As(err, &structural) {
			return form, fmt.Errorf("%w: %w", store.ErrInvalidForm, structural)
		}
		return form, err
	}
	return form, nil
}

func (o *Orchestrator) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}
