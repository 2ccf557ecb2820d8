package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-formbuilder/pkg/derived"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const (
	// DefaultSubmitDelay is how long SimulatedSubmitter waits by default.
	DefaultSubmitDelay = time.Second
	// DefaultSuccessWindow is how long a successful submission stays visible.
	DefaultSuccessWindow = 5 * time.Second
)

var (
	// ErrNoForm is returned by edits made before a form is loaded.
	ErrNoForm = errors.New("session: no form loaded")
	// ErrUnknownField is returned when an edit targets a field the loaded form
	// does not have.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrSuperseded is returned by Submit when the session was reset or
	// reloaded while the submission was pending. The result is discarded.
	ErrSuperseded = errors.New("session: submission superseded")
)

// Deriver recomputes derived values after a change. *derived.Engine satisfies
// it.
type Deriver interface {
	Update(ctx context.Context, changedID string, newValue any, fields []model.FormField, current map[string]any) map[string]any
}

// Validator checks values against field rules. *validation.Validator
// satisfies it.
type Validator interface {
	Validate(field model.FormField, value any) []string
	ValidateForm(fields []model.FormField, values map[string]any) map[string][]string
}

// Submitter performs the submission once the form is valid.
type Submitter interface {
	Submit(ctx context.Context, form model.Form, values map[string]any) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, form model.Form, values map[string]any) error

// Submit calls fn.
func (fn SubmitterFunc) Submit(ctx context.Context, form model.Form, values map[string]any) error {
	return fn(ctx, form, values)
}

// SimulatedSubmitter waits for Delay and succeeds.
type SimulatedSubmitter struct {
	Delay time.Duration
}

// Submit implements Submitter.
func (s SimulatedSubmitter) Submit(ctx context.Context, _ model.Form, _ map[string]any) error {
	if s.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithEngine overrides the derived-field engine.
func WithEngine(engine Deriver) Option {
	return func(c *Controller) {
		if engine != nil {
			c.engine = engine
		}
	}
}

// WithValidator overrides the rule validator.
func WithValidator(v Validator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithSubmitter overrides the submission action.
func WithSubmitter(s Submitter) Option {
	return func(c *Controller) {
		if s != nil {
			c.submitter = s
		}
	}
}

// WithClock overrides the time source used for the success window.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSuccessWindow sets how long SubmitSuccess stays true after a
// submission. Zero hides it on the next read.
func WithSuccessWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.window = d
		}
	}
}

// WithLogger routes transition logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTracer overrides the tracer used for submit spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Controller owns the runtime state of one form preview. All methods are safe
// for concurrent use; the pending submission runs outside the lock so edits
// are never blocked by it.
type Controller struct {
	mu sync.Mutex

	engine    Deriver
	validator Validator
	submitter Submitter
	now       func() time.Time
	window    time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer

	form        *model.Form
	values      map[string]any
	errors      map[string][]string
	isValid     bool
	state       State
	submitting  bool
	success     bool
	submittedAt time.Time
	// generation changes on every Load/Reset so stale submissions can be
	// recognized.
	generation uint64
}

// New builds a Controller with no form loaded.
func New(options ...Option) *Controller {
	c := &Controller{
		engine:    derived.New(),
		validator: validation.Default(),
		submitter: SimulatedSubmitter{Delay: DefaultSubmitDelay},
		now:       time.Now,
		window:    DefaultSuccessWindow,
		tracer:    otel.Tracer("github.com/goliatone/go-formbuilder/pkg/session"),
		values:    map[string]any{},
		errors:    map[string][]string{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Load replaces the session's form and starts a fresh session over it. Every
// field is validated against the empty value set so IsValid reflects the form
// as loaded.
func (c *Controller) Load(form model.Form) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := model.Normalize(form.Clone())
	c.form = &clone
	c.clearLocked()
	c.validateLocked()
	c.log().Debug("session: form loaded", "form", clone.ID, "fields", len(clone.Fields), "valid", c.isValid)
}

// Form returns a copy of the loaded form.
func (c *Controller) Form() (model.Form, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return model.Form{}, false
	}
	return c.form.Clone(), true
}

// Change applies an edit. Derived fields are recomputed before validation so
// their fresh values are what gets validated.
func (c *Controller) Change(ctx context.Context, fieldID string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.form == nil {
		return ErrNoForm
	}
	if _, ok := c.form.Field(fieldID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	c.expireLocked()

	c.values = c.engine.Update(ctx, fieldID, value, c.form.Fields, c.values)
	c.validateLocked()

	switch c.state {
	case Idle:
		c.transitionLocked(Editing)
	case Submitted:
		c.success = false
		c.transitionLocked(Editing)
	}
	return nil
}

// Blur revalidates a single field.
func (c *Controller) Blur(fieldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.form == nil {
		return ErrNoForm
	}
	field, ok := c.form.Field(fieldID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	c.expireLocked()

	if errs := c.validator.Validate(field, c.values[fieldID]); len(errs) > 0 {
		c.errors[fieldID] = errs
	} else {
		delete(c.errors, fieldID)
	}
	c.isValid = len(c.errors) == 0
	return nil
}

// Submit runs the submitter when the form is valid. It reports false with a
// nil error when the attempt was gated (no form, invalid, or already
// submitting). The submitter gets a context that is never canceled: once
// started a submission always resolves.
func (c *Controller) Submit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	c.expireLocked()
	if c.form == nil || !c.isValid || c.submitting {
		c.mu.Unlock()
		return false, nil
	}
	c.submitting = true
	c.success = false
	c.transitionLocked(Submitting)
	generation := c.generation
	form := c.form.Clone()
	values := cloneValues(c.values)
	submitter := c.submitter
	c.mu.Unlock()

	ctx, span := c.tracer.Start(context.WithoutCancel(ctx), "session.Submit", trace.WithAttributes(
		attribute.String("form.id", form.ID),
		attribute.Int("form.fields", len(form.Fields)),
	))
	defer span.End()

	err := submitter.Submit(ctx, form, values)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		span.AddEvent("session.submit.superseded")
		c.log().Debug("session: submission discarded after reset", "form", form.ID)
		return false, ErrSuperseded
	}
	c.submitting = false
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.transitionLocked(Editing)
		return false, fmt.Errorf("session: submit: %w", err)
	}
	c.success = true
	c.submittedAt = c.now()
	c.transitionLocked(Submitted)
	return true, nil
}

// Reset clears values and the success flag and returns to Idle. The form stays
// loaded and is revalidated against the empty value set, as on Load.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	if c.form != nil {
		c.validateLocked()
	}
	c.log().Debug("session: reset", "valid", c.isValid)
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()

	snap := Snapshot{
		State:         c.state,
		Values:        cloneValues(c.values),
		Errors:        cloneErrors(c.errors),
		IsValid:       c.isValid,
		IsSubmitting:  c.submitting,
		SubmitSuccess: c.success,
		SubmittedAt:   c.submittedAt,
	}
	if c.form != nil {
		snap.FormID = c.form.ID
	}
	return snap
}

func (c *Controller) clearLocked() {
	c.values = map[string]any{}
	c.errors = map[string][]string{}
	c.isValid = false
	c.submitting = false
	c.success = false
	c.submittedAt = time.Time{}
	c.generation++
	c.state = Idle
}

func (c *Controller) validateLocked() {
	c.errors = c.validator.ValidateForm(c.form.Fields, c.values)
	c.isValid = len(c.errors) == 0
}

// expireLocked ends the success display window once it has elapsed.
func (c *Controller) expireLocked() {
	if c.state != Submitted || !c.success {
		return
	}
	if c.now().Sub(c.submittedAt) >= c.window {
		c.success = false
		c.transitionLocked(Editing)
	}
}

func (c *Controller) transitionLocked(next State) {
	if c.state == next {
		return
	}
	c.log().Debug("session: transition", "from", c.state.String(), "to", next.String())
	c.state = next
}

func (c *Controller) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
