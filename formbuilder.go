// Package formbuilder is the top-level entry point for building, previewing
// and checking dynamic forms. It re-exports the core types and wraps the
// orchestrator for callers that want a single import.
package formbuilder

import (
	"context"
	"io/fs"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/templates"
)

// Form aliases model.Form.
type Form = model.Form

// FormField aliases model.FormField.
type FormField = model.FormField

// Report aliases orchestrator.Report.
type Report = orchestrator.Report

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// NewSession returns a session controller with the built-in engines.
func NewSession(options ...session.Option) *session.Controller {
	return session.New(options...)
}

// FromTemplate instantiates a built-in template without storing it.
func FromTemplate(name string) (Form, error) {
	return templates.New(name, time.Now())
}

// TemplatesFS exposes the built-in template definitions so callers can copy
// or extend them.
func TemplatesFS() fs.FS {
	return templates.FS()
}

// CheckAnswers recomputes derived fields, validates values against form and
// matches them against the form's submission schema.
func CheckAnswers(ctx context.Context, form Form, values map[string]any) Report {
	return orchestrator.New().CheckForm(ctx, form, values)
}
