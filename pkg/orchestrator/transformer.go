package orchestrator

import (
	"context"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Transformer rewrites a form as it enters the store through Import or
// NewFromTemplate. Implementations can rename fields, attach rules or apply
// house defaults.
type Transformer interface {
	Transform(ctx context.Context, form *model.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}
