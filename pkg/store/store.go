package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// DefaultCollection is the name of the blob that holds saved forms.
const DefaultCollection = "dynamic_form_builder_forms"

var (
	// ErrStorage marks failures of the backing medium (I/O, quota, corrupt
	// blob). Callers may retry; the store never does.
	ErrStorage = errors.New("store: storage failure")
	// ErrNotFound is returned by Get for unknown ids.
	ErrNotFound = errors.New("store: form not found")
	// ErrInvalidForm is returned when a form fails structural checks on its
	// way into the store.
	ErrInvalidForm = errors.New("Failed to parse form file")
)

// Store persists saved forms. Save is an upsert keyed by form id; the saved
// form moves to the end of the collection.
type Store interface {
	List(ctx context.Context) ([]model.Form, error)
	Get(ctx context.Context, id string) (model.Form, error)
	Save(ctx context.Context, form model.Form) error
	Delete(ctx context.Context, id string) error
}

func upsert(forms []model.Form, form model.Form) []model.Form {
	out := make([]model.Form, 0, len(forms)+1)
	for _, existing := range forms {
		if existing.ID != form.ID {
			out = append(out, existing)
		}
	}
	return append(out, form.Clone())
}

func remove(forms []model.Form, id string) []model.Form {
	out := make([]model.Form, 0, len(forms))
	for _, existing := range forms {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}

func find(forms []model.Form, id string) (model.Form, bool) {
	for _, form := range forms {
		if form.ID == id {
			return form.Clone(), true
		}
	}
	return model.Form{}, false
}

func cloneAll(forms []model.Form) []model.Form {
	out := make([]model.Form, len(forms))
	for i, form := range forms {
		out[i] = form.Clone()
	}
	return out
}
