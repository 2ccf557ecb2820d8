package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// MemoryStore keeps forms in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	forms []model.Form
}

// NewMemoryStore returns a store seeded with forms.
func NewMemoryStore(forms ...model.Form) *MemoryStore {
	return &MemoryStore{forms: cloneAll(forms)}
}

// List returns all forms in insertion order.
func (s *MemoryStore) List(context.Context) ([]model.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.forms), nil
}

// Get returns the form with id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := find(s.forms, id)
	if !ok {
		return model.Form{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return form, nil
}

// Save upserts form.
func (s *MemoryStore) Save(_ context.Context, form model.Form) error {
	if err := model.Check(form); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = upsert(s.forms, form)
	return nil
}

// Delete removes the form with id. Unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = remove(s.forms, id)
	return nil
}
