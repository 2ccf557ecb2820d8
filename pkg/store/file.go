package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// FileStore keeps the whole collection in one JSON file,
// <dir>/<collection>.json, rewritten atomically on every change.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	name   string
	logger *slog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithCollection overrides the blob name (without extension).
func WithCollection(name string) FileOption {
	return func(s *FileStore) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.name = trimmed
		}
	}
}

// WithLogger routes store diagnostics to logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore returns a store rooted at dir. The directory is created on the
// first save.
func NewFileStore(dir string, options ...FileOption) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store: directory is required")
	}
	s := &FileStore{dir: dir, name: DefaultCollection}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Path returns the collection file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.name+".json")
}

// List returns all forms in collection order.
func (s *FileStore) List(ctx context.Context) ([]model.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return validForms(records), nil
}

// Get returns the form with id.
func (s *FileStore) Get(ctx context.Context, id string) (model.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return model.Form{}, err
	}
	form, ok := find(validForms(records), id)
	if !ok {
		return model.Form{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return form, nil
}

// Save upserts form and rewrites the collection. Records this store cannot
// read are written back unchanged.
func (s *FileStore) Save(ctx context.Context, form model.Form) error {
	if err := model.Check(form); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	raw, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", ErrStorage, form.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	next := withoutRecord(records, form.ID)
	next = append(next, record{id: form.ID, raw: raw, form: form, valid: true})
	return s.write(ctx, next)
}

// Delete removes the form with id. Unknown ids are ignored.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	next := withoutRecord(records, id)
	if len(next) == len(records) {
		return nil
	}
	return s.write(ctx, next)
}

// record is one entry of the collection file. raw is kept so entries that
// fail to decode or check survive rewrites byte for byte.
type record struct {
	id    string
	raw   json.RawMessage
	form  model.Form
	valid bool
}

// load reads the collection. Records that fail structural checks are marked
// invalid and logged so one bad entry does not hide the rest.
func (s *FileStore) load(ctx context.Context) ([]record, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		s.log().ErrorContext(ctx, "store: read failed", "path", s.Path(), "error", err)
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, s.Path(), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log().ErrorContext(ctx, "store: corrupt collection", "path", s.Path(), "error", err)
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorage, s.Path(), err)
	}

	records := make([]record, 0, len(entries))
	for _, raw := range entries {
		rec := record{raw: raw}
		var form model.Form
		if err := json.Unmarshal(raw, &form); err != nil {
			var head struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(raw, &head)
			rec.id = head.ID
			s.log().ErrorContext(ctx, "store: skipping undecodable record", "path", s.Path(), "form", head.ID, "error", err)
			records = append(records, rec)
			continue
		}
		rec.id = form.ID
		if err := model.Check(form); err != nil {
			s.log().ErrorContext(ctx, "store: skipping invalid record", "path", s.Path(), "form", form.ID, "error", err)
			records = append(records, rec)
			continue
		}
		rec.form, rec.valid = form, true
		records = append(records, rec)
	}
	return records, nil
}

func validForms(records []record) []model.Form {
	out := make([]model.Form, 0, len(records))
	for _, rec := range records {
		if rec.valid {
			out = append(out, rec.form)
		}
	}
	return out
}

func withoutRecord(records []record, id string) []record {
	out := make([]record, 0, len(records)+1)
	for _, rec := range records {
		if rec.id != id {
			out = append(out, rec)
		}
	}
	return out
}

func (s *FileStore) write(ctx context.Context, records []record) error {
	entries := make([]json.RawMessage, len(records))
	for i, rec := range records {
		entries[i] = rec.raw
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorage, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log().ErrorContext(ctx, "store: create directory failed", "dir", s.dir, "error", err)
		return fmt.Errorf("%w: create %s: %w", ErrStorage, s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+s.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStorage, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		cleanup()
		s.log().ErrorContext(ctx, "store: replace collection failed", "path", s.Path(), "error", err)
		return fmt.Errorf("%w: replace %s: %w", ErrStorage, s.Path(), err)
	}
	return nil
}

func (s *FileStore) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
