package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

//go:embed definitions/*.yaml
var definitionsFS embed.FS

// ErrUnknownTemplate is returned by New for names List does not report.
var ErrUnknownTemplate = errors.New("templates: unknown template")

// Info describes a built-in template.
type Info struct {
	Name        string
	Title       string
	Description string
	Fields      int
}

type definition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Fields      []fieldDefinition `yaml:"fields"`
}

// fieldDefinition is a field as written in a template file. Derived parents
// are referenced by label because ids are generated per instance.
type fieldDefinition struct {
	model.FormField `yaml:",inline"`
	ParentLabel     string `yaml:"parentLabel"`
}

var loadDefinitions = sync.OnceValues(func() (map[string]definition, error) {
	files, err := fs.Glob(definitionsFS, "definitions/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("templates: list definitions: %w", err)
	}
	out := make(map[string]definition, len(files))
	for _, file := range files {
		raw, err := definitionsFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", file, err)
		}
		var def definition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", file, err)
		}
		out[strings.TrimSuffix(path.Base(file), ".yaml")] = def
	}
	return out, nil
})

// FS exposes the raw template definitions.
func FS() fs.FS {
	sub, err := fs.Sub(definitionsFS, "definitions")
	if err != nil {
		return definitionsFS
	}
	return sub
}

// Names lists the template names accepted by New, sorted.
func Names() []string {
	defs, err := loadDefinitions()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List describes every built-in template, sorted by name.
func List() []Info {
	defs, err := loadDefinitions()
	if err != nil {
		return nil
	}
	var out []Info
	for _, name := range Names() {
		def := defs[name]
		out = append(out, Info{
			Name:        name,
			Title:       def.Name,
			Description: strings.TrimSpace(def.Description),
			Fields:      len(def.Fields),
		})
	}
	return out
}

// New instantiates a template: fresh form and field ids, dense order,
// timestamps set to now and derived parents resolved from their labels.
func New(name string, now time.Time) (model.Form, error) {
	defs, err := loadDefinitions()
	if err != nil {
		return model.Form{}, err
	}
	def, ok := defs[name]
	if !ok {
		return model.Form{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	form := model.NewForm(def.Name, strings.TrimSpace(def.Description), now)
	for _, fd := range def.Fields {
		field := fd.FormField.Clone()
		field.ID = ""
		form = model.AddField(form, field)
	}

	for i, fd := range def.Fields {
		if fd.ParentLabel == "" {
			continue
		}
		parent, ok := form.FieldByLabel(fd.ParentLabel)
		if !ok {
			return model.Form{}, fmt.Errorf("templates: %s: field %q references unknown label %q", name, fd.Label, fd.ParentLabel)
		}
		field := form.Fields[i].Clone()
		if field.DerivedConfig == nil {
			field.DerivedConfig = &model.DerivedFieldConfig{}
		}
		field.DerivedConfig.ParentFieldID = parent.ID
		form = model.UpdateField(form, field)
	}

	if err := model.CheckStrict(form); err != nil {
		return model.Form{}, fmt.Errorf("templates: %s: %w", name, err)
	}
	return form, nil
}
