package validation

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

const (
	msgRequired       = "required"
	msgMinLength      = "min_length"
	msgMaxLength      = "max_length"
	msgEmail          = "email"
	msgPasswordNumber = "password_number"
	msgPasswordLetter = "password_letter"
	msgMin            = "min"
	msgMax            = "max"
)

var loadBundle = sync.OnceValues(func() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/active.*.toml")
	if err != nil {
		return nil, fmt.Errorf("validation: list locales: %w", err)
	}
	for _, file := range files {
		raw, err := localeFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("validation: read %s: %w", file, err)
		}
		if _, err := bundle.ParseMessageFileBytes(raw, path.Base(file)); err != nil {
			return nil, fmt.Errorf("validation: parse %s: %w", file, err)
		}
	}
	return bundle, nil
})

// Locales lists the languages default messages are available in.
func Locales() []string {
	bundle, err := loadBundle()
	if err != nil {
		return nil
	}
	var out []string
	for _, tag := range bundle.LanguageTags() {
		out = append(out, tag.String())
	}
	sort.Strings(out)
	return out
}

type messages struct {
	localizer *i18n.Localizer
	fallback  *i18n.Localizer
}

func newMessages(bundle *i18n.Bundle, locale string) messages {
	return messages{
		localizer: i18n.NewLocalizer(bundle, locale),
		fallback:  i18n.NewLocalizer(bundle, language.English.String()),
	}
}

func (m messages) render(id, label string, n *float64) string {
	data := map[string]any{"Label": label}
	if n != nil {
		data["N"] = formatNumber(*n)
	}
	cfg := &i18n.LocalizeConfig{MessageID: id, TemplateData: data}
	if out, err := m.localizer.Localize(cfg); err == nil {
		return out
	}
	if out, err := m.fallback.Localize(cfg); err == nil {
		return out
	}
	return label + ": " + id
}

// formatNumber prints thresholds without a trailing ".0".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
