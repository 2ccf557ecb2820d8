// Package config loads the formbuilder TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/goliatone/go-formbuilder/internal/logger"
	"github.com/goliatone/go-formbuilder/pkg/derived"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const appName = "formbuilder"

// ErrInvalid wraps every configuration problem reported by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the root of config.toml.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Preview PreviewConfig `toml:"preview"`
	Derived DerivedConfig `toml:"derived"`
	Log     LogConfig     `toml:"log"`

	// Path is the file the configuration was read from; empty when defaults
	// were used.
	Path string `toml:"-"`
}

// StorageConfig locates the saved-forms blob.
type StorageConfig struct {
	Dir        string `toml:"dir"`
	Collection string `toml:"collection"`
}

// PreviewConfig tunes the terminal preview session.
type PreviewConfig struct {
	SubmitDelay   Duration `toml:"submit_delay"`
	SuccessWindow Duration `toml:"success_window"`
	Locale        string   `toml:"locale"`
	Output        string   `toml:"output"`
}

// DerivedConfig selects how derived values propagate.
type DerivedConfig struct {
	Propagation string `toml:"propagation"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "1s" or "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Dir:        filepath.Join(baseDir(), "forms"),
			Collection: store.DefaultCollection,
		},
		Preview: PreviewConfig{
			SubmitDelay:   Duration{session.DefaultSubmitDelay},
			SuccessWindow: Duration{session.DefaultSuccessWindow},
			Locale:        "en",
			Output:        string(tui.OutputFormatJSON),
		},
		Derived: DerivedConfig{Propagation: derived.SingleHop.String()},
		Log:     LogConfig{Level: "warn"},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/formbuilder/config.toml, or the platform
// equivalent.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.toml")
}

func baseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(dir, appName)
}

// Load reads path over the defaults. An empty path means DefaultPath. A
// missing file is not an error. Unknown keys are rejected and a relative
// storage dir is resolved against the file's directory.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	if cfg.Storage.Dir != "" && !filepath.IsAbs(cfg.Storage.Dir) {
		cfg.Storage.Dir = filepath.Join(filepath.Dir(path), cfg.Storage.Dir)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in one error.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Storage.Dir) == "" {
		problems = append(problems, "storage.dir is required")
	}
	if strings.TrimSpace(c.Storage.Collection) == "" {
		problems = append(problems, "storage.collection is required")
	}
	if c.Preview.SubmitDelay.Duration < 0 {
		problems = append(problems, "preview.submit_delay must not be negative")
	}
	if c.Preview.SuccessWindow.Duration < 0 {
		problems = append(problems, "preview.success_window must not be negative")
	}
	if _, err := validation.New(validation.WithLocale(c.Preview.Locale)); err != nil {
		problems = append(problems, fmt.Sprintf("preview.locale %q is not one of %s", c.Preview.Locale, strings.Join(validation.Locales(), ", ")))
	}
	if _, ok := tui.ParseOutputFormat(c.Preview.Output); !ok {
		problems = append(problems, fmt.Sprintf("preview.output %q must be json or pretty", c.Preview.Output))
	}
	if _, ok := derived.ParsePropagation(c.Derived.Propagation); !ok {
		problems = append(problems, fmt.Sprintf("derived.propagation %q must be single or transitive", c.Derived.Propagation))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is not a level", c.Log.Level))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// PropagationMode returns the parsed derived.propagation setting.
func (c Config) PropagationMode() derived.Propagation {
	mode, _ := derived.ParsePropagation(c.Derived.Propagation)
	return mode
}

// OutputFormat returns the parsed preview.output setting.
func (c Config) OutputFormat() tui.OutputFormat {
	format, ok := tui.ParseOutputFormat(c.Preview.Output)
	if !ok {
		return tui.OutputFormatJSON
	}
	return format
}
