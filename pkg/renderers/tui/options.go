package tui

import "log/slog"

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits an indented JSON object keyed by field id.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatPrettyText emits one "Label: value" line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// ParseOutputFormat resolves a configured output name.
func ParseOutputFormat(name string) (OutputFormat, bool) {
	switch OutputFormat(name) {
	case OutputFormatJSON, OutputFormatPrettyText:
		return OutputFormat(name), true
	default:
		return "", false
	}
}

// Theme captures optional formatting hints the driver can apply when printing
// messages. Keep minimal to avoid coupling renderer logic to ANSI specifics.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithLogger sets the logger used for preview diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}
