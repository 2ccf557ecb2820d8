// Package orchestrator ties the saved-forms store, templates, the derived and
// validation engines, the terminal preview and the OpenAPI export together
// behind one dependency-injection friendly entry point.
package orchestrator
