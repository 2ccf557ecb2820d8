// Command formbuilder manages saved forms: templates, import and export,
// terminal previews, answer checks and OpenAPI schemas.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := fang.Execute(context.Background(), rootCmd()); err != nil {
		os.Exit(1)
	}
}
