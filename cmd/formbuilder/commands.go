package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder/internal/logger"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/templates"
)

// errInvalidAnswers is returned by validate so the process exits non-zero
// after the report has been printed.
var errInvalidAnswers = errors.New("answers are invalid")

func listCmd(a *app) *cobra.Command {
	var search, sortBy, order string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forms, err := a.orch.Forms(cmd.Context(), store.Query{
				Search: search,
				SortBy: store.SortKey(sortBy),
				Order:  store.Order(order),
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(forms) == 0 {
				_, err := fmt.Fprintln(out, "No forms found.")
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFIELDS\tUPDATED")
			for _, form := range forms {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", form.ID, form.Name, len(form.Fields), form.UpdatedAt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match name or description (case-insensitive)")
	cmd.Flags().StringVar(&sortBy, "sort", string(store.SortByUpdatedAt), "sort key: name, createdAt or updatedAt")
	cmd.Flags().StringVar(&order, "order", string(store.Descending), "sort order: asc or desc")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a saved form as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := a.orch.Form(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), form)
		},
	}
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON or YAML form file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := logger.With(cmd.Context(), "file", args[0])
			form, err := a.orch.Import(ctx, f)
			if err != nil {
				logger.Error(ctx, "import failed", err)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", form.Name, form.ID)
			return err
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a saved form to <name>_form.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, data, err := a.orch.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Form written to %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to write into")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.orch.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	}
}

func duplicateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate ID",
		Short: "Copy a saved form under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dup, err := a.orch.Duplicate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", dup.Name, dup.ID)
			return err
		},
	}
}

func newCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "new TEMPLATE",
		Short:     "Create a form from a built-in template",
		Args:      cobra.ExactArgs(1),
		ValidArgs: templates.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := a.orch.NewFromTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", form.Name, form.ID)
			return err
		},
	}
}

func templatesCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List built-in templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE\tFIELDS\tDESCRIPTION")
			for _, info := range templates.List() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", info.Name, info.Title, info.Fields, info.Description)
			}
			return w.Flush()
		},
	}
}

func previewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview ID",
		Short: "Fill in a saved form in the terminal",
		Long: `preview asks for every field of the form in order. Answers are validated
as they are entered and derived fields are shown as they change. After the last
field you can submit; the collected values are printed either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.orch.Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate ID VALUES.json",
		Short: "Check a JSON object of answers against a saved form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var values map[string]any
			if err := json.Unmarshal(raw, &values); err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}

			report, err := a.orch.Check(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func printReport(out io.Writer, report orchestrator.Report) error {
	if report.Valid() {
		_, err := fmt.Fprintln(out, "All answers are valid.")
		return err
	}
	ids := make([]string, 0, len(report.FieldErrors))
	for id := range report.FieldErrors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, msg := range report.FieldErrors[id] {
			fmt.Fprintf(out, "%s: %s\n", id, msg)
		}
	}
	for _, issue := range report.SchemaIssues {
		fmt.Fprintf(out, "schema: %s\n", issue)
	}
	return errInvalidAnswers
}

func schemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema ID",
		Short: "Print the OpenAPI document for a form's submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.orch.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func lintCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint FILE",
		Short: "Check a form file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			form, err := orchestrator.Lint(f)
			if err != nil {
				var structural *model.StructuralError
				if errors.As(err, &structural) {
					for _, problem := range structural.Problems {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", problemLocation(problem), problem.Message)
					}
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d fields)\n", form.Name, len(form.Fields))
			return err
		},
	}
}

func problemLocation(p model.Problem) string {
	if p.Field == "" {
		return "form"
	}
	return "field " + p.Field
}

func writeJSON(out io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
