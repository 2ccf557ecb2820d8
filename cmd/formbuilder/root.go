package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder/internal/config"
	"github.com/goliatone/go-formbuilder/internal/logger"
	"github.com/goliatone/go-formbuilder/pkg/derived"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// app carries what every subcommand needs once the config is loaded.
type app struct {
	configPath string
	debug      bool
	verbose    bool

	cfg    config.Config
	log    *slog.Logger
	orch   *orchestrator.Orchestrator
	driver tui.PromptDriver
}

func rootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	ver := version
	if ver == commit {
		ver = "dev"
	}
	cmd := &cobra.Command{
		Use:   "formbuilder",
		Short: "Build, preview and check dynamic forms",
		Long: `formbuilder keeps a collection of form definitions and runs them.

Forms hold typed fields with validation rules. Derived fields (age, sum,
difference or a custom arithmetic formula) recompute from a parent field.
Settings are read from config.toml:

  [storage]
  dir = "forms"
  collection = "dynamic_form_builder_forms"

  [preview]
  submit_delay = "1s"
  success_window = "5s"
  locale = "en"
  output = "json"

  [derived]
  propagation = "single"

  [log]
  level = "warn"`,
		Version: fmt.Sprintf("%s (%s) %s", ver, commit, date),
		Example: `  formbuilder new contact
  formbuilder list --search contact --sort name --order asc
  formbuilder preview <id>
  formbuilder validate <id> answers.json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("formbuilder %s (%s) %s\n", ver, commit, date))

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.BoolVar(&a.debug, "debug", false, "log debug output with source locations")
	flags.BoolVar(&a.verbose, "verbose", false, "log informational output")

	cmd.AddCommand(
		listCmd(a),
		showCmd(a),
		importCmd(a),
		exportCmd(a),
		deleteCmd(a),
		duplicateCmd(a),
		newCmd(a),
		templatesCmd(a),
		previewCmd(a),
		validateCmd(a),
		schemaCmd(a),
		lintCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.InitializeTo(cmd.ErrOrStderr(), level, a.debug, a.verbose)
	cmd.SetContext(logger.WithLogger(cmd.Context(), a.log))

	validator, err := validation.New(validation.WithLocale(cfg.Preview.Locale))
	if err != nil {
		return err
	}
	fileStore, err := store.NewFileStore(cfg.Storage.Dir,
		store.WithCollection(cfg.Storage.Collection),
		store.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	driver := a.driver
	if driver == nil {
		driver = tui.NewSurveyDriver(cmd.OutOrStdout())
	}
	renderer := tui.New(
		tui.WithPromptDriver(driver),
		tui.WithOutputFormat(cfg.OutputFormat()),
		tui.WithTheme(tui.Theme{ErrorPrefix: "✗ "}),
		tui.WithLogger(a.log),
	)

	a.orch = orchestrator.New(
		orchestrator.WithStore(fileStore),
		orchestrator.WithEngine(derived.New(
			derived.WithPropagation(cfg.PropagationMode()),
			derived.WithLogger(a.log),
		)),
		orchestrator.WithValidator(validator),
		orchestrator.WithSubmitter(session.SimulatedSubmitter{Delay: cfg.Preview.SubmitDelay.Duration}),
		orchestrator.WithSuccessWindow(cfg.Preview.SuccessWindow.Duration),
		orchestrator.WithRenderer(renderer),
		orchestrator.WithLogger(a.log),
	)
	a.log.Debug("formbuilder: ready", "config", cfg.Path, "store", fileStore.Path())
	return nil
}
