package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/config"
	"github.com/ac7x/lin-llc-sub001/internal/format"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	ConfigFile string
	LogLevel   string
	PrettyJSON bool
	Format     string

	cfg config.Config
	log *logrus.Logger
	st  *store.Store
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "linllc",
		Short:        "Construction project tree (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  linllc

  # Scriptable commands
  linllc projects list

  # Flattened tree (shortcut for: linllc tree <project-id>)
  linllc proj-k3v9q2mz --smart 200
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.configure(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("LINLLC_DIR", ""), "Path to data dir (overrides data_dir from config)")
	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("LINLLC_CONFIG", ""), "Config file (default is $HOME/.config/linllc/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (panic|fatal|error|warn|info|debug|trace)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|yaml)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newWorkpackagesCmd(app))
	cmd.AddCommand(newSubworkpackagesCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTreeCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newWebCmd(app))

	return cmd
}

// configure resolves flags over config: --dir, --format and --log-level win
// when set, otherwise the config file and LINLLC_* variables apply.
func (app *App) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	if strings.TrimSpace(app.Dir) == "" {
		app.Dir = cfg.DataDir
	}
	if strings.TrimSpace(app.Format) == "" {
		app.Format = cfg.Format
	}
	level := app.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.LogLevel
	}
	log, err := config.NewLogger(level, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = log
	return nil
}

func (app *App) close() error {
	if app.st == nil {
		return nil
	}
	err := app.st.Close()
	app.st = nil
	return err
}

func openStore(ctx context.Context, app *App) (*store.Store, error) {
	if app.st != nil {
		return app.st, nil
	}
	st, err := store.Open(ctx, app.Dir)
	if err != nil {
		return nil, err
	}
	app.st = st
	return st, nil
}

func loadService(cmd *cobra.Command, app *App) (*project.Service, *store.Store, error) {
	st, err := openStore(cmd.Context(), app)
	if err != nil {
		return nil, nil, err
	}
	svc := project.NewService(st,
		project.WithEvents(st),
		project.WithLogger(app.log),
	)
	return svc, st, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
