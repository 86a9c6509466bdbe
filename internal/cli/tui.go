package cli

import (
	"os"
	"path/filepath"

	"github.com/ac7x/lin-llc-sub001/internal/config"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [project-id]",
		Short: "Open the interactive tree view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runTUI(cmd, app, id)
		},
	}
	return cmd
}

// runTUI starts the full-screen UI. Logging goes to a file in the data dir
// so it never draws over the alt screen.
func runTUI(cmd *cobra.Command, app *App, projectID string) error {
	st, err := openStore(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	f, err := os.OpenFile(filepath.Join(st.Dir, "linllc.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer f.Close()
	log, err := config.NewLogger(app.log.GetLevel().String(), f)
	if err != nil {
		return writeErr(cmd, err)
	}

	svc := project.NewService(st, project.WithEvents(st), project.WithLogger(log))
	return tui.Run(cmd.Context(), tui.Config{
		Service:              svc,
		ViewState:            st,
		Log:                  log,
		ProjectID:            projectID,
		SmartExpandThreshold: app.cfg.SmartExpandThreshold,
		Overscan:             app.cfg.TUI.Overscan,
	})
}
