package cli

import (
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/store"

	"github.com/spf13/cobra"
)

func newEventsCmd(app *App) *cobra.Command {
	var limit int
	var entity string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent edits from the audit log (oldest-first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var evs []store.Event
			if id := strings.TrimSpace(entity); id != "" {
				evs, err = st.ReadEventsForEntity(cmd.Context(), id, limit)
			} else {
				evs, err = st.ReadEventsTail(cmd.Context(), limit)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": evs})
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Only events for this project id")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max events to return")
	return cmd
}
