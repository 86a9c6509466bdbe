package cli

import (
	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"

	"github.com/spf13/cobra"
)

func newWorkpackagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workpackages",
		Aliases: []string{"wp"},
		Short:   "Workpackage commands",
	}
	cmd.AddCommand(newWorkpackagesAddCmd(app))
	cmd.AddCommand(newReorderCmd(app, model.KindPackage))
	return cmd
}

func newSubworkpackagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subworkpackages",
		Aliases: []string{"swp"},
		Short:   "Subworkpackage commands",
	}
	cmd.AddCommand(newSubworkpackagesAddCmd(app))
	cmd.AddCommand(newReorderCmd(app, model.KindSubpackage))
	return cmd
}

func newWorkpackagesAddCmd(app *App) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Append a workpackage to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			wp, err := svc.AddWorkpackage(cmd.Context(), args[0], name, description)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": wp})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Workpackage name")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSubworkpackagesAddCmd(app *App) *cobra.Command {
	var workpackageID, name, description string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Append a subworkpackage; it is ranked last project-wide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			sp, err := svc.AddSubworkpackage(cmd.Context(), args[0], workpackageID, name, description)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": sp})
		},
	}
	cmd.Flags().StringVar(&workpackageID, "workpackage", "", "Parent workpackage id")
	cmd.Flags().StringVar(&name, "name", "", "Subworkpackage name")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	_ = cmd.MarkFlagRequired("workpackage")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

type rankedID struct {
	ID            string `json:"id"`
	WorkpackageID string `json:"workpackageId,omitempty"`
	Priority      int    `json:"priority"`
}

// newReorderCmd is the scripted equivalent of a drag end: --active is the
// dragged row and --over the row it was dropped on.
func newReorderCmd(app *App, kind model.Kind) *cobra.Command {
	var activeID, overID string

	cmd := &cobra.Command{
		Use:   "reorder <project-id>",
		Short: "Move one entry to the position of another and renumber priorities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, err := svc.Open(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, changed, err := sess.Reorder(kind, activeID, overID)
			if err != nil {
				return writeErr(cmd, err)
			}
			if changed {
				if err := sess.Commit(cmd.Context(), ch); err != nil {
					return writeErr(cmd, err)
				}
			}
			out := map[string]any{
				"changed": changed,
				"order":   rankedOrder(sess.Project(), kind),
			}
			if changed {
				out["change"] = ch
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	cmd.Flags().StringVar(&activeID, "active", "", "Id of the dragged entry")
	cmd.Flags().StringVar(&overID, "over", "", "Id of the entry it was dropped on")
	_ = cmd.MarkFlagRequired("active")
	return cmd
}

func rankedOrder(p *model.Project, kind model.Kind) []rankedID {
	var out []rankedID
	if kind == model.KindPackage {
		for _, wp := range project.OrderedWorkpackages(p) {
			out = append(out, rankedID{ID: wp.ID, Priority: wp.Priority})
		}
		return out
	}
	for _, sp := range project.GlobalSubworkpackages(p) {
		out = append(out, rankedID{ID: sp.ID, WorkpackageID: sp.WorkpackageID, Priority: sp.Priority})
	}
	return out
}
