package cli

import (
	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	return cmd
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name, description, address string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := svc.Create(cmd.Context(), name, description, address)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": p})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&address, "address", "", "Site address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

type projectSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	Workpackages int    `json:"workpackages"`
}

func newProjectsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ps, err := svc.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			out := make([]projectSummary, 0, len(ps))
			for _, p := range ps {
				out = append(out, projectSummary{ID: p.ID, Name: p.Name, Address: p.Address, Workpackages: len(p.Workpackages)})
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			issues := []string{}
			if err := p.Validate(); err != nil {
				issues = append(issues, err.Error())
			}
			return writeOut(cmd, app, map[string]any{
				"data": p,
				"meta": map[string]any{
					"workpackages":    len(p.Workpackages),
					"subworkpackages": len(project.GlobalSubworkpackages(p)),
					"tasks":           countTasks(p),
					"issues":          issues,
				},
			})
		},
	}
	return cmd
}

func countTasks(p *model.Project) int {
	n := 0
	for _, wp := range p.Workpackages {
		for _, sp := range wp.Subpackages {
			n += len(sp.Tasks)
		}
	}
	return n
}
