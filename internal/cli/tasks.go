package cli

import (
	"errors"

	"github.com/ac7x/lin-llc-sub001/internal/model"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksSetProgressCmd(app))
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var subworkpackageID, name, unit string
	var total float64

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a task to a subworkpackage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var totalPtr *float64
			if cmd.Flags().Changed("total") {
				if total < 0 {
					return writeErr(cmd, errUsage("--total must not be negative"))
				}
				totalPtr = model.Float(total)
			}
			t, err := svc.AddTask(cmd.Context(), args[0], subworkpackageID, name, unit, totalPtr)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().StringVar(&subworkpackageID, "subworkpackage", "", "Parent subworkpackage id")
	cmd.Flags().StringVar(&name, "name", "", "Task name")
	cmd.Flags().StringVar(&unit, "unit", "", "Quantity unit (m3, pcs, ...)")
	cmd.Flags().Float64Var(&total, "total", 0, "Planned quantity")
	_ = cmd.MarkFlagRequired("subworkpackage")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTasksSetProgressCmd(app *App) *cobra.Command {
	var completed, percent float64

	cmd := &cobra.Command{
		Use:   "set-progress <project-id> <task-id>",
		Short: "Record completed quantity and/or percent done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var completedPtr, percentPtr *float64
			if cmd.Flags().Changed("completed") {
				completedPtr = model.Float(completed)
			}
			if cmd.Flags().Changed("percent") {
				percentPtr = model.Float(percent)
			}
			if completedPtr == nil && percentPtr == nil {
				return writeErr(cmd, errors.New("set --completed and/or --percent"))
			}
			svc, _, err := loadService(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.SetTaskProgress(cmd.Context(), args[0], args[1], completedPtr, percentPtr)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().Float64Var(&completed, "completed", 0, "Completed quantity")
	cmd.Flags().Float64Var(&percent, "percent", 0, "Percent done (0..100)")
	return cmd
}
