package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/aqt/aqt-connector/pkg/aqtctl/app"
	"github.com/aqt/aqt-connector/pkg/aqtctl/output"
)

func NewWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"workspaces", "ws"},
		Short:   "Inspect workspaces",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces and their resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			workspaces, err := app.ListWorkspaces(cmd.Context(), a, rt.apiToken)
			if err != nil {
				return err
			}
			return rt.writeResult(workspaces, func(w io.Writer) {
				output.WriteWorkspaceTable(w, workspaces)
			})
		},
	})
	return cmd
}

func NewResourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Inspect resources",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get RESOURCE_ID",
		Short: "Show a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			resource, err := app.GetResource(cmd.Context(), a, args[0], rt.apiToken)
			if err != nil {
				return err
			}
			return rt.writeResult(resource, func(w io.Writer) {
				output.WriteResourceTable(w, resource)
			})
		},
	})
	return cmd
}
