package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Backend process commands",
}

// backendCheckCmd validates the backend layout without starting it
var backendCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the backend directory, interpreter and app exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.close()

		executable, entry := a.supervisor.Paths()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("directory "), cfg.BackendDir())
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("executable"), executable)
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("entry     "), entry)
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("api       "), a.client.Origin())

		if err := a.supervisor.Check(); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("ok"))
		return nil
	},
}

func init() {
	backendCmd.AddCommand(backendCheckCmd)
}
