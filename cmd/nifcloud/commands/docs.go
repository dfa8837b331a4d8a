package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func installDocsCmd(app *App) {
	var dir string

	cmd := &cobra.Command{
		Use:   "docs SERVICE",
		Short: "Render the Markdown reference of a service",
		Long:  "Render the Markdown reference of a service on the standard output, or into DIR/SERVICE.md with --dir.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session()
			if err != nil {
				return err
			}
			if dir == "" {
				md, err := s.Documentation(args[0], app.config.APIVersion)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}
			path, err := s.WriteDocumentation(args[0], app.config.APIVersion, dir)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write the reference into")
	if err := cmd.MarkFlagDirname("dir"); err != nil {
		slog.Warn("Failed to mark flag as directory", "flag", "dir", "error", err)
	}

	app.cmd.AddCommand(cmd)
}
