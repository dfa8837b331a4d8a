package commands

import (
	"fmt"

	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/spf13/cobra"
)

func installVersionCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n%s\n", constants.CmdName, constants.Version, nifcloud.UserAgent())
			return err
		},
	}
	app.cmd.AddCommand(cmd)
}
