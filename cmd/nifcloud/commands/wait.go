package commands

import (
	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/spf13/cobra"
)

type waitConfig struct {
	input inputFlags
	wait  nifcloud.WaitConfig
}

func installWaitCmd(app *App) {
	var conf waitConfig

	cmd := &cobra.Command{
		Use:   "wait SERVICE WAITER",
		Short: "Wait until a resource reaches a state",
		Long: `Poll the operation of a waiter until its success state is reached.

The command fails when a failure state is reached or when the attempts are exhausted.`,
		Example: `  nifcloud wait computing InstanceRunning --input '{"InstanceId": ["web1"]}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := conf.input.params()
			if err != nil {
				app.cmd.SilenceUsage = false
				return err
			}

			c, err := app.client(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := c.Wait(cmd.Context(), args[1], params, conf.wait)
			if err != nil {
				return err
			}
			return app.print(out.Result)
		},
	}

	installInputFlags(cmd, &conf.input)
	cmd.Flags().DurationVar(&conf.wait.Delay, "delay", 0, "delay between attempts, instead of the one of the waiter")
	cmd.Flags().IntVar(&conf.wait.MaxAttempts, "attempts", 0, "number of attempts, instead of the one of the waiter")

	app.cmd.AddCommand(cmd)
}
