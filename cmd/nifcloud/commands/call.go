package commands

import (
	"log/slog"

	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/spf13/cobra"
)

type callConfig struct {
	input    inputFlags
	paginate bool
	pages    nifcloud.PaginateConfig
}

func installCallCmd(app *App) {
	var conf callConfig

	cmd := &cobra.Command{
		Use:   "call SERVICE OPERATION",
		Short: "Call an operation",
		Long: `Call an operation of a service and print the parsed response.

OPERATION is the API name, like DescribeInstances, or the method name, like describe_instances.
Parameters are given as a JSON object with --input, or as a JSON or YAML file with --input-file.`,
		Example: `  nifcloud call computing DescribeInstances --region jp-east-1
  nifcloud call storage list_objects --input '{"Bucket": "b1"}' --paginate --query 'Contents.#.Key'`,
		Args: cobra.ExactArgs(2),
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

			if conf.paginate && c.CanPaginate(args[1]) {
				slog.Debug("Paginating", "operation", args[1], "max_items", conf.pages.MaxItems, "page_size", conf.pages.PageSize)
				p, err := c.NewPaginator(args[1], params, conf.pages)
				if err != nil {
					return err
				}
				out, err := p.BuildFullResult(cmd.Context())
				if err != nil {
					return err
				}
				return app.print(out.Result)
			}
			if conf.paginate {
				slog.Warn("Operation cannot be paginated, sending a single request", "operation", args[1])
			}

			out, err := c.Call(cmd.Context(), args[1], params)
			if err != nil {
				return err
			}
			return app.print(out.Result)
		},
	}

	installInputFlags(cmd, &conf.input)
	cmd.Flags().BoolVar(&conf.paginate, "paginate", false, "fetch every page and merge them")
	cmd.Flags().IntVar(&conf.pages.MaxItems, "max-items", 0, "maximum number of items with --paginate")
	cmd.Flags().IntVar(&conf.pages.PageSize, "page-size", 0, "number of items requested per page with --paginate")
	cmd.Flags().StringVar(&conf.pages.StartingToken, "starting-token", "", "NextToken of a previous truncated result, with --paginate")

	app.cmd.AddCommand(cmd)
}

func installInputFlags(cmd *cobra.Command, f *inputFlags) {
	cmd.Flags().StringVar(&f.inline, "input", "", "operation parameters as a JSON object")
	cmd.Flags().StringVar(&f.file, "input-file", "", "JSON or YAML file holding the operation parameters")
	if err := cmd.MarkFlagFilename("input-file", "json", "yaml", "yml"); err != nil {
		slog.Warn("Failed to mark flag as filename", "flag", "input-file", "error", err)
	}
}
