package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func installServicesCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the services with a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session()
			if err != nil {
				return err
			}
			services := make([]map[string]any, 0)
			for _, name := range s.AvailableServices() {
				services = append(services, map[string]any{
					"Name":        name,
					"APIVersions": s.AvailableAPIVersions(name),
				})
			}
			return app.print(map[string]any{"Services": services})
		},
	}
	app.cmd.AddCommand(cmd)
}

func installRegionsCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "regions SERVICE",
		Short: "List the regions of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session()
			if err != nil {
				return err
			}
			regions := s.AvailableRegions(args[0])
			if len(regions) == 0 {
				return fmt.Errorf("no known region for service %q", args[0])
			}
			return app.print(map[string]any{"Regions": regions})
		},
	}
	app.cmd.AddCommand(cmd)
}

func installOperationsCmd(app *App) {
	var methods bool

	cmd := &cobra.Command{
		Use:   "operations SERVICE",
		Short: "List the operations, paginators and waiters of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session()
			if err != nil {
				return err
			}
			info, err := s.ServiceInfo(args[0], app.config.APIVersion)
			if err != nil {
				return err
			}

			ops := info.Operations
			if methods {
				ops = info.Methods
			}
			return app.print(map[string]any{
				"Service":    info.Name,
				"APIVersion": info.APIVersion,
				"Operations": ops,
				"Paginators": info.Paginators,
				"Waiters":    info.Waiters,
			})
		},
	}
	cmd.Flags().BoolVar(&methods, "methods", false, "list method names, like describe_instances, instead of API names")
	app.cmd.AddCommand(cmd)
}
