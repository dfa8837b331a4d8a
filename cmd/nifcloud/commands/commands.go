// Package commands implements the nifcloud command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/cli"
	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/norikmb/nifcloud-sdk-go/internal/output"
	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	sessionOpts []nifcloud.SessionOption
}

// appConfig holds the global settings, from flags, environment or configuration file.
type appConfig struct {
	Verbosity       int     `mapstructure:"verbose"`
	JSONLogs        bool    `mapstructure:"json-logs"`
	Profile         string  `mapstructure:"profile"`
	Region          string  `mapstructure:"region"`
	EndpointURL     string  `mapstructure:"endpoint-url"`
	APIVersion      string  `mapstructure:"api-version"`
	Output          string  `mapstructure:"output"`
	Query           string  `mapstructure:"query"`
	NoVerifySSL     bool    `mapstructure:"no-verify-ssl"`
	CABundle        string  `mapstructure:"ca-bundle"`
	CredentialsFile string  `mapstructure:"credentials-file"`
	DataPath        string  `mapstructure:"data-path"`
	MaxAttempts     int     `mapstructure:"max-attempts"`
	RateLimit       float64 `mapstructure:"rate-limit"`

	format output.Format
}

type options struct {
	sessionOpts []nifcloud.SessionOption
}

// Options represents an optional function to override App default values.
type Options func(*options)

// New creates a new App instance with default values.
func New(args ...Options) (*App, error) {
	var opts options
	for _, opt := range args {
		opt(&opts)
	}

	a := App{sessionOpts: opts.sessionOpts}
	a.cmd = &cobra.Command{
		Use:   constants.CmdName,
		Short: "NIFCLOUD command line interface",
		Long: `Call the NIFCLOUD APIs from their service models.

Credentials are read from the NIFCLOUD_ACCESS_KEY_ID and NIFCLOUD_SECRET_ACCESS_KEY
environment variables, or from the shared credentials file of the selected profile.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			format, err := output.ParseFormat(a.config.Output)
			if err != nil {
				a.cmd.SilenceUsage = false
				return err
			}
			a.config.format = format

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)
			slog.Debug("Got app config", "profile", a.config.Profile, "region", a.config.Region, "output", a.config.Output)
			return nil
		},
	}
	a.viper = viper.New()

	installRootFlags(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installServicesCmd(&a)
	installRegionsCmd(&a)
	installOperationsCmd(&a)
	installCallCmd(&a)
	installWaitCmd(&a)
	installDocsCmd(&a)
	installVersionCmd(&a)

	return &a, nil
}

func installRootFlags(app *App) {
	flags := app.cmd.PersistentFlags()

	flags.CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	flags.BoolVar(&app.config.JSONLogs, "json-logs", false, "write logs as JSON")
	flags.StringVar(&app.config.Profile, "profile", "", "profile of the shared credentials and config files")
	flags.StringVar(&app.config.Region, "region", "", "region to send requests to")
	flags.StringVar(&app.config.EndpointURL, "endpoint-url", "", "override the resolved endpoint URL")
	flags.StringVar(&app.config.APIVersion, "api-version", "", "model version to use instead of the latest one")
	flags.StringVarP(&app.config.Output, "output", "o", string(output.FormatJSON),
		fmt.Sprintf("output format (%s)", strings.Join(formatNames(), ", ")))
	flags.StringVar(&app.config.Query, "query", "", "gjson path selecting part of the result")
	flags.BoolVar(&app.config.NoVerifySSL, "no-verify-ssl", false, "do not verify TLS certificates")
	flags.StringVar(&app.config.CABundle, "ca-bundle", "", "PEM bundle of the certificates to trust")
	flags.StringVar(&app.config.CredentialsFile, "credentials-file", "", "shared credentials file")
	flags.StringVar(&app.config.DataPath, "data-path", "", "extra model directories, separated by "+string(filepath.ListSeparator))
	flags.IntVar(&app.config.MaxAttempts, "max-attempts", 0, "maximum attempts of one request, retries included")
	flags.Float64Var(&app.config.RateLimit, "rate-limit", 0, "maximum requests per second, 0 for no limit")

	for _, f := range []string{"ca-bundle", "credentials-file"} {
		if err := app.cmd.MarkPersistentFlagFilename(f); err != nil {
			slog.Warn("Failed to mark flag as filename", "flag", f, "error", err)
		}
	}
}

func formatNames() []string {
	names := make([]string, 0, len(output.Formats))
	for _, f := range output.Formats {
		names = append(names, string(f))
	}
	return names
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run(ctx context.Context) error {
	return a.cmd.ExecuteContext(ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) session() (*nifcloud.Session, error) {
	opts := []nifcloud.SessionOption{
		nifcloud.WithLogger(slog.Default()),
		nifcloud.WithProfile(a.config.Profile),
		nifcloud.WithCredentialsFile(a.config.CredentialsFile),
	}
	if a.config.DataPath != "" {
		opts = append(opts, nifcloud.WithDataPath(filepath.SplitList(a.config.DataPath)...))
	}
	return nifcloud.NewSession(append(opts, a.sessionOpts...)...)
}

func (a *App) client(cmd *cobra.Command, service string) (*nifcloud.Client, error) {
	s, err := a.session()
	if err != nil {
		return nil, err
	}
	return s.CreateClient(service,
		nifcloud.WithRegion(a.config.Region),
		nifcloud.WithAPIVersion(a.config.APIVersion),
		nifcloud.WithEndpointURL(a.config.EndpointURL),
		nifcloud.WithVerify(!a.config.NoVerifySSL),
		nifcloud.WithCABundle(a.config.CABundle),
		nifcloud.WithConfig(nifcloud.Config{
			MaxAttempts:    a.config.MaxAttempts,
			RateLimit:      a.config.RateLimit,
			UserAgentExtra: "command/" + cmd.Name(),
		}),
	)
}

func (a *App) print(v any) error {
	return output.Write(a.cmd.OutOrStdout(), v, a.config.format, a.config.Query)
}
