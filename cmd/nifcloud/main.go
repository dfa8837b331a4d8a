// Main package for the nifcloud command line tool.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/norikmb/nifcloud-sdk-go/cmd/nifcloud/commands"
	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
)

//go:generate go run ../generate_completion_documentation.go completion ../../generated
//go:generate go run -ldflags=-X=github.com/norikmb/nifcloud-sdk-go/internal/constants.manGeneration=true ../generate_completion_documentation.go man ../../generated

func main() {
	slog.SetLogLoggerLevel(constants.DefaultLogLevel)

	a, err := commands.New()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := run(ctx, a)
	stop()
	os.Exit(rc)
}

type app interface {
	Run(ctx context.Context) error
	UsageError() bool
}

func run(ctx context.Context, a app) int {
	if err := a.Run(ctx); err != nil {
		slog.Error(err.Error())

		if a.UsageError() {
			return 2
		}
		return 1
	}

	return 0
}
