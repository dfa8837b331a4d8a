package commands

import (
	"io"

	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
)

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOut redirects the command output.
func (a *App) SetOut(w io.Writer) {
	a.cmd.SetOut(w)
}

// WithSessionOptions adds options to every session created by the app.
func WithSessionOptions(opts ...nifcloud.SessionOption) Options {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}
