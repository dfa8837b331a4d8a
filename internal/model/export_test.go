package model

import "io/fs"

// WithBuiltin replaces the embedded models, nil disables them.
func WithBuiltin(fsys fs.FS) Options {
	return func(o *options) {
		o.builtin = fsys
	}
}
