package constants

type Option = option

func WithHomeDir(homeDir func() (string, error)) option {
	return func(o *options) {
		o.homeDir = homeDir
	}
}
