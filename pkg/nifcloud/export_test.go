package nifcloud

// WithGetenv replaces the environment lookup of the session.
func WithGetenv(getenv func(string) string) SessionOption {
	return func(o *sessionOptions) {
		o.getenv = getenv
	}
}
