package nifcloud

import (
	"time"

	"github.com/norikmb/nifcloud-sdk-go/internal/credentials"
)

// Config holds advanced client settings. Zero values keep the defaults.
type Config struct {
	// MaxAttempts bounds the attempts of one call, retries included.
	MaxAttempts int
	// ConnectTimeout and ReadTimeout default to 60 seconds.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// MaxPoolConnections defaults to 10.
	MaxPoolConnections int
	// ParamValidation disables input validation when set to false.
	ParamValidation *bool
	// RateLimit is a number of requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// SignatureVersion overrides the one of the model.
	SignatureVersion string
	// UserAgentExtra is appended to the User-Agent header.
	UserAgentExtra string
}

type clientOptions struct {
	region      string
	apiVersion  string
	useSSL      bool
	verify      bool
	caBundle    string
	endpointURL string
	credentials credentials.Static
	config      Config
}

// ClientOption configures CreateClient.
type ClientOption func(*clientOptions)

// WithRegion selects the region instead of the environment and config file.
func WithRegion(region string) ClientOption {
	return func(o *clientOptions) {
		o.region = region
	}
}

// WithAPIVersion selects a model version instead of the latest one.
func WithAPIVersion(version string) ClientOption {
	return func(o *clientOptions) {
		o.apiVersion = version
	}
}

// WithUseSSL selects https (the default) or http for resolved endpoints.
func WithUseSSL(useSSL bool) ClientOption {
	return func(o *clientOptions) {
		o.useSSL = useSSL
	}
}

// WithVerify toggles TLS certificate verification.
func WithVerify(verify bool) ClientOption {
	return func(o *clientOptions) {
		o.verify = verify
	}
}

// WithCABundle trusts the PEM certificates of path instead of the system pool.
func WithCABundle(path string) ClientOption {
	return func(o *clientOptions) {
		o.caBundle = path
	}
}

// WithEndpointURL bypasses endpoint resolution.
func WithEndpointURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.endpointURL = url
	}
}

// WithCredentials uses explicit credentials instead of the credential chain.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) ClientOption {
	return func(o *clientOptions) {
		o.credentials = credentials.Static{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    sessionToken,
		}
	}
}

// WithConfig sets advanced settings.
func WithConfig(cfg Config) ClientOption {
	return func(o *clientOptions) {
		o.config = cfg
	}
}
