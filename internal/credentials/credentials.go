// Package credentials resolves NIFCLOUD credentials, profile and region from
// explicit values, the environment and the shared INI files.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/norikmb/nifcloud-sdk-go/internal/fileutils"
	"github.com/ubuntu/decorate"
	"gopkg.in/ini.v1"
)

// Keys read from the shared files.
const (
	keyAccessKeyID     = "nifcloud_access_key_id"
	keySecretAccessKey = "nifcloud_secret_access_key"
	keySessionToken    = "nifcloud_session_token"
	keyRegion          = "region"
)

// Credential sources reported in aws.Credentials.Source.
const (
	SourceStatic      = "StaticCredentials"
	SourceEnvironment = "EnvironmentVariables"
	SourceSharedFile  = "SharedCredentialsFile"
	SourceConfigFile  = "SharedConfigFile"
)

var (
	// ErrNoCredentials is returned when no source provides credentials.
	ErrNoCredentials = errors.New("unable to locate credentials")
	// ErrPartialCredentials is returned when only some of the key pair is set.
	ErrPartialCredentials = errors.New("partial credentials found")
)

// Static is a credential set given explicitly by the caller.
type Static struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (s Static) empty() bool {
	return s.AccessKeyID == "" && s.SecretAccessKey == "" && s.SessionToken == ""
}

func (s Static) validate(where string) error {
	switch {
	case s.AccessKeyID == "" && s.SecretAccessKey == "":
		if s.SessionToken != "" {
			return fmt.Errorf("%w in %s, missing: access key id, secret access key", ErrPartialCredentials, where)
		}
		return nil
	case s.AccessKeyID == "":
		return fmt.Errorf("%w in %s, missing: access key id", ErrPartialCredentials, where)
	case s.SecretAccessKey == "":
		return fmt.Errorf("%w in %s, missing: secret access key", ErrPartialCredentials, where)
	}
	return nil
}

// Chain resolves credentials and configuration for one profile.
type Chain struct {
	profile         string
	credentialsFile string
	configFile      string
	getenv          func(string) string
	log             *slog.Logger
}

type options struct {
	profile         string
	credentialsFile string
	configFile      string
	getenv          func(string) string
	log             *slog.Logger
}

// Options represents an optional function to override Chain default values.
type Options func(*options)

// WithProfile selects the profile instead of NIFCLOUD_PROFILE or default.
func WithProfile(profile string) Options {
	return func(o *options) {
		o.profile = profile
	}
}

// WithCredentialsFile overrides the shared credentials file path.
func WithCredentialsFile(path string) Options {
	return func(o *options) {
		o.credentialsFile = path
	}
}

// WithConfigFile overrides the shared config file path.
func WithConfigFile(path string) Options {
	return func(o *options) {
		o.configFile = path
	}
}

// WithGetenv replaces the environment lookup of the Chain.
func WithGetenv(getenv func(string) string) Options {
	return func(o *options) {
		o.getenv = getenv
	}
}

// WithLogger sets the logger of the Chain.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// NewChain creates a Chain, reading the profile and file locations from the environment when not set.
func NewChain(args ...Options) *Chain {
	opts := options{
		getenv: os.Getenv,
		log:    slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	c := &Chain{
		profile:         opts.profile,
		credentialsFile: opts.credentialsFile,
		configFile:      opts.configFile,
		getenv:          opts.getenv,
		log:             opts.log,
	}
	if c.profile == "" {
		c.profile = c.getenv(constants.EnvProfile)
	}
	if c.profile == "" {
		c.profile = constants.DefaultProfile
	}
	if c.credentialsFile == "" {
		c.credentialsFile = c.getenv(constants.EnvSharedCredentialsFile)
	}
	if c.credentialsFile == "" {
		c.credentialsFile = constants.GetDefaultCredentialsPath()
	}
	if c.configFile == "" {
		c.configFile = c.getenv(constants.EnvConfigFile)
	}
	if c.configFile == "" {
		c.configFile = constants.GetDefaultConfigPath()
	}
	c.credentialsFile = expandHome(c.credentialsFile)
	c.configFile = expandHome(c.configFile)
	return c
}

// Profile is the profile in use.
func (c *Chain) Profile() string {
	return c.profile
}

// Provider returns a cached provider for explicit when set, or for the chain otherwise.
func (c *Chain) Provider(explicit Static) (aws.CredentialsProvider, error) {
	if !explicit.empty() {
		if err := explicit.validate("explicit parameters"); err != nil {
			return nil, err
		}
		return aws.NewCredentialsCache(awscreds.NewStaticCredentialsProvider(
			explicit.AccessKeyID, explicit.SecretAccessKey, explicit.SessionToken)), nil
	}
	return aws.NewCredentialsCache(chainProvider{c}), nil
}

type chainProvider struct {
	c *Chain
}

// Retrieve walks the environment, the shared credentials file and the config file.
func (p chainProvider) Retrieve(context.Context) (aws.Credentials, error) {
	return p.c.Retrieve()
}

// Retrieve returns the first complete credentials found in the chain.
func (c *Chain) Retrieve() (creds aws.Credentials, err error) {
	defer decorate.OnError(&err, "could not resolve credentials for profile %q", c.profile)

	env := Static{
		AccessKeyID:     c.getenv(constants.EnvAccessKeyID),
		SecretAccessKey: c.getenv(constants.EnvSecretAccessKey),
		SessionToken:    c.getenv(constants.EnvSessionToken),
	}
	if env.AccessKeyID != "" || env.SecretAccessKey != "" {
		if err := env.validate("environment"); err != nil {
			return aws.Credentials{}, err
		}
		c.log.Info("Found credentials in environment variables")
		return env.credentials(SourceEnvironment), nil
	}

	sec, err := c.section(c.credentialsFile, c.profile)
	if err != nil {
		return aws.Credentials{}, err
	}
	if s, ok := fromSection(sec); ok {
		if err := s.validate(c.credentialsFile); err != nil {
			return aws.Credentials{}, err
		}
		c.log.Info("Found credentials in shared credentials file", "file", c.credentialsFile)
		return s.credentials(SourceSharedFile), nil
	}

	sec, err = c.section(c.configFile, c.configSectionName())
	if err != nil {
		return aws.Credentials{}, err
	}
	if s, ok := fromSection(sec); ok {
		if err := s.validate(c.configFile); err != nil {
			return aws.Credentials{}, err
		}
		c.log.Info("Found credentials in config file", "file", c.configFile)
		return s.credentials(SourceConfigFile), nil
	}

	return aws.Credentials{}, ErrNoCredentials
}

// Region returns explicit, or the region from NIFCLOUD_DEFAULT_REGION, or from the config file.
// It returns an empty string when none is configured.
func (c *Chain) Region(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if r := c.getenv(constants.EnvDefaultRegion); r != "" {
		return r, nil
	}
	sec, err := c.section(c.configFile, c.configSectionName())
	if err != nil {
		return "", err
	}
	if sec == nil {
		return "", nil
	}
	return sec.Key(keyRegion).String(), nil
}

// ConfigValue returns key from the profile section of the config file, or an empty string.
func (c *Chain) ConfigValue(key string) (string, error) {
	sec, err := c.section(c.configFile, c.configSectionName())
	if err != nil || sec == nil {
		return "", err
	}
	return sec.Key(key).String(), nil
}

func (c *Chain) configSectionName() string {
	if c.profile == constants.DefaultProfile {
		return constants.DefaultProfile
	}
	return "profile " + c.profile
}

// section returns the named section of the INI file at path, or nil when the file or section does not exist.
func (c *Chain) section(path, name string) (*ini.Section, error) {
	if path == "" {
		return nil, nil
	}
	exists, err := fileutils.FileExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		c.log.Debug("Shared file does not exist", "file", path)
		return nil, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if !f.HasSection(name) {
		return nil, nil
	}
	return f.Section(name), nil
}

func fromSection(sec *ini.Section) (Static, bool) {
	if sec == nil {
		return Static{}, false
	}
	s := Static{
		AccessKeyID:     sec.Key(keyAccessKeyID).String(),
		SecretAccessKey: sec.Key(keySecretAccessKey).String(),
		SessionToken:    sec.Key(keySessionToken).String(),
	}
	return s, s.AccessKeyID != "" || s.SecretAccessKey != ""
}

func (s Static) credentials(source string) aws.Credentials {
	return aws.Credentials{
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		SessionToken:    s.SessionToken,
		Source:          source,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
