// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default shared configuration paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// Version is the version of the application.
	Version = "1.17.0"

	// manGeneration is whenever or not man pages are being generated.
	manGeneration = "false"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "nifcloud"

	// UserAgentName is the product token sent first in the User-Agent header.
	UserAgentName = "nifcloud"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultProfile is the profile used when none is configured.
	DefaultProfile = "default"

	// DefaultAppFolder is the name of the folder, under the user home, holding shared files.
	DefaultAppFolder = ".nifcloud"

	// CredentialsFileName is the base name of the shared credentials file.
	CredentialsFileName = "credentials"

	// ConfigFileName is the base name of the shared config file.
	ConfigFileName = "config"

	// DocBaseURL is the root of the NIFCLOUD API reference.
	DocBaseURL = "https://pfs.nifcloud.com/api"
)

// Environment variables read by the credentials and configuration chain.
const (
	EnvAccessKeyID           = "NIFCLOUD_ACCESS_KEY_ID"
	EnvSecretAccessKey       = "NIFCLOUD_SECRET_ACCESS_KEY"
	EnvSessionToken          = "NIFCLOUD_SESSION_TOKEN"
	EnvDefaultRegion         = "NIFCLOUD_DEFAULT_REGION"
	EnvProfile               = "NIFCLOUD_PROFILE"
	EnvSharedCredentialsFile = "NIFCLOUD_SHARED_CREDENTIALS_FILE"
	EnvConfigFile            = "NIFCLOUD_CONFIG_FILE"
	EnvDataPath              = "NIFCLOUD_DATA_PATH"
)

type options struct {
	homeDir func() (string, error)
}

type option func(*options)

// GetDefaultCredentialsPath is the default path to the shared credentials file.
func GetDefaultCredentialsPath(opts ...option) string {
	return defaultSharedPath(CredentialsFileName, opts...)
}

// GetDefaultConfigPath is the default path to the shared config file.
func GetDefaultConfigPath(opts ...option) string {
	return defaultSharedPath(ConfigFileName, opts...)
}

func defaultSharedPath(name string, opts ...option) string {
	if manGeneration == "true" {
		return ""
	}

	o := options{homeDir: os.UserHomeDir}
	for _, opt := range opts {
		opt(&o)
	}

	home := getBaseDir(o.homeDir)
	if home == "" {
		return ""
	}
	return filepath.Join(home, DefaultAppFolder, name)
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
