package nifcloud_test

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/internal/testutils"
	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configFile = `[default]
region = jp-west-1
max_attempts = 2

[profile broken]
max_attempts = many
`

// newSession returns a session isolated from the environment and home directory of the host.
func newSession(t *testing.T, env map[string]string, opts ...nifcloud.SessionOption) *nifcloud.Session {
	t.Helper()

	dir := t.TempDir()
	opts = append([]nifcloud.SessionOption{
		nifcloud.WithCredentialsFile(filepath.Join(dir, "credentials")),
		nifcloud.WithConfigFile(filepath.Join(dir, "config")),
		nifcloud.WithGetenv(func(k string) string { return env[k] }),
	}, opts...)
	s, err := nifcloud.NewSession(opts...)
	require.NoError(t, err, "Setup: session should be created")
	return s
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	s := newSession(t, nil)

	assert.Equal(t, "default", s.Profile())
	assert.Equal(t, []string{"computing", "devops", "dns", "ess", "nas", "rdb", "storage"}, s.AvailableServices())
	assert.Contains(t, s.AvailableRegions("computing"), "jp-east-1")
	assert.ElementsMatch(t, []string{"jp-east-1", "jp-west-1"}, s.AvailableRegions("storage"))
	assert.Regexp(t, regexp.MustCompile(`^nifcloud/\S+ aws-sdk-go-v2/\S+ Go/\S+$`), s.UserAgent())
}

func TestNewSessionDataPath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fromEnv bool
	}{
		"From option":      {},
		"From environment": {fromEnv: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutils.WriteFile(t, dir, "extra/v1/service-2.json", `{"metadata": {"apiVersion": "v1", "protocol": "rest-json",
"endpointPrefix": "extra", "signatureVersion": "v4"}, "operations": {}, "shapes": {}}`)

			var opts []nifcloud.SessionOption
			env := map[string]string{}
			if tc.fromEnv {
				env["NIFCLOUD_DATA_PATH"] = dir
			} else {
				opts = append(opts, nifcloud.WithDataPath(dir))
			}
			s := newSession(t, env, opts...)

			assert.Contains(t, s.AvailableServices(), "extra")
			assert.Equal(t, []string{"v1"}, s.AvailableAPIVersions("extra"))
		})
	}
}

func TestCreateClient(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		service string
		env     map[string]string
		config  string
		opts    []nifcloud.ClientOption
		profile string

		wantRegion      string
		wantEndpoint    string
		wantAPIVersion  string
		wantMaxAttempts int
		wantErr         error
		wantAnyErr      bool
	}{
		"Computing with explicit region": {
			service:      "computing",
			opts:         []nifcloud.ClientOption{nifcloud.WithRegion("jp-east-2")},
			wantRegion:   "jp-east-2",
			wantEndpoint: "https://jp-east-2.computing.api.nifcloud.com",
		},
		"Region from environment": {
			service:      "rdb",
			env:          map[string]string{"NIFCLOUD_DEFAULT_REGION": "jp-east-4"},
			wantRegion:   "jp-east-4",
			wantEndpoint: "https://rdb.jp-east-4.api.nifcloud.com",
		},
		"Region and max attempts from config file": {
			service:         "computing",
			config:          configFile,
			wantRegion:      "jp-west-1",
			wantEndpoint:    "https://jp-west-1.computing.api.nifcloud.com",
			wantMaxAttempts: 2,
		},
		"Global service without region": {
			service:      "dns",
			wantRegion:   "jp-east-1",
			wantEndpoint: "https://dns.api.nifcloud.com",
		},
		"Plain http": {
			service:      "storage",
			opts:         []nifcloud.ClientOption{nifcloud.WithRegion("jp-east-1"), nifcloud.WithUseSSL(false)},
			wantRegion:   "jp-east-1",
			wantEndpoint: "http://jp-east-1.storage.api.nifcloud.com",
		},
		"Explicit endpoint and api version": {
			service: "computing",
			opts: []nifcloud.ClientOption{
				nifcloud.WithRegion("jp-east-1"),
				nifcloud.WithEndpointURL("http://localhost:8080"),
				nifcloud.WithAPIVersion("3.0"),
				nifcloud.WithConfig(nifcloud.Config{MaxAttempts: 7}),
			},
			wantRegion:      "jp-east-1",
			wantEndpoint:    "http://localhost:8080",
			wantAPIVersion:  "3.0",
			wantMaxAttempts: 7,
		},

		"Error on unknown service": {service: "nope", wantErr: nifcloud.ErrUnknownService},
		"Error on unknown api version": {
			service: "computing",
			opts:    []nifcloud.ClientOption{nifcloud.WithAPIVersion("0.1")},
			wantErr: nifcloud.ErrUnknownAPIVersion,
		},
		"Error on regional service without region": {service: "computing", wantErr: nifcloud.ErrNoRegion},
		"Error on partial explicit credentials": {
			service:    "computing",
			opts:       []nifcloud.ClientOption{nifcloud.WithRegion("jp-east-1"), nifcloud.WithCredentials("key", "", "")},
			wantAnyErr: true,
		},
		"Error on invalid max attempts in config file": {
			service:    "computing",
			config:     configFile,
			profile:    "broken",
			opts:       []nifcloud.ClientOption{nifcloud.WithRegion("jp-east-1")},
			wantAnyErr: true,
		},
		"Error on missing CA bundle": {
			service:    "computing",
			opts:       []nifcloud.ClientOption{nifcloud.WithRegion("jp-east-1"), nifcloud.WithCABundle("/does/not/exist.pem")},
			wantAnyErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var opts []nifcloud.SessionOption
			if tc.config != "" {
				opts = append(opts, nifcloud.WithConfigFile(testutils.WriteFile(t, t.TempDir(), "config", tc.config)))
			}
			if tc.profile != "" {
				opts = append(opts, nifcloud.WithProfile(tc.profile))
			}
			s := newSession(t, tc.env, opts...)

			c, err := s.CreateClient(tc.service, append([]nifcloud.ClientOption{nifcloud.WithCredentials("AKID", "secret", "")}, tc.opts...)...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "CreateClient should fail with the expected error")
				return
			}
			if tc.wantAnyErr {
				require.Error(t, err, "CreateClient should fail")
				return
			}
			require.NoError(t, err, "CreateClient should succeed")

			meta := c.Meta()
			assert.Equal(t, tc.service, meta.ServiceName)
			assert.Equal(t, tc.wantRegion, meta.Region)
			assert.Equal(t, tc.wantEndpoint, meta.EndpointURL)
			if tc.wantAPIVersion != "" {
				assert.Equal(t, tc.wantAPIVersion, meta.APIVersion)
			}
			if tc.wantMaxAttempts != 0 {
				assert.Equal(t, tc.wantMaxAttempts, meta.MaxAttempts)
			}
		})
	}
}

func TestDocumentation(t *testing.T) {
	t.Parallel()

	s := newSession(t, nil)

	md, err := s.Documentation("computing", "")
	require.NoError(t, err, "Documentation should render")
	assert.Contains(t, md, "describe_instances")

	path, err := s.WriteDocumentation("dns", "", t.TempDir())
	require.NoError(t, err, "WriteDocumentation should succeed")
	assert.Equal(t, "dns.md", filepath.Base(path))

	_, err = s.Documentation("nope", "")
	require.ErrorIs(t, err, nifcloud.ErrUnknownService)
}
