package commands_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/cmd/nifcloud/commands"
	"github.com/norikmb/nifcloud-sdk-go/internal/testutils"
	"github.com/norikmb/nifcloud-sdk-go/pkg/nifcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const credentials = `[default]
nifcloud_access_key_id = AKID
nifcloud_secret_access_key = secret
`

const regionsBody = `<DescribeRegionsResponse><requestId>req-1</requestId><regionInfo>
<item><regionName>jp-east-1</regionName><isDefault>true</isDefault></item>
<item><regionName>jp-west-1</regionName><isDefault>false</isDefault></item>
</regionInfo></DescribeRegionsResponse>`

// newAppForTests returns an app isolated from the shared files of the host, and the buffer receiving its output.
func newAppForTests(t *testing.T, args ...string) (*commands.App, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	creds := testutils.WriteFile(t, dir, "credentials", credentials)
	args = append(args, "--credentials-file", creds)

	app, err := commands.New(commands.WithSessionOptions(nifcloud.WithConfigFile(filepath.Join(dir, "config"))))
	require.NoError(t, err, "Setup: could not create app")

	var out bytes.Buffer
	app.SetOut(&out)
	app.SetArgs(args...)
	return app, &out
}

func TestServices(t *testing.T) {
	t.Parallel()

	app, out := newAppForTests(t, "services", "--query", "Services.#.Name")
	require.NoError(t, app.Run(t.Context()))

	var got []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), "Output should be JSON")
	assert.Equal(t, []string{"computing", "devops", "dns", "ess", "nas", "rdb", "storage"}, got)
}

func TestRegions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		service string

		want    []string
		wantErr bool
	}{
		"Storage regions":          {service: "storage", want: []string{"jp-east-1", "jp-west-1"}},
		"Error on unknown service": {service: "nope", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app, out := newAppForTests(t, "regions", tc.service, "--query", "Regions")
			err := app.Run(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				assert.False(t, app.UsageError(), "Unknown service is not a usage error")
				return
			}
			require.NoError(t, err)

			var got []string
			require.NoError(t, json.Unmarshal(out.Bytes(), &got), "Output should be JSON")
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestOperations(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args []string

		wantOperation string
		wantWaiter    string
		wantErr       bool
		wantUsageErr  bool
	}{
		"API names":    {args: []string{"operations", "computing"}, wantOperation: "DescribeInstances", wantWaiter: "InstanceRunning"},
		"Method names": {args: []string{"operations", "computing", "--methods"}, wantOperation: "describe_instances", wantWaiter: "InstanceRunning"},
		"YAML output":  {args: []string{"operations", "computing", "-o", "yaml"}, wantOperation: "DescribeInstances", wantWaiter: "InstanceRunning"},

		"Error on unknown service":       {args: []string{"operations", "nope"}, wantErr: true},
		"Error on unknown api version":   {args: []string{"operations", "computing", "--api-version", "0.1"}, wantErr: true},
		"Usage error on missing service": {args: []string{"operations"}, wantErr: true, wantUsageErr: true},
		"Usage error on bad output":      {args: []string{"operations", "computing", "--output", "xml"}, wantErr: true, wantUsageErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app, out := newAppForTests(t, tc.args...)
			err := app.Run(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantUsageErr, app.UsageError())
				return
			}
			require.NoError(t, err)

			var got struct {
				Operations []string `yaml:"Operations"`
				Waiters    []string `yaml:"Waiters"`
			}
			require.NoError(t, yaml.Unmarshal(out.Bytes(), &got), "Output should be JSON or YAML")
			assert.Contains(t, got.Operations, tc.wantOperation)
			assert.Contains(t, got.Waiters, tc.wantWaiter)
		})
	}
}

func TestCall(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		operation string
		args      []string
		input     string

		wantOutput   string
		wantRegions  []string
		wantErr      bool
		wantUsageErr bool
	}{
		"API name":                   {args: []string{"--query", "RegionInfo.0.RegionName"}, wantOutput: `"jp-east-1"`},
		"Method name":                {operation: "describe_regions", args: []string{"--query", "ResponseMetadata.RequestId"}, wantOutput: `"req-1"`},
		"Inline input":               {args: []string{"--input", `{"RegionName": ["jp-west-1"]}`, "--query", "RegionInfo.#"}, wantOutput: "2", wantRegions: []string{"jp-west-1"}},
		"Input file":                 {input: "RegionName:\n  - jp-east-1\n  - jp-west-1\n", args: []string{"--query", "RegionInfo.#"}, wantOutput: "2", wantRegions: []string{"jp-east-1", "jp-west-1"}},
		"Table output":               {args: []string{"--output", "table", "--query", "RegionInfo"}, wantOutput: "jp-west-1"},
		"TOML output":                {args: []string{"--output", "toml", "--query", "RegionInfo.0"}, wantOutput: `RegionName = "jp-east-1"`},
		"Paginate without paginator": {args: []string{"--paginate", "--query", "RegionInfo.#"}, wantOutput: "2"},

		"Error on invalid parameter":   {args: []string{"--input", `{"Nope": 1}`}, wantErr: true},
		"Usage error on invalid input": {args: []string{"--input", `[1]`}, wantErr: true, wantUsageErr: true},
		"Usage error on both inputs":   {input: "{}", args: []string{"--input", `{}`}, wantErr: true, wantUsageErr: true},
		"Usage error on unknown flag":  {args: []string{"--nope"}, wantErr: true, wantUsageErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := testutils.NewAPIServer(t, testutils.Response{Body: regionsBody})
			op := tc.operation
			if op == "" {
				op = "DescribeRegions"
			}
			args := append([]string{"call", "computing", op, "--region", "jp-east-1", "--endpoint-url", srv.URL}, tc.args...)
			if tc.input != "" {
				args = append(args, "--input-file", testutils.WriteFile(t, t.TempDir(), "input.yaml", tc.input))
			}

			app, out := newAppForTests(t, args...)
			err := app.Run(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantUsageErr, app.UsageError())
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tc.wantOutput)

			req := srv.LastRequest(t)
			assert.Equal(t, "DescribeRegions", req.Form.Get("Action"))
			assert.Contains(t, req.Header.Get("User-Agent"), "command/call")
			for i, r := range tc.wantRegions {
				assert.Equal(t, r, req.Form.Get("RegionName."+strconv.Itoa(i+1)))
			}
		})
	}
}

func TestCallServiceError(t *testing.T) {
	t.Parallel()

	srv := testutils.NewAPIServer(t, testutils.Response{
		Status: http.StatusBadRequest,
		Body: `<Response><Errors><Error><Code>Client.InvalidParameterNotFound.Instance</Code>
<Message>The instance does not exist.</Message></Error></Errors><RequestID>req-2</RequestID></Response>`,
	})
	app, _ := newAppForTests(t, "call", "computing", "DescribeInstances", "--region", "jp-east-1", "--endpoint-url", srv.URL, "--max-attempts", "1")

	err := app.Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.InvalidParameterNotFound.Instance")
	assert.False(t, app.UsageError(), "Service errors are not usage errors")
}

func TestCallPaginate(t *testing.T) {
	t.Parallel()

	srv := testutils.NewAPIServer(t,
		testutils.Response{Body: `<ListBucketResult><IsTruncated>true</IsTruncated>
<Contents><Key>a</Key></Contents><Contents><Key>b</Key></Contents></ListBucketResult>`},
		testutils.Response{Body: `<ListBucketResult><IsTruncated>false</IsTruncated>
<Contents><Key>c</Key></Contents></ListBucketResult>`},
	)
	app, out := newAppForTests(t, "call", "storage", "list_objects", "--region", "jp-east-1", "--endpoint-url", srv.URL,
		"--input", `{"Bucket": "b1"}`, "--paginate", "--query", "Contents.#.Key")
	require.NoError(t, app.Run(t.Context()))

	var got []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), "Output should be JSON")
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Len(t, srv.Requests(), 2)
}

func TestWait(t *testing.T) {
	t.Parallel()

	const instances = `<DescribeInstancesResponse><reservationSet><item><instancesSet><item>
<instanceId>web1</instanceId><instanceState><name>%s</name></instanceState></item></instancesSet></item></reservationSet></DescribeInstancesResponse>`

	tests := map[string]struct {
		waiter string
		states []string
		input  string

		wantErr      bool
		wantUsageErr bool
	}{
		"Success":                 {waiter: "InstanceRunning", states: []string{"pending", "running"}},
		"Error on failure state":  {waiter: "InstanceRunning", states: []string{"warning"}, wantErr: true},
		"Error on max attempts":   {waiter: "InstanceStopped", states: []string{"running"}, wantErr: true},
		"Error on unknown waiter": {waiter: "Nope", states: []string{"running"}, wantErr: true},

		"Usage error on both inputs": {waiter: "InstanceRunning", input: "{}", wantErr: true, wantUsageErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var responses []testutils.Response
			for _, s := range tc.states {
				responses = append(responses, testutils.Response{Body: strings.Replace(instances, "%s", s, 1)})
			}
			srv := testutils.NewAPIServer(t, responses...)

			args := []string{"wait", "computing", tc.waiter, "--region", "jp-east-1", "--endpoint-url", srv.URL,
				"--input", `{"InstanceId": ["web1"]}`, "--delay", "1ms", "--attempts", "3"}
			if tc.input != "" {
				args = append(args, "--input-file", testutils.WriteFile(t, t.TempDir(), "input.json", tc.input))
			}

			app, out := newAppForTests(t, args...)
			err := app.Run(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantUsageErr, app.UsageError())
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "running")
		})
	}
}

func TestDocs(t *testing.T) {
	t.Parallel()

	t.Run("To standard output", func(t *testing.T) {
		t.Parallel()

		app, out := newAppForTests(t, "docs", "computing")
		require.NoError(t, app.Run(t.Context()))
		assert.Contains(t, out.String(), "describe_instances")
		assert.Contains(t, out.String(), "https://pfs.nifcloud.com/api/cp/DescribeInstances.htm")
	})

	t.Run("To directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		app, out := newAppForTests(t, "docs", "storage", "--dir", dir)
		require.NoError(t, app.Run(t.Context()))

		path := filepath.Join(dir, "storage.md")
		assert.Equal(t, path, strings.TrimSpace(out.String()))
		data, err := os.ReadFile(path)
		require.NoError(t, err, "Reference should be written")
		assert.Contains(t, string(data), "object-storage-service")
	})
}

func TestVersion(t *testing.T) {
	t.Parallel()

	app, out := newAppForTests(t, "version")
	require.NoError(t, app.Run(t.Context()))
	assert.True(t, strings.HasPrefix(out.String(), "nifcloud\t"), "Version should start with the command name")
	assert.Contains(t, out.String(), "aws-sdk-go-v2/")
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	srv := testutils.NewAPIServer(t, testutils.Response{Body: regionsBody})
	conf := testutils.WriteFile(t, t.TempDir(), "nifcloud.yaml", "region: jp-east-1\nendpoint-url: "+srv.URL+"\noutput: yaml\n")

	app, out := newAppForTests(t, "call", "computing", "DescribeRegions", "--config", conf, "--query", "RegionInfo.1")
	require.NoError(t, app.Run(t.Context()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got), "Output should be YAML")
	assert.Equal(t, "jp-west-1", got["RegionName"])
	assert.Len(t, srv.Requests(), 1)
}
