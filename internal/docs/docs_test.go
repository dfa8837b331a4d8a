package docs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/internal/docs"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlineAPI = `{
  "metadata": {"apiVersion": "2024-01-01", "protocol": "rest-json", "serviceFullName": "AWS Example", "endpointPrefix": "example"},
  "documentation": "<p>The AWS example service.</p>",
  "operations": {
    "PutNode": {
      "name": "PutNode",
      "http": {"method": "PUT", "requestUri": "/nodes"},
      "input": {"shape": "PutNodeRequest"},
      "documentation": "<p>Stores a node &amp; its children with AWS.</p>"
    }
  },
  "shapes": {
    "PutNodeRequest": {
      "type": "structure",
      "required": ["Node"],
      "members": {
        "Node": {"shape": "Node", "documentation": "<p>The root node.</p>"},
        "Mode": {"shape": "Mode"}
      }
    },
    "Node": {
      "type": "structure",
      "members": {
        "Name": {"shape": "String"},
        "Children": {"shape": "NodeList"}
      }
    },
    "NodeList": {"type": "list", "member": {"shape": "Node"}},
    "Mode": {"type": "string", "enum": ["fast", "safe"]},
    "String": {"type": "string"}
  }
}`

func TestURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		service string
		want    string
	}{
		"Computing pages live under cp":           {service: "computing", want: "https://pfs.nifcloud.com/api/cp/Op.htm"},
		"Storage pages live under the long name":  {service: "storage", want: "https://pfs.nifcloud.com/api/object-storage-service/Op.htm"},
		"Other services use their name":           {service: "rdb", want: "https://pfs.nifcloud.com/api/rdb/Op.htm"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, docs.URL(tc.service, "Op"))
		})
	}
}

func TestRenderInline(t *testing.T) {
	t.Parallel()

	api, err := model.ParseAPI([]byte(inlineAPI))
	require.NoError(t, err, "Setup: inline model should parse")
	got := docs.New(&model.Service{Name: "example", API: api}).Render()

	assert.Contains(t, got, "# NIFCLOUD Example\n", "Title should be branded")
	assert.Contains(t, got, "The NIFCLOUD example service.", "Service documentation should be branded")
	assert.Contains(t, got, "### put_node\n", "Operations should be listed by method name")
	assert.Contains(t, got, "Stores a node & its children with NIFCLOUD.", "HTML should be stripped")
	assert.Contains(t, got, "See also: [NIFCLOUD API Documentation](https://pfs.nifcloud.com/api/example/PutNode.htm)")
	assert.Contains(t, got, `client.Call(ctx, "PutNode", map[string]any{`)
	assert.Contains(t, got, "/* recursive Node */", "Recursive shapes should be cut")
	assert.Contains(t, got, `"fast|safe"`, "Enums should list their values")
	assert.Contains(t, got, "- **Node** (*map*) **[REQUIRED]** The root node.")
	assert.Contains(t, got, "  - **Children** (*list of map*)", "Nested members should be indented")
	assert.Contains(t, got, "**Returns**\n\nNone", "Operations without output should say so")
	assert.NotContains(t, got, "<p>", "No HTML should be left")
}

func TestRenderBuiltin(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"computing", "storage", "dns"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := model.NewLoader().LoadService(name, "")
			require.NoError(t, err, "Setup: builtin service should load")

			got := docs.New(s).Render()
			for _, m := range s.API.MethodNames() {
				assert.Contains(t, got, "### "+m+"\n", "Every operation should have a section")
			}
			for _, w := range s.WaiterNames() {
				assert.Contains(t, got, "### "+w+"\n", "Every waiter should have a section")
			}
			assert.NotContains(t, got, "AWS", "Documentation should be branded")
		})
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	s, err := model.NewLoader().LoadService("computing", "")
	require.NoError(t, err, "Setup: builtin service should load")

	dir := filepath.Join(t.TempDir(), "out")
	path, err := docs.New(s).WriteFile(dir)
	require.NoError(t, err, "WriteFile should succeed")
	assert.Equal(t, filepath.Join(dir, "computing.md"), path)

	got, err := testutils.GetDirContents(t, dir, 1)
	require.NoError(t, err, "Output directory should be readable")
	require.Len(t, got, 1, "Only the service reference should be written")
	assert.Contains(t, got["computing.md"], "https://pfs.nifcloud.com/api/cp/DescribeInstances.htm")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600), "Setup: could not create blocking file")
	_, err = docs.New(s).WriteFile(blocker)
	require.Error(t, err, "WriteFile should fail when the directory is a file")
}
