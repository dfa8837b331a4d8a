package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/stretchr/testify/require"
)

const sampleAPI = `{
  "metadata": {"apiVersion": "2020-01-01", "protocol": "query", "signatureVersion": "v2"},
  "operations": {
    "DescribeThings": {
      "http": {"method": "POST", "requestUri": "/api/"},
      "input": {"shape": "DescribeThingsRequest"},
      "output": {"shape": "DescribeThingsResult", "resultWrapper": "DescribeThingsResult"}
    },
    "DeleteThing": {"input": {"shape": "DescribeThingsRequest"}}
  },
  "shapes": {
    "DescribeThingsRequest": {
      "type": "structure",
      "required": ["Zeta"],
      "members": {
        "Zeta": {"shape": "String"},
        "Alpha": {"shape": "Names", "locationName": "alpha"},
        "Mid": {"shape": "Tagged"}
      }
    },
    "DescribeThingsResult": {"type": "structure", "members": {}},
    "Names": {"type": "list", "member": {"shape": "String", "locationName": "item"}, "flattened": true},
    "Tagged": {"type": "string", "locationName": "tagged", "xmlNamespace": "urn:test"},
    "String": {"type": "string"}
  }
}`

func TestParseAPI(t *testing.T) {
	t.Parallel()

	api, err := model.ParseAPI([]byte(sampleAPI))
	require.NoError(t, err, "ParseAPI should not return an error")

	op, ok := api.Operation("DescribeThings")
	require.True(t, ok, "Operation should be found by API name")
	require.Equal(t, "DescribeThings", op.Name, "Operation name should default to its key")

	byMethod, ok := api.Operation("describe_things")
	require.True(t, ok, "Operation should be found by method name")
	require.Same(t, op, byMethod, "Both lookups should return the same operation")

	del, ok := api.Operation("DeleteThing")
	require.True(t, ok, "DeleteThing should exist")
	require.Equal(t, "POST", del.HTTP.Method, "Method should default to POST")
	require.Equal(t, "/", del.HTTP.RequestURI, "Request URI should default to /")

	require.Equal(t, []string{"DeleteThing", "DescribeThings"}, api.OperationNames(), "OperationNames should be sorted")
	require.Equal(t, []string{"delete_thing", "describe_things"}, api.MethodNames(), "MethodNames should be sorted")

	in := op.Input.Shape
	require.Equal(t, []string{"Zeta", "Alpha", "Mid"}, in.Members.Names(), "Members should keep declaration order")
	require.True(t, in.IsRequired("Zeta"), "Zeta should be required")
	require.False(t, in.IsRequired("Alpha"), "Alpha should not be required")

	alpha, _ := in.Members.Get("Alpha")
	require.Equal(t, model.TypeList, alpha.Type(), "Alpha should reference a list")
	require.True(t, alpha.Flattened, "Flattened trait should be merged from the target shape")
	require.Equal(t, "alpha", alpha.LocationName, "Reference locationName should win over the shape one")
	require.Equal(t, "item", alpha.Shape.Member.LocationName, "List member should keep its locationName")

	mid, _ := in.Members.Get("Mid")
	require.Equal(t, "tagged", mid.LocationName, "locationName should be merged from the target shape")
	require.Equal(t, "urn:test", mid.XMLNamespace.URI, "Bare string namespaces should be decoded as URI")

	require.Equal(t, "DescribeThingsResult", op.Output.ResultWrapper, "resultWrapper should be kept on the output reference")
}

func TestParseAPIErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data string

		wantUndefined bool
		wantSyntax    bool
	}{
		"Undefined member shape": {
			data:          `{"operations": {}, "shapes": {"A": {"type": "structure", "members": {"B": {"shape": "Missing"}}}}}`,
			wantUndefined: true,
		},
		"Undefined input shape": {
			data:          `{"operations": {"Op": {"input": {"shape": "Nope"}}}, "shapes": {}}`,
			wantUndefined: true,
		},
		"Malformed JSON": {
			data:       `{"operations": {`,
			wantSyntax: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := model.ParseAPI([]byte(tc.data))
			require.Error(t, err, "ParseAPI should return an error")
			if tc.wantUndefined {
				require.ErrorIs(t, err, model.ErrUndefinedShape, "Error should be ErrUndefinedShape")
			}
			if tc.wantSyntax {
				var syntaxErr *json.SyntaxError
				require.True(t, errors.As(err, &syntaxErr), "Error should be a JSON syntax error, got %v", err)
			}
		})
	}
}

func TestXMLNamespaceAttr(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data string

		wantName  string
		wantValue string
	}{
		"Bare URI":    {data: `"urn:a"`, wantName: "xmlns", wantValue: "urn:a"},
		"Object":      {data: `{"uri": "urn:b"}`, wantName: "xmlns", wantValue: "urn:b"},
		"With prefix": {data: `{"prefix": "xsi", "uri": "urn:c"}`, wantName: "xmlns:xsi", wantValue: "urn:c"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var ns model.XMLNamespace
			require.NoError(t, json.Unmarshal([]byte(tc.data), &ns), "Unmarshal should not return an error")
			gotName, gotValue := ns.Attr()
			require.Equal(t, tc.wantName, gotName, "Attribute name should match")
			require.Equal(t, tc.wantValue, gotValue, "Attribute value should match")
		})
	}
}
