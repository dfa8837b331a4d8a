package paginate_test

import (
	"context"
	"encoding/base64"
	"errors"
	"maps"
	"testing"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/paginate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller serves fresh pages keyed by the Marker parameter.
type fakeCaller struct {
	pages func(marker string) (map[string]any, bool)
	calls []map[string]any
}

func (f *fakeCaller) Call(_ context.Context, _ string, params map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, maps.Clone(params))
	marker, _ := params["Marker"].(string)
	page, ok := f.pages(marker)
	if !ok {
		return nil, errors.New("unexpected marker " + marker)
	}
	return page, nil
}

// listPages looks like a bucket listing: the first page has no NextMarker and relies on the last key.
func listPages(marker string) (map[string]any, bool) {
	switch marker {
	case "":
		return map[string]any{"Items": []any{"a", "b", "c"}, "IsTruncated": true, "Owner": "me"}, true
	case "c":
		return map[string]any{"Items": []any{"d", "e", "f"}, "IsTruncated": true, "NextMarker": "m2", "Owner": "me"}, true
	case "m2":
		return map[string]any{"Items": []any{"g"}, "IsTruncated": false, "NextMarker": "ignored", "Owner": "me"}, true
	}
	return nil, false
}

var listModel = &model.Paginator{
	InputToken:       model.StringList{"Marker"},
	OutputToken:      model.StringList{"NextMarker || Items[-1]"},
	MoreResults:      "IsTruncated",
	LimitKey:         "MaxKeys",
	ResultKey:        model.StringList{"Items"},
	NonAggregateKeys: model.StringList{"Owner"},
}

func token(json string) string {
	return base64.StdEncoding.EncodeToString([]byte(json))
}

func TestBuildFullResult(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg paginate.Config

		want        map[string]any
		wantMarkers []any
		wantErr     error
	}{
		"All pages are merged": {
			want:        map[string]any{"Items": []any{"a", "b", "c", "d", "e", "f", "g"}, "Owner": "me"},
			wantMarkers: []any{nil, "c", "m2"},
		},
		"Max items inside a page records the truncation": {
			cfg: paginate.Config{MaxItems: 5},
			want: map[string]any{
				"Items": []any{"a", "b", "c", "d", "e"}, "Owner": "me",
				"NextToken": token(`{"Marker":"c","boto_truncate_amount":2}`),
			},
			wantMarkers: []any{nil, "c"},
		},
		"Max items on a page boundary resumes at the next token": {
			cfg:         paginate.Config{MaxItems: 3},
			want:        map[string]any{"Items": []any{"a", "b", "c"}, "Owner": "me", "NextToken": token(`{"Marker":"c"}`)},
			wantMarkers: []any{nil},
		},
		"Starting token skips the items already returned": {
			cfg:         paginate.Config{StartingToken: token(`{"Marker":"c","boto_truncate_amount":2}`)},
			want:        map[string]any{"Items": []any{"f", "g"}, "Owner": "me"},
			wantMarkers: []any{"c", "m2"},
		},
		"Legacy starting token": {
			cfg:         paginate.Config{StartingToken: "c___1"},
			want:        map[string]any{"Items": []any{"e", "f", "g"}, "Owner": "me"},
			wantMarkers: []any{"c", "m2"},
		},
		"Max items larger than the listing": {
			cfg:         paginate.Config{MaxItems: 50},
			want:        map[string]any{"Items": []any{"a", "b", "c", "d", "e", "f", "g"}, "Owner": "me"},
			wantMarkers: []any{nil, "c", "m2"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			caller := &fakeCaller{pages: listPages}
			p, err := paginate.New(caller, "ListItems", listModel, map[string]any{"Bucket": "b1"}, tc.cfg)
			require.NoError(t, err, "New should succeed")

			got, err := p.BuildFullResult(context.Background())
			require.NoError(t, err, "BuildFullResult should succeed")
			assert.Equal(t, tc.want, got)

			var markers []any
			for _, c := range caller.calls {
				assert.Equal(t, "b1", c["Bucket"], "Caller parameters should be sent on every page")
				markers = append(markers, c["Marker"])
			}
			assert.Equal(t, tc.wantMarkers, markers, "Markers sent should match")
		})
	}
}

func TestResumeFromToken(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg paginate.Config

		wantFirst []any
		wantToken string
		wantRest  []any
	}{
		"Cut inside a later page without starting token": {
			cfg:       paginate.Config{MaxItems: 5},
			wantFirst: []any{"a", "b", "c", "d", "e"},
			wantToken: token(`{"Marker":"c","boto_truncate_amount":2}`),
			wantRest:  []any{"f", "g"},
		},
		"Cut inside a later page after a starting token": {
			cfg:       paginate.Config{MaxItems: 3, StartingToken: token(`{"Marker":null,"boto_truncate_amount":1}`)},
			wantFirst: []any{"b", "c", "d"},
			wantToken: token(`{"Marker":"c","boto_truncate_amount":1}`),
			wantRest:  []any{"e", "f", "g"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p, err := paginate.New(&fakeCaller{pages: listPages}, "ListItems", listModel, nil, tc.cfg)
			require.NoError(t, err, "New should succeed")
			first, err := p.BuildFullResult(context.Background())
			require.NoError(t, err, "BuildFullResult should succeed")
			assert.Equal(t, tc.wantFirst, first["Items"], "First run should stop at max items")
			require.Equal(t, tc.wantToken, first["NextToken"], "First run should return a resume token")

			p, err = paginate.New(&fakeCaller{pages: listPages}, "ListItems", listModel, nil, paginate.Config{StartingToken: tc.wantToken})
			require.NoError(t, err, "New should accept the resume token")
			rest, err := p.BuildFullResult(context.Background())
			require.NoError(t, err, "BuildFullResult should succeed")
			assert.Equal(t, tc.wantRest, rest["Items"], "Resuming should return the remaining items")
			assert.NotContains(t, rest, "NextToken", "Resumed run should be complete")
		})
	}
}

func TestNextPage(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{pages: listPages}
	p, err := paginate.New(caller, "ListItems", listModel, nil, paginate.Config{PageSize: 3})
	require.NoError(t, err, "New should succeed")

	var pages int
	for p.HasMorePages() {
		_, err := p.NextPage(context.Background())
		require.NoError(t, err, "NextPage should succeed")
		pages++
	}
	assert.Equal(t, 3, pages)
	for _, c := range caller.calls {
		assert.Equal(t, 3, c["MaxKeys"], "Page size should be sent as the limit key")
	}

	_, err = p.NextPage(context.Background())
	require.ErrorIs(t, err, paginate.ErrNoMorePages, "NextPage should fail after the last page")
	assert.Empty(t, p.ResumeToken(), "A complete pagination has no resume token")
}

func TestRepeatedToken(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{pages: func(string) (map[string]any, bool) {
		return map[string]any{"Items": []any{"a"}, "IsTruncated": true, "NextMarker": "x"}, true
	}}
	p, err := paginate.New(caller, "ListItems", listModel, nil, paginate.Config{})
	require.NoError(t, err, "New should succeed")

	_, err = p.BuildFullResult(context.Background())
	require.ErrorIs(t, err, paginate.ErrRepeatedToken, "A token received twice should stop the pagination")
	assert.Len(t, caller.calls, 2)
}

func TestCallErrorStopsPagination(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{pages: func(m string) (map[string]any, bool) {
		if m == "" {
			return map[string]any{"Items": []any{"a"}, "IsTruncated": true, "NextMarker": "broken"}, true
		}
		return nil, false
	}}
	p, err := paginate.New(caller, "ListItems", listModel, nil, paginate.Config{})
	require.NoError(t, err, "New should succeed")

	_, err = p.BuildFullResult(context.Background())
	require.Error(t, err, "BuildFullResult should return the call error")
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	noLimit := &model.Paginator{InputToken: model.StringList{"Marker"}, OutputToken: model.StringList{"Marker"}}
	tests := map[string]struct {
		pm  *model.Paginator
		cfg paginate.Config

		wantErr error
	}{
		"Error on page size without limit key": {pm: noLimit, cfg: paginate.Config{PageSize: 10}, wantErr: paginate.ErrPageSizeUnsupported},
		"Error on legacy token with too many parts": {pm: noLimit, cfg: paginate.Config{StartingToken: "a___b___c"}, wantErr: paginate.ErrInvalidToken},
		"Error on bad truncation amount":           {pm: noLimit, cfg: paginate.Config{StartingToken: "a___b"}, wantErr: paginate.ErrInvalidToken},
		"Error on mismatched tokens": {pm: &model.Paginator{
			InputToken: model.StringList{"A", "B"}, OutputToken: model.StringList{"A"},
		}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := paginate.New(&fakeCaller{}, "Op", tc.pm, nil, tc.cfg)
			require.Error(t, err, "New should fail")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}
