package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImageList(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want ImageList
	}{
		{name: "nil", raw: nil, want: ImageList{}},
		{name: "string slice", raw: []string{"cloud://a", " ", "cloud://b"}, want: ImageList{"cloud://a", "cloud://b"}},
		{name: "any slice", raw: []any{"cloud://a", nil, 3, "cloud://b"}, want: ImageList{"cloud://a", "cloud://b"}},
		{name: "scalar", raw: "cloud://a", want: ImageList{"cloud://a"}},
		{name: "blank scalar", raw: "   ", want: ImageList{}},
		{name: "json array string", raw: `["cloud://a","cloud://b"]`, want: ImageList{"cloud://a", "cloud://b"}},
		{name: "json string of comma list", raw: `"cloud://a,cloud://b"`, want: ImageList{"cloud://a", "cloud://b"}},
		{name: "comma separated", raw: "cloud://a, cloud://b,", want: ImageList{"cloud://a", "cloud://b"}},
		{name: "malformed json falls back to split", raw: `["cloud://a",`, want: ImageList{`["cloud://a"`}},
		{name: "bytes", raw: []byte(`["https://x/y.png"]`), want: ImageList{"https://x/y.png"}},
		{name: "unsupported type", raw: 42, want: ImageList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeImageList(tt.raw))
		})
	}
}

func TestImageList_ScanValue(t *testing.T) {
	var l ImageList
	require.NoError(t, l.Scan("cloud://only"))
	assert.Equal(t, ImageList{"cloud://only"}, l)

	v, err := ImageList{"cloud://a", "cloud://b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["cloud://a","cloud://b"]`, v)

	v, err = ImageList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestImageList_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Images ImageList `json:"images"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"images":[]}`, string(b))

	var in struct {
		Images ImageList `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"images":"cloud://a,cloud://b"}`), &in))
	assert.Equal(t, ImageList{"cloud://a", "cloud://b"}, in.Images)
}

func TestPost_Normalize(t *testing.T) {
	t.Run("legacy scalar fills empty lists", func(t *testing.T) {
		p := &Post{ImageURL: "cloud://legacy", OriginalImageURL: "cloud://legacy-orig"}
		p.Normalize()
		assert.Equal(t, ImageList{"cloud://legacy"}, p.ImageURLs)
		assert.Equal(t, ImageList{"cloud://legacy-orig"}, p.OriginalImageURLs)
	})

	t.Run("lists win over scalars", func(t *testing.T) {
		p := &Post{ImageURL: "cloud://legacy", ImageURLs: ImageList{"cloud://a"}}
		p.Normalize()
		assert.Equal(t, ImageList{"cloud://a"}, p.ImageURLs)
		assert.NotNil(t, p.OriginalImageURLs)
	})

	t.Run("file ids", func(t *testing.T) {
		p := &Post{ImageURL: "cloud://a", ImageURLs: ImageList{"cloud://a"}, OriginalImageURLs: ImageList{"cloud://o"}}
		assert.ElementsMatch(t, []string{"cloud://a", "cloud://o", "cloud://a"}, p.FileIDs())
	})
}
