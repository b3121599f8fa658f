package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	rels := c.Relationships()
	require.Len(t, rels, 7)
	assert.Equal(t, "friend", rels[0].Key)
	assert.Equal(t, "友人", rels[0].Label)

	files := c.BGMFiles()
	assert.Len(t, files, 7)
	for _, name := range []string{"yuujin.mp3", "koibito.mp3", "kyodai.mp3", "ryosin.mp3", "sohubo.mp3", "kekkon.mp3", "kodomo.mp3"} {
		assert.Contains(t, files, name)
	}
}

func TestResolve(t *testing.T) {
	c := Default()
	for in, key := range map[string]string{
		"parent":   "parent",
		"両親":       "parent",
		" Mother ": "parent",
		"妻、夫":      "spouse",
		"FRIEND":   "friend",
	} {
		rel, ok := c.Resolve(in)
		require.True(t, ok, in)
		assert.Equal(t, key, rel.Key)
	}

	_, ok := c.Resolve("colleague")
	assert.False(t, ok)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	_, err := Parse([]byte("relationships: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("relationships:\n  - label: x\n"))
	assert.ErrorContains(t, err, "no key")

	_, err = Parse([]byte("relationships:\n  - key: a\n    aliases: [x]\n  - key: b\n    aliases: [x]\n"))
	assert.ErrorContains(t, err, "ambiguous")
}
