package worktree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeAndRead_JSON(t *testing.T) {
	dir := t.TempDir()
	p := New(dir, SerializationJSON)

	doc := map[string]any{"_id": "nara/deer", "count": 100.0, "age": "Nara prefecture"}
	_, err := p.Materialize(doc["_id"].(string), doc)
	require.NoError(t, err)

	data, err := os.ReadFile(p.PathFor("nara/deer"))
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.Equal(t, `{"_id":"nara/deer","age":"Nara prefecture","count":100}`+"\n", string(data))

	got, err := p.Read("nara/deer")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestRemovePrunesEmptyAncestors(t *testing.T) {
	dir := t.TempDir()
	p := New(dir, SerializationJSON)

	_, err := p.Materialize("a/b/c", map[string]any{"_id": "a/b/c"})
	require.NoError(t, err)

	require.NoError(t, p.Remove("a/b/c"))

	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))
}

func TestFrontMatterRoundTrip(t *testing.T) {
	doc := map[string]any{"_id": "post/1", "title": "Hello", "_body": "# Hello\n\nworld\n"}
	data, err := Encode(SerializationFrontMatter, doc)
	require.NoError(t, err)

	got, err := Decode(SerializationFrontMatter, data)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got["title"])
	assert.Equal(t, "# Hello\n\nworld\n", got["_body"])
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := map[string]any{"_id": "cfg/1", "enabled": true, "count": 3.0}
	data, err := Encode(SerializationYAML, doc)
	require.NoError(t, err)

	got, err := Decode(SerializationYAML, data)
	require.NoError(t, err)
	assert.Equal(t, true, got["enabled"])
	assert.Equal(t, 3.0, got["count"])
}

func TestIsMetadata(t *testing.T) {
	assert.True(t, IsMetadata(".gitddb/info.json"))
	assert.True(t, IsMetadata(".gitddb"))
	assert.False(t, IsMetadata("docs/.gitddb-like/info.json"))
}
