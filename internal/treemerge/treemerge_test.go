package treemerge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/docmerge"
	"github.com/sosuisen/gitdocdb/internal/model"
)

func doc(id, oid string) *model.FatDoc {
	return &model.FatDoc{ID: id, Name: id + ".json", Type: model.DocTypeJSON, FileOid: oid,
		Doc: map[string]any{"_id": id}}
}

func TestMerge_IndependentAddsBothKept(t *testing.T) {
	base := Tree{}
	local := Tree{"1.json": doc("1", "oid1")}
	remote := Tree{"2.json": doc("2", "oid2")}

	result, err := Merge(context.Background(), base, local, remote, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Merged, 2)
	assert.Contains(t, result.Merged, "1.json")
	assert.Contains(t, result.Merged, "2.json")
	assert.Empty(t, result.Conflicts)
}

func TestMerge_RemoteDeletionAcceptedLocally(t *testing.T) {
	base := Tree{"1.json": doc("1", "oidA")}
	local := Tree{"1.json": doc("1", "oidA")}
	remote := Tree{}

	result, err := Merge(context.Background(), base, local, remote, Options{})
	require.NoError(t, err)
	assert.NotContains(t, result.Merged, "1.json")
	require.Len(t, result.Local, 1)
	assert.Equal(t, model.FileDelete, result.Local[0].Operation)
}

func TestMerge_SameFileDivergedInvokesDocMerge(t *testing.T) {
	base := Tree{"nara.json": {ID: "nara", Name: "nara.json", Type: model.DocTypeJSON, FileOid: "base",
		Doc: map[string]any{"_id": "nara", "deer": 100.0}}}
	local := Tree{"nara.json": {ID: "nara", Name: "nara.json", Type: model.DocTypeJSON, FileOid: "local",
		Doc: map[string]any{"_id": "nara", "deer": 1000.0}}}
	remote := Tree{"nara.json": {ID: "nara", Name: "nara.json", Type: model.DocTypeJSON, FileOid: "remote",
		Doc: map[string]any{"_id": "nara", "deer": 100.0, "age": "Heijo-kyo"}}}

	result, err := Merge(context.Background(), base, local, remote, Options{
		MergeOptions: docmerge.Options{Strategy: model.StrategyOursDiff},
	})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	merged := result.Merged["nara.json"]
	require.NotNil(t, merged)
	assert.Equal(t, 1000.0, merged.Doc["deer"])
	assert.Equal(t, "Heijo-kyo", merged.Doc["age"])
}

func TestMerge_UnchangedFilePassesThrough(t *testing.T) {
	base := Tree{"1.json": doc("1", "same")}
	local := Tree{"1.json": doc("1", "same")}
	remote := Tree{"1.json": doc("1", "same")}

	result, err := Merge(context.Background(), base, local, remote, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Merged, 1)
	assert.Empty(t, result.Local)
	assert.Empty(t, result.Remote)
}

func TestMerge_MetadataPrefixExcluded(t *testing.T) {
	base := Tree{}
	local := Tree{".gitddb/info.json": doc("info", "oid1")}
	remote := Tree{}

	result, err := Merge(context.Background(), base, local, remote, Options{MetadataPrefix: ".gitddb/"})
	require.NoError(t, err)
	assert.Empty(t, result.Merged)
}
