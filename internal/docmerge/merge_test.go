package docmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/model"
)

func fat(id string, doc map[string]any) *model.FatDoc {
	if doc == nil {
		return nil
	}
	return &model.FatDoc{ID: id, Name: id + ".json", Type: model.DocTypeJSON, Doc: doc}
}

func TestMerge_OursDiffNonOverlappingFields(t *testing.T) {
	base := fat("nara", map[string]any{"_id": "nara", "age": "Nara prefecture", "deer": 100.0})
	ours := fat("nara", map[string]any{"_id": "nara", "age": "Nara prefecture", "deer": 1000.0})
	theirs := fat("nara", map[string]any{"_id": "nara", "age": "Heijo-kyo", "deer": 100.0})

	merged, conflict, err := Merge(base, ours, theirs, Options{Strategy: model.StrategyOursDiff})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_id": "nara", "age": "Heijo-kyo", "deer": 1000.0}, merged)
	assert.Equal(t, model.StrategyOursDiff, conflict.Strategy)
	assert.Equal(t, model.FileUpdate, conflict.Operation)
}

func TestMerge_OursDiffSameFieldOursWins(t *testing.T) {
	base := fat("nara", map[string]any{"_id": "nara", "age": "Nara prefecture"})
	ours := fat("nara", map[string]any{"_id": "nara", "age": "Previous Nara prefecture", "year": 1868.0})
	theirs := fat("nara", map[string]any{"_id": "nara", "age": "Heijo-kyo", "year": 710.0})

	merged, _, err := Merge(base, ours, theirs, Options{Strategy: model.StrategyOursDiff})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_id": "nara", "age": "Previous Nara prefecture", "year": 1868.0}, merged)
}

func TestMerge_TheirsDiffSameFieldTheirsWins(t *testing.T) {
	base := fat("nara", map[string]any{"_id": "nara", "age": "Nara prefecture"})
	ours := fat("nara", map[string]any{"_id": "nara", "age": "Previous Nara prefecture", "year": 1868.0})
	theirs := fat("nara", map[string]any{"_id": "nara", "age": "Heijo-kyo", "year": 710.0})

	merged, _, err := Merge(base, ours, theirs, Options{Strategy: model.StrategyTheirsDiff})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_id": "nara", "age": "Heijo-kyo", "year": 710.0}, merged)
}

func TestMerge_OursVerbatim(t *testing.T) {
	base := fat("nara", map[string]any{"_id": "nara", "deer": 100.0})
	ours := fat("nara", map[string]any{"_id": "nara", "deer": 200.0})
	theirs := fat("nara", map[string]any{"_id": "nara", "deer": 300.0})

	merged, _, err := Merge(base, ours, theirs, Options{Strategy: model.StrategyOurs})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_id": "nara", "deer": 200.0}, merged)
}

func TestMerge_ClassifiesInsertWhenOursMissing(t *testing.T) {
	_, conflict, err := Merge(nil, nil, fat("new-doc", map[string]any{"_id": "new-doc"}), Options{Strategy: model.StrategyTheirs})
	require.NoError(t, err)
	assert.Equal(t, model.FileInsert, conflict.Operation)
}

func TestMerge_UserDefinedEscalates(t *testing.T) {
	base := fat("nara", map[string]any{"_id": "nara"})
	ours := fat("nara", map[string]any{"_id": "nara", "deer": 1.0})
	theirs := fat("nara", map[string]any{"_id": "nara", "deer": 2.0})

	_, _, err := Merge(base, ours, theirs, Options{
		Strategy: model.StrategyUserDefined,
		UserFunc: func(base, ours, theirs map[string]any) UserMergeResult {
			return UserMergeResult{Escalate: true}
		},
	})
	assert.Error(t, err)
}

func TestMerge_DedupeUniqueArray(t *testing.T) {
	base := fat("tags", map[string]any{"_id": "tags", "labels": []any{"a"}})
	ours := fat("tags", map[string]any{"_id": "tags", "labels": []any{"a", "b"}})
	theirs := fat("tags", map[string]any{"_id": "tags", "labels": []any{"a", "b", "c"}})

	merged, _, err := Merge(base, ours, theirs, Options{
		Strategy:         model.StrategyOursDiff,
		KeyOfUniqueArray: []string{"labels"},
	})
	require.NoError(t, err)
	labels, ok := merged["labels"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"a", "b", "c"}, labels)
	assert.Len(t, labels, 3)
}
