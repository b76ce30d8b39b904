package ot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/jsondiff"
)

func TestFromDiffApplyRoundTrip_ScalarField(t *testing.T) {
	a := map[string]any{"_id": "nara", "deer": 100.0}
	b := map[string]any{"_id": "nara", "deer": 1000.0}

	op := FromDiff(jsondiff.Diff(a, b))
	got, err := Apply(a, op)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got); diff != "" {
		t.Fatalf("Apply(a, FromDiff(Diff(a,b))) mismatch (-want +got):\n%s", diff)
	}
}

func TestFromDiffApplyRoundTrip_Array(t *testing.T) {
	a := map[string]any{"tags": []any{"x", "y", "z"}}
	b := map[string]any{"tags": []any{"z", "w", "x"}}

	op := FromDiff(jsondiff.Diff(a, b))
	got, err := Apply(a, op)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}
}

func TestFromDiffApplyRoundTrip_TextEdit(t *testing.T) {
	longPrefix := make([]byte, 80)
	for i := range longPrefix {
		longPrefix[i] = 'a'
	}
	a := map[string]any{"text": string(longPrefix) + "hello world"}
	b := map[string]any{"text": string(longPrefix) + "hello there world"}

	op := FromDiff(jsondiff.Diff(a, b))
	got, err := Apply(a, op)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_NonOverlappingFieldsMergeCleanly(t *testing.T) {
	base := map[string]any{"title": "old", "body": "old body"}
	ours := map[string]any{"title": "new title", "body": "old body"}
	theirs := map[string]any{"title": "old", "body": "new body"}

	opOurs := FromDiff(jsondiff.Diff(base, ours))
	opTheirs := FromDiff(jsondiff.Diff(base, theirs))

	merged, conflicts := Transform(opOurs, opTheirs, PriorityOurs)
	assert.Empty(t, conflicts)

	got, err := Apply(base, merged)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "new title", "body": "new body"}, got)
}

func TestTransform_SameFieldConflictOursWins(t *testing.T) {
	base := map[string]any{"title": "old"}
	ours := map[string]any{"title": "ours wins"}
	theirs := map[string]any{"title": "theirs loses"}

	opOurs := FromDiff(jsondiff.Diff(base, ours))
	opTheirs := FromDiff(jsondiff.Diff(base, theirs))

	merged, conflicts := Transform(opOurs, opTheirs, PriorityOurs)
	require.Len(t, conflicts, 1)

	got, err := Apply(base, merged)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "ours wins"}, got)
}

func TestTransform_SameFieldConflictTheirsWins(t *testing.T) {
	base := map[string]any{"title": "old"}
	ours := map[string]any{"title": "ours loses"}
	theirs := map[string]any{"title": "theirs wins"}

	opOurs := FromDiff(jsondiff.Diff(base, ours))
	opTheirs := FromDiff(jsondiff.Diff(base, theirs))

	merged, conflicts := Transform(opOurs, opTheirs, PriorityTheirs)
	require.Len(t, conflicts, 1)

	got, err := Apply(base, merged)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "theirs wins"}, got)
}

func TestPathHasPrefix(t *testing.T) {
	p := Path{"a", 1, "b"}
	assert.True(t, p.HasPrefix(Path{"a", 1}))
	assert.True(t, p.HasPrefix(Path{}))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(Path{"a", 2}))
	assert.False(t, p.HasPrefix(Path{"a", 1, "b", "c"}))
}
