package jsondiff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, a, b any) {
	t.Helper()
	d := Diff(a, b)
	got, err := Apply(a, d)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got); diff != "" {
		t.Fatalf("Apply(a, Diff(a,b)) mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffApplyRoundTrip_ScalarReplace(t *testing.T) {
	roundTrip(t, map[string]any{"_id": "nara", "deer": 100.0},
		map[string]any{"_id": "nara", "deer": 1000.0})
}

func TestDiffApplyRoundTrip_NestedObject(t *testing.T) {
	a := map[string]any{"a": map[string]any{"x": 1.0, "y": 2.0}}
	b := map[string]any{"a": map[string]any{"x": 1.0, "y": 3.0, "z": 4.0}}
	roundTrip(t, a, b)
}

func TestDiffApplyRoundTrip_ArrayInsertRemoveMove(t *testing.T) {
	a := []any{"x", "y", "z"}
	b := []any{"z", "w", "x"}
	roundTrip(t, a, b)
}

func TestDiffApplyRoundTrip_TextPatch(t *testing.T) {
	longPrefix := make([]byte, 0, 80)
	for i := 0; i < 80; i++ {
		longPrefix = append(longPrefix, 'a')
	}
	a := map[string]any{"_id": "nara", "text": string(longPrefix) + "abcdef"}
	b := map[string]any{"_id": "nara", "text": string(longPrefix) + "abc123def"}
	roundTrip(t, a, b)

	d := Diff(a, b)
	textDelta := d.Children["text"]
	require.NotNil(t, textDelta)
	assert.Equal(t, KindTextPatch, textDelta.Kind)
}

func TestDiffNoChangeIsNil(t *testing.T) {
	a := map[string]any{"_id": "nara", "deer": 100.0}
	assert.Nil(t, Diff(a, a))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := map[string]any{"_id": "nara", "age": "Nara prefecture", "deer": 100.0}
	b := map[string]any{"_id": "nara", "age": "Heijo-kyo", "deer": 1000.0}
	d := Diff(a, b)

	wire := Encode(d)
	back := Decode(wire)

	got, err := Apply(a, back)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got); diff != "" {
		t.Fatalf("round trip through wire encoding mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffArrayTaggedWithWireMarker(t *testing.T) {
	a := []any{"x", "y"}
	b := []any{"y", "x", "new"}
	d := Diff(a, b)
	require.NotNil(t, d)
	assert.Equal(t, KindArray, d.Kind)

	wire, ok := Encode(d).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a", wire["_t"])
}
