// Package jsondiff computes a structured delta between two parsed
// JSON trees (values produced by encoding/json's interface{}
// unmarshaling) and renders it to and from a compact wire shape.
//
// Internally the delta is a tagged tree: a Leaf carries one of
// {insert, replace, text patch, remove, move}, a Node carries either
// an Object's or an Array's children. The key-based "_t"/"_<n>"/"<n>"
// wire encoding only exists at the Encode/Decode boundary; internal
// callers (the OT lowering step in package ot) walk the tagged tree
// directly.
package jsondiff

// Kind tags the variant a Delta node holds.
type Kind int

const (
	KindInsert Kind = iota
	KindReplace
	KindTextPatch
	KindRemove
	KindMove
	KindObject
	KindArray
)

// Delta is one node of the delta tree. Exactly one of the leaf fields
// or Children is meaningful, selected by Kind.
type Delta struct {
	Kind Kind

	// Leaf: KindInsert
	NewValue any

	// Leaf: KindReplace
	OldValue any
	// NewValue reused for KindReplace's new side.

	// Leaf: KindTextPatch — OldValue/NewValue hold the full strings,
	// Patch holds the unified-diff-style hunk text.
	Patch string

	// Leaf: KindRemove — OldValue holds the removed value.

	// Leaf: KindMove — NewValue holds the moved element's value,
	// MoveTo holds its new array index.
	MoveTo int

	// Node: KindObject/KindArray.
	//
	// Children is keyed by object field name (KindObject) or by the
	// position a change is anchored to (KindArray): a plain index for
	// insert/replace/nested-change entries at that position in the
	// NEW array, and the same index prefixed with an underscore for
	// remove/move entries anchored to their position in the OLD array
	// (mirroring the wire format's "_<n>" keys).
	Children map[string]*Delta
}

// IsLeaf reports whether d holds a leaf variant rather than a nested
// Object/Array.
func (d *Delta) IsLeaf() bool {
	switch d.Kind {
	case KindObject, KindArray:
		return false
	default:
		return true
	}
}

// Empty reports whether an Object/Array node has no children, i.e. it
// represents no change and should be omitted from its parent.
func (d *Delta) Empty() bool {
	return d != nil && !d.IsLeaf() && len(d.Children) == 0
}
