package ot

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp = diffmatchpatch.New()

// lowerTextPatch converts a string-level change into a text-unicode
// op list: alternating skip/insert/delete steps counted in Unicode
// code points, never UTF-16 units.
//
// It re-derives the character diff between old and new directly
// (diffmatchpatch.DiffMain) rather than textually re-parsing the
// unified-diff hunk text jsondiff embeds in the Delta's Patch field —
// diffmatchpatch's patch-text grammar escapes several characters
// (notably '%', '+', '-', '@', and newlines) in a way that needs its
// own little parser to undo faithfully, and since both derivations
// are deterministic functions of the same (old, new) pair they agree;
// re-diffing avoids hand-rolling that escape-aware parser for no
// semantic gain.
func lowerTextPatch(oldValue, newValue string) []TextEdit {
	diffs := dmp.DiffMain(oldValue, newValue, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var edits []TextEdit
	for _, d := range diffs {
		runeLen := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if runeLen > 0 {
				edits = append(edits, TextEdit{Kind: TextSkip, Skip: runeLen})
			}
		case diffmatchpatch.DiffInsert:
			edits = append(edits, TextEdit{Kind: TextInsert, Insert: d.Text})
		case diffmatchpatch.DiffDelete:
			edits = append(edits, TextEdit{Kind: TextDelete, DeleteCount: runeLen})
		}
	}
	return edits
}
