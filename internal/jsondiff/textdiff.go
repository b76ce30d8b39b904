package jsondiff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// defaultMinTextLength is the default threshold above which a changed
// string is diffed as text instead of replaced wholesale.
const defaultMinTextLength = 60

// Options tunes Diff's behavior.
type Options struct {
	// MinTextLength is the minimum length either side of a changed
	// string must have before it is diffed as text rather than
	// replaced outright. Zero selects the default (60).
	MinTextLength int
}

func (o Options) minTextLength() int {
	if o.MinTextLength <= 0 {
		return defaultMinTextLength
	}
	return o.MinTextLength
}

var dmp = diffmatchpatch.New()

// textPatch renders a unified-diff-style patch transforming oldText
// into newText, for embedding in a KindTextPatch leaf.
func textPatch(oldText, newText string) string {
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	patches := dmp.PatchMake(oldText, diffs)
	return dmp.PatchToText(patches)
}

// applyTextPatch reconstructs the new string from oldText and a patch
// produced by textPatch.
func applyTextPatch(oldText, patch string) (string, error) {
	patches, err := dmp.PatchFromText(patch)
	if err != nil {
		return "", err
	}
	out, _ := dmp.PatchApply(patches, oldText)
	return out, nil
}
