// Package docmerge resolves one file's three-way conflict: given the
// common ancestor, the local, and the remote version of a document,
// it produces either the verbatim winning side, or a JSON-diff + OT
// merge of both sides' changes against the base.
package docmerge

import (
	"fmt"

	"github.com/sosuisen/gitdocdb/internal/jsondiff"
	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
	"github.com/sosuisen/gitdocdb/internal/ot"
)

// UserMergeResult is what a user-defined merge function returns: the
// merged document, or Escalate set true to request the caller fall
// back to a conflict marker instead of resolving silently.
type UserMergeResult struct {
	Doc      map[string]any
	Escalate bool
}

// UserMergeFunc is a caller-supplied merge strategy.
type UserMergeFunc func(base, ours, theirs map[string]any) UserMergeResult

// Options configures one Merge call.
type Options struct {
	Strategy         model.Strategy
	KeyOfUniqueArray []string
	UserFunc         UserMergeFunc
}

// Merge produces the merged document body and a conflict record for
// one file, given its base/ours/theirs FatDocs (any of which may be
// nil, meaning the file doesn't exist on that side).
func Merge(base, ours, theirs *model.FatDoc, opts Options) (map[string]any, model.Conflict, error) {
	id, op := classify(ours, theirs)

	var merged map[string]any
	var err error

	switch opts.Strategy {
	case model.StrategyOurs:
		merged = cloneDoc(docOf(ours))
	case model.StrategyTheirs:
		merged = cloneDoc(docOf(theirs))
	case model.StrategyOursDiff:
		merged, err = diffMerge(base, ours, theirs, ot.PriorityOurs)
	case model.StrategyTheirsDiff:
		merged, err = diffMerge(base, ours, theirs, ot.PriorityTheirs)
	case model.StrategyUserDefined:
		if opts.UserFunc == nil {
			return nil, model.Conflict{}, kinds.New(kinds.InvalidJSON, "docmerge.Merge", fmt.Errorf("user-defined strategy requires a UserFunc"))
		}
		result := opts.UserFunc(docOf(base), docOf(ours), docOf(theirs))
		if result.Escalate {
			return nil, model.Conflict{}, kinds.New(kinds.InvalidJSON, "docmerge.Merge", fmt.Errorf("user merge function escalated conflict for %q", id))
		}
		merged = result.Doc
	default:
		return nil, model.Conflict{}, kinds.New(kinds.InvalidJSON, "docmerge.Merge", fmt.Errorf("unknown strategy %q", opts.Strategy))
	}
	if err != nil {
		return nil, model.Conflict{}, err
	}

	if merged != nil {
		dedupeUniqueArrays(merged, opts.KeyOfUniqueArray)
	}

	return merged, model.Conflict{ID: id, Strategy: opts.Strategy, Operation: op}, nil
}

func classify(ours, theirs *model.FatDoc) (id string, op model.FileOperation) {
	switch {
	case ours != nil:
		id = ours.ID
	case theirs != nil:
		id = theirs.ID
	}
	switch {
	case ours == nil && theirs != nil:
		op = model.FileInsert
	case ours != nil && theirs == nil:
		op = model.FileDelete
	default:
		op = model.FileUpdate
	}
	return id, op
}

func docOf(f *model.FatDoc) map[string]any {
	if f == nil {
		return nil
	}
	return f.Doc
}

func cloneDoc(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// diffMerge computes diffOurs = diff(base, ours) and diffTheirs =
// diff(base, theirs), lowers both to OT ops, transforms one against
// the other under priority, and applies the merged op (the priority
// side's commands plus the other side's non-conflicting ones) to the
// base document.
func diffMerge(base, ours, theirs *model.FatDoc, priority ot.Priority) (map[string]any, error) {
	baseDoc := docOf(base)
	oursDoc := docOf(ours)
	theirsDoc := docOf(theirs)

	opOurs := ot.FromDiff(jsondiff.Diff(baseDoc, oursDoc))
	opTheirs := ot.FromDiff(jsondiff.Diff(baseDoc, theirsDoc))

	merged, _ := ot.Transform(opOurs, opTheirs, priority)

	applied, err := ot.Apply(baseDoc, merged)
	if err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "docmerge.diffMerge", err)
	}
	result, ok := applied.(map[string]any)
	if !ok {
		return nil, kinds.New(kinds.InvalidJSON, "docmerge.diffMerge", fmt.Errorf("merge result is not a JSON object"))
	}
	return result, nil
}

// dedupeUniqueArrays removes duplicate values (by deep equality) from
// array fields named in keys, keeping each value's first occurrence.
func dedupeUniqueArrays(doc map[string]any, keys []string) {
	for _, key := range keys {
		arr, ok := doc[key].([]any)
		if !ok {
			continue
		}
		doc[key] = dedupeSlice(arr)
	}
}

func dedupeSlice(arr []any) []any {
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		dup := false
		for _, seen := range out {
			if jsondiffDeepEqual(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// jsondiffDeepEqual mirrors jsondiff's structural equality without
// exporting it, since deduplication is the only caller outside that
// package that needs value-level equality rather than diffing.
func jsondiffDeepEqual(a, b any) bool {
	d := jsondiff.Diff(a, b)
	return d == nil
}
