package jsondiff

import (
	"fmt"
	"sort"
)

// Diff computes the delta transforming a into b. Both values must be
// the result of unmarshaling JSON into interface{} (so objects are
// map[string]any, arrays are []any, numbers are float64). Returns nil
// if a and b are equivalent.
func Diff(a, b any) *Delta {
	return diffOpts(a, b, Options{})
}

// DiffWithOptions is Diff with tunable text-diff behavior.
func DiffWithOptions(a, b any, opts Options) *Delta {
	return diffOpts(a, b, opts)
}

func diffOpts(a, b any, opts Options) *Delta {
	am, aIsObj := a.(map[string]any)
	bm, bIsObj := b.(map[string]any)
	if aIsObj && bIsObj {
		return diffObject(am, bm, opts)
	}

	aa, aIsArr := a.([]any)
	ba, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArray(aa, ba, opts)
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr && as != bs {
		if len(as) >= opts.minTextLength() || len(bs) >= opts.minTextLength() {
			return &Delta{Kind: KindTextPatch, OldValue: as, NewValue: bs, Patch: textPatch(as, bs)}
		}
	}

	if deepEqual(a, b) {
		return nil
	}

	if a == nil {
		return &Delta{Kind: KindInsert, NewValue: b}
	}
	if b == nil {
		return &Delta{Kind: KindRemove, OldValue: a}
	}
	return &Delta{Kind: KindReplace, OldValue: a, NewValue: b}
}

func diffObject(a, b map[string]any, opts Options) *Delta {
	children := map[string]*Delta{}

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	for k := range keys {
		av, aok := a[k]
		bv, bok := b[k]
		switch {
		case !aok:
			children[k] = &Delta{Kind: KindInsert, NewValue: bv}
		case !bok:
			children[k] = &Delta{Kind: KindRemove, OldValue: av}
		default:
			if child := diffOpts(av, bv, opts); child != nil {
				children[k] = child
			}
		}
	}

	if len(children) == 0 {
		return nil
	}
	return &Delta{Kind: KindObject, Children: children}
}

func diffArray(a, b []any, opts Options) *Delta {
	matchedA := make([]bool, len(a))
	matchedB := make([]bool, len(b))

	// 1. Longest common subsequence by deep equality: items that stay
	// in relative order across both arrays need no move entry.
	lcs := longestCommonSubsequence(a, b)
	for _, pair := range lcs {
		matchedA[pair[0]] = true
		matchedB[pair[1]] = true
	}

	children := map[string]*Delta{}

	// 2. Remaining equal-by-value items that are NOT part of the LCS
	// have changed position: record a move from their old index to
	// their new index.
	bUsed := make([]bool, len(b))
	copy(bUsed, matchedB)
	for i, av := range a {
		if matchedA[i] {
			continue
		}
		for j, bv := range b {
			if bUsed[j] || matchedB[j] {
				continue
			}
			if deepEqual(av, bv) {
				matchedA[i] = true
				bUsed[j] = true
				children[fmt.Sprintf("_%d", i)] = &Delta{Kind: KindMove, NewValue: bv, MoveTo: j}
				break
			}
		}
	}
	for j := range bUsed {
		if bUsed[j] {
			matchedB[j] = true
		}
	}

	// 3. Unmatched old items are removed.
	for i, av := range a {
		if !matchedA[i] {
			children[fmt.Sprintf("_%d", i)] = &Delta{Kind: KindRemove, OldValue: av}
		}
	}

	// 4. Unmatched new items are inserted; matched-but-unchanged items
	// keep their LCS partner with no entry; items present in both but
	// whose nested content differs get a nested diff anchored at their
	// new index.
	lcsByB := map[int]int{}
	for _, pair := range lcs {
		lcsByB[pair[1]] = pair[0]
	}
	for j, bv := range b {
		if !matchedB[j] {
			children[fmt.Sprintf("%d", j)] = &Delta{Kind: KindInsert, NewValue: bv}
			continue
		}
		if ai, ok := lcsByB[j]; ok {
			if child := diffOpts(a[ai], bv, opts); child != nil {
				children[fmt.Sprintf("%d", j)] = child
			}
		}
	}

	if len(children) == 0 {
		return nil
	}
	// The synthetic "_t" sibling key tags this Object's children map
	// as describing an array; it carries no Delta payload of its own
	// and is only materialized by Encode.
	return &Delta{Kind: KindArray, Children: children}
}

// longestCommonSubsequence returns index pairs (i, j) such that
// a[i] == b[j] for each pair, the pairs are strictly increasing in
// both i and j, and the sequence is of maximum length, computed by
// the standard O(len(a)*len(b)) dynamic program.
func longestCommonSubsequence(a, b []any) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if deepEqual(a[i], b[j]) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var pairs [][2]int
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case deepEqual(a[i], b[j]):
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// sortedKeys returns an object's keys sorted lexicographically, the
// canonical object-key order used throughout this package.
func sortedKeys(m map[string]*Delta) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
