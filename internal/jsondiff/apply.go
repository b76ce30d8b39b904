package jsondiff

import "fmt"

// Apply reconstructs the new document by applying d (as produced by
// Diff(a, b)) to a. It does not mutate a. This is a direct
// delta-tree application used for testing the diff algorithm itself;
// the three-way merge path instead lowers deltas to OT ops (package
// ot) and applies those, since OT ops are what get transformed
// against a concurrent edit.
func Apply(a any, d *Delta) (any, error) {
	if d == nil {
		return a, nil
	}
	switch d.Kind {
	case KindObject:
		return applyObject(a, d)
	case KindArray:
		return applyArray(a, d)
	default:
		return applyLeaf(a, d)
	}
}

func applyLeaf(a any, d *Delta) (any, error) {
	switch d.Kind {
	case KindInsert:
		return cloneValue(d.NewValue), nil
	case KindReplace:
		return cloneValue(d.NewValue), nil
	case KindTextPatch:
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("jsondiff: text patch applied to non-string %T", a)
		}
		return applyTextPatch(s, d.Patch)
	case KindRemove:
		return nil, nil
	case KindMove:
		return cloneValue(d.NewValue), nil
	default:
		return nil, fmt.Errorf("jsondiff: unknown leaf kind %d", d.Kind)
	}
}

func applyObject(a any, d *Delta) (any, error) {
	m, _ := a.(map[string]any)
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}

	for _, key := range sortedKeys(d.Children) {
		child := d.Children[key]
		if child.Kind == KindRemove {
			delete(out, key)
			continue
		}
		newV, err := Apply(out[key], child)
		if err != nil {
			return nil, err
		}
		out[key] = newV
	}
	return out, nil
}

func applyArray(a any, d *Delta) (any, error) {
	arr, _ := a.([]any)

	// Build the result length: original length minus removes/moves-out
	// plus inserts.
	removedAt := map[int]bool{}
	movedFrom := map[int]int{} // old index -> new index
	replacedAt := map[int]*Delta{}
	insertedAt := map[int]any{}

	for key, child := range d.Children {
		idx, fromOld, err := parseArrayKey(key)
		if err != nil {
			return nil, err
		}
		if fromOld {
			switch child.Kind {
			case KindRemove:
				removedAt[idx] = true
			case KindMove:
				movedFrom[idx] = child.MoveTo
			default:
				return nil, fmt.Errorf("jsondiff: unexpected kind %d at removed-index key", child.Kind)
			}
			continue
		}
		if child.Kind == KindInsert {
			insertedAt[idx] = cloneValue(child.NewValue)
		} else {
			replacedAt[idx] = child
		}
	}

	// carried[newIndex] = value carried over from the old array
	// (unchanged, replaced, or moved-in).
	carried := map[int]any{}
	nextNew := 0
	for i, v := range arr {
		if removedAt[i] {
			continue
		}
		if newIdx, ok := movedFrom[i]; ok {
			carried[newIdx] = cloneValue(v)
			continue
		}
		carried[nextNew] = cloneValue(v)
		nextNew++
	}

	total := len(carried) + len(insertedAt)
	out := make([]any, total)
	filled := make([]bool, total)
	for idx, v := range insertedAt {
		if idx < total {
			out[idx] = v
			filled[idx] = true
		}
	}

	// Remaining carried values fill the unfilled slots in ascending
	// order of their slot index.
	var carriedIdxs []int
	for idx := range carried {
		carriedIdxs = append(carriedIdxs, idx)
	}
	sortInts(carriedIdxs)

	slot := 0
	for _, ci := range carriedIdxs {
		for slot < total && filled[slot] {
			slot++
		}
		if slot >= total {
			break
		}
		out[slot] = carried[ci]
		filled[slot] = true
		slot++
	}

	for idx, child := range replacedAt {
		if idx < 0 || idx >= total {
			continue
		}
		newV, err := Apply(out[idx], child)
		if err != nil {
			return nil, err
		}
		out[idx] = newV
	}

	return out, nil
}

func parseArrayKey(key string) (idx int, fromOld bool, err error) {
	if len(key) == 0 {
		return 0, false, fmt.Errorf("jsondiff: empty array delta key")
	}
	if key[0] == '_' {
		n, err := parseInt(key[1:])
		return n, true, err
	}
	n, err := parseInt(key)
	return n, false, err
}

func parseInt(s string) (int, error) {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("jsondiff: invalid array delta index %q", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
