package ot

import "fmt"

// Apply produces a new document by applying op to doc, without
// mutating doc. Commands are grouped by the array they target (if
// any) and reconstructed in one pass per array, exactly mirroring how
// package jsondiff rebuilds an array from a Delta — a command stream
// lowered from a diff always carries old-index removes/moves and
// new-index inserts/replaces for the SAME array, so batching per
// array path sidesteps the running-index bookkeeping a naive
// one-splice-at-a-time apply would otherwise need.
func Apply(doc any, op Op) (any, error) {
	root := cloneValue(doc)

	// Commands whose last path segment is a string (object field) or
	// which are KindEdit targeting a non-array-element path apply
	// directly, one at a time; commands whose last path segment is an
	// int (array element) are grouped by their array's path and
	// reconstructed together.
	arrayGroups := map[string][]Command{}
	var arrayGroupPath = map[string]Path{}
	var direct []Command

	for _, cmd := range op {
		target := cmd.Path
		if cmd.Kind == KindMove {
			target = cmd.ToPath
		}
		if len(target) > 0 {
			if _, isIdx := target[len(target)-1].(int); isIdx {
				key := target[:len(target)-1].Key()
				arrayGroups[key] = append(arrayGroups[key], cmd)
				arrayGroupPath[key] = target[:len(target)-1]
				continue
			}
		}
		direct = append(direct, cmd)
	}

	var err error
	for _, cmd := range direct {
		root, err = applyDirect(root, cmd)
		if err != nil {
			return nil, err
		}
	}

	for key, cmds := range arrayGroups {
		arrPath := arrayGroupPath[key]
		cur, gerr := getAt(root, arrPath)
		if gerr != nil {
			return nil, gerr
		}
		newArr, aerr := applyArrayGroup(cur, cmds)
		if aerr != nil {
			return nil, aerr
		}
		root, err = setAt(root, arrPath, newArr)
		if err != nil {
			return nil, err
		}
	}

	return root, nil
}

func applyDirect(root any, cmd Command) (any, error) {
	switch cmd.Kind {
	case KindInsert, KindReplace:
		return setAt(root, cmd.Path, cloneValue(cmd.Value))
	case KindRemove:
		return removeAt(root, cmd.Path)
	case KindEdit:
		cur, err := getAt(root, cmd.Path)
		if err != nil {
			return nil, err
		}
		s, ok := cur.(string)
		if !ok {
			return nil, fmt.Errorf("ot: edit applied to non-string at %s", cmd.Path.Key())
		}
		newS, err := applyTextEdits(s, cmd.TextEdits)
		if err != nil {
			return nil, err
		}
		return setAt(root, cmd.Path, newS)
	case KindMove:
		// A bare move with no sibling array commands (e.g. a
		// stand-alone transform result): treat as remove-then-insert.
		val, err := getAt(root, cmd.Path)
		if err != nil {
			return nil, err
		}
		root, err = removeAt(root, cmd.Path)
		if err != nil {
			return nil, err
		}
		return setAt(root, cmd.ToPath, cloneValue(val))
	default:
		return root, nil
	}
}

func applyArrayGroup(cur any, cmds []Command) (any, error) {
	arr, _ := cur.([]any)

	removedAt := map[int]bool{}
	movedFrom := map[int]int{}
	replacedAt := map[int]Command{}
	insertedAt := map[int]any{}

	for _, cmd := range cmds {
		switch cmd.Kind {
		case KindRemove:
			removedAt[lastIdx(cmd.Path)] = true
		case KindMove:
			movedFrom[lastIdx(cmd.Path)] = lastIdx(cmd.ToPath)
		case KindInsert:
			insertedAt[lastIdx(cmd.Path)] = cloneValue(cmd.Value)
		default: // KindReplace or KindEdit targeting an element
			replacedAt[lastIdx(cmd.Path)] = cmd
		}
	}

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
		if idx >= 0 && idx < total {
			out[idx] = v
			filled[idx] = true
		}
	}

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

	for idx, cmd := range replacedAt {
		if idx < 0 || idx >= total {
			continue
		}
		var err error
		switch cmd.Kind {
		case KindEdit:
			s, ok := out[idx].(string)
			if !ok {
				return nil, fmt.Errorf("ot: edit applied to non-string array element at index %d", idx)
			}
			out[idx], err = applyTextEdits(s, cmd.TextEdits)
		default:
			out[idx] = cloneValue(cmd.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func lastIdx(p Path) int {
	if len(p) == 0 {
		return -1
	}
	i, _ := p[len(p)-1].(int)
	return i
}

func applyTextEdits(s string, edits []TextEdit) (string, error) {
	runes := []rune(s)
	pos := 0
	var out []rune
	for _, e := range edits {
		switch e.Kind {
		case TextSkip:
			if pos+e.Skip > len(runes) {
				return "", fmt.Errorf("ot: text edit skip past end of string")
			}
			out = append(out, runes[pos:pos+e.Skip]...)
			pos += e.Skip
		case TextInsert:
			out = append(out, []rune(e.Insert)...)
		case TextDelete:
			if pos+e.DeleteCount > len(runes) {
				return "", fmt.Errorf("ot: text edit delete past end of string")
			}
			pos += e.DeleteCount
		}
	}
	out = append(out, runes[pos:]...)
	return string(out), nil
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

func getAt(doc any, path Path) (any, error) {
	cur := doc
	for _, seg := range path {
		switch key := seg.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ot: path segment %q not an object", key)
			}
			cur = m[key]
		case int:
			a, ok := cur.([]any)
			if !ok || key < 0 || key >= len(a) {
				return nil, fmt.Errorf("ot: path index %d out of range", key)
			}
			cur = a[key]
		}
	}
	return cur, nil
}

// setAt returns root with value placed at path, creating intermediate
// objects as needed. It mutates root's containers in place; the
// caller's document is left untouched because Apply deep-copies the
// whole root with cloneValue before applying any command.
func setAt(root any, path Path, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	return setAtRec(root, path, value)
}

func setAtRec(cur any, path Path, value any) (any, error) {
	seg := path[0]
	switch key := seg.(type) {
	case string:
		m, ok := cur.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		if len(path) == 1 {
			m[key] = value
			return m, nil
		}
		child, err := setAtRec(m[key], path[1:], value)
		if err != nil {
			return nil, err
		}
		m[key] = child
		return m, nil
	case int:
		a, _ := cur.([]any)
		for len(a) <= key {
			a = append(a, nil)
		}
		if len(path) == 1 {
			a[key] = value
			return a, nil
		}
		child, err := setAtRec(a[key], path[1:], value)
		if err != nil {
			return nil, err
		}
		a[key] = child
		return a, nil
	default:
		return nil, fmt.Errorf("ot: unsupported path segment type %T", seg)
	}
}

func removeAt(root any, path Path) (any, error) {
	if len(path) == 0 {
		return nil, nil
	}
	parentPath := path[:len(path)-1]
	last := path[len(path)-1]
	parent, err := getAt(root, parentPath)
	if err != nil {
		return nil, err
	}
	switch key := last.(type) {
	case string:
		m, ok := parent.(map[string]any)
		if !ok {
			return root, nil
		}
		delete(m, key)
		return setAt(root, parentPath, m)
	case int:
		a, ok := parent.([]any)
		if !ok || key < 0 || key >= len(a) {
			return root, nil
		}
		out := append(append([]any{}, a[:key]...), a[key+1:]...)
		return setAt(root, parentPath, out)
	default:
		return root, nil
	}
}
