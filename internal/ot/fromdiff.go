package ot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sosuisen/gitdocdb/internal/jsondiff"
)

// FromDiff lowers a jsondiff.Delta tree into a composed Op. Object
// containers are walked in sorted-key order; array containers are
// scanned twice (new-index keys, then old-index "_n" keys) and
// emitted in a fixed replace/text/remove/move/insert order, so that
// the resulting Op composes into a single deterministic stream.
func FromDiff(d *jsondiff.Delta) Op {
	return walk(nil, d)
}

func walk(path Path, d *jsondiff.Delta) Op {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case jsondiff.KindObject:
		return walkObject(path, d)
	case jsondiff.KindArray:
		return walkArray(path, d)
	default:
		return Op{leafCommand(path, d)}
	}
}

func walkObject(path Path, d *jsondiff.Delta) Op {
	var out Op
	for _, key := range objectKeysSorted(d) {
		child := d.Children[key]
		childPath := path.Append(key)
		if child.Kind == jsondiff.KindObject || child.Kind == jsondiff.KindArray {
			out = out.Append(walk(childPath, child)...)
		} else {
			out = out.Append(leafCommand(childPath, child))
		}
	}
	return out
}

func objectKeysSorted(d *jsondiff.Delta) []string {
	keys := make([]string, 0, len(d.Children))
	for k := range d.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// arrayKey classifies one delta child key: a plain integer (the
// element's position in the NEW array) or an underscore-prefixed
// integer (its position in the OLD array, for a remove or move-out).
type arrayKey struct {
	idx     int
	fromOld bool
}

func parseArrayKey(key string) arrayKey {
	if strings.HasPrefix(key, "_") {
		n, _ := strconv.Atoi(key[1:])
		return arrayKey{idx: n, fromOld: true}
	}
	n, _ := strconv.Atoi(key)
	return arrayKey{idx: n}
}

func walkArray(path Path, d *jsondiff.Delta) Op {
	type keyed struct {
		key   arrayKey
		child *jsondiff.Delta
	}
	var newKeys, oldKeys []keyed
	for raw, child := range d.Children {
		k := parseArrayKey(raw)
		if k.fromOld {
			oldKeys = append(oldKeys, keyed{k, child})
		} else {
			newKeys = append(newKeys, keyed{k, child})
		}
	}
	sort.Slice(newKeys, func(i, j int) bool { return newKeys[i].key.idx < newKeys[j].key.idx })
	sort.Slice(oldKeys, func(i, j int) bool { return oldKeys[i].key.idx < oldKeys[j].key.idx })

	var replaceOps, textOps, removeOps, moveOps, insertOps Op

	for _, kc := range newKeys {
		childPath := path.Append(kc.key.idx)
		switch kc.child.Kind {
		case jsondiff.KindInsert:
			insertOps = insertOps.Append(Command{Kind: KindInsert, Path: childPath, Value: kc.child.NewValue})
		case jsondiff.KindReplace:
			replaceOps = replaceOps.Append(Command{Kind: KindReplace, Path: childPath, OldValue: kc.child.OldValue, Value: kc.child.NewValue})
		case jsondiff.KindTextPatch:
			textOps = textOps.Append(leafCommand(childPath, kc.child))
		case jsondiff.KindObject, jsondiff.KindArray:
			replaceOps = replaceOps.Append(walk(childPath, kc.child)...)
		}
	}

	for _, kc := range oldKeys {
		childPath := path.Append(kc.key.idx)
		switch kc.child.Kind {
		case jsondiff.KindRemove:
			removeOps = removeOps.Append(Command{Kind: KindRemove, Path: childPath, OldValue: kc.child.OldValue})
		case jsondiff.KindMove:
			moveOps = moveOps.Append(Command{
				Kind:   KindMove,
				Path:   childPath,
				ToPath: path.Append(kc.child.MoveTo),
				Value:  kc.child.NewValue,
			})
		}
	}

	var out Op
	out = out.Append(replaceOps...)
	out = out.Append(textOps...)
	out = out.Append(removeOps...)
	out = out.Append(moveOps...)
	out = out.Append(insertOps...)
	return out
}

func leafCommand(path Path, d *jsondiff.Delta) Command {
	switch d.Kind {
	case jsondiff.KindInsert:
		return Command{Kind: KindInsert, Path: path, Value: d.NewValue}
	case jsondiff.KindReplace:
		return Command{Kind: KindReplace, Path: path, OldValue: d.OldValue, Value: d.NewValue}
	case jsondiff.KindRemove:
		return Command{Kind: KindRemove, Path: path, OldValue: d.OldValue}
	case jsondiff.KindTextPatch:
		oldStr, _ := d.OldValue.(string)
		newStr, _ := d.NewValue.(string)
		return Command{Kind: KindEdit, Path: path, TextEdits: lowerTextPatch(oldStr, newStr)}
	case jsondiff.KindMove:
		return Command{Kind: KindMove, Path: path, ToPath: Path{d.MoveTo}, Value: d.NewValue}
	default:
		return Command{}
	}
}
