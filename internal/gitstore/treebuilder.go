package gitstore

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// treeBuilder accumulates a nested directory structure from flat
// paths, then writes one tree object per directory level, deepest
// first, the way WriteTree's flat entries map needs translating into
// git's recursive tree-of-trees shape.
type treeBuilder struct {
	blobs    map[string]TreeEntry
	children map[string]*treeBuilder
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{blobs: map[string]TreeEntry{}, children: map[string]*treeBuilder{}}
}

func (b *treeBuilder) insert(segments []string, entry TreeEntry) {
	if len(segments) == 1 {
		b.blobs[segments[0]] = entry
		return
	}
	child, ok := b.children[segments[0]]
	if !ok {
		child = newTreeBuilder()
		b.children[segments[0]] = child
	}
	child.insert(segments[1:], entry)
}

func (b *treeBuilder) write(s *Store) (string, error) {
	var names []string
	t := &object.Tree{}

	for name := range b.blobs {
		names = append(names, name)
	}
	for name := range b.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if entry, ok := b.blobs[name]; ok {
			t.Entries = append(t.Entries, object.TreeEntry{
				Name: name,
				Mode: filemode.Regular,
				Hash: plumbing.NewHash(entry.OID),
			})
			continue
		}
		childOID, err := b.children[name].write(s)
		if err != nil {
			return "", err
		}
		t.Entries = append(t.Entries, object.TreeEntry{
			Name: name,
			Mode: filemode.Dir,
			Hash: plumbing.NewHash(childOID),
		})
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.treeBuilder.write", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.treeBuilder.write", err)
	}
	return hash.String(), nil
}
