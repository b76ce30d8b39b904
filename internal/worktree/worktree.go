package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
)

// MetadataDir is the reserved directory prefix holding database-level
// info documents; paths under it are excluded from change reporting.
const MetadataDir = ".gitddb"

// DefaultRemoveTimeout bounds how long Remove waits for a concurrent
// writer to release a file before giving up.
const DefaultRemoveTimeout = 7 * time.Second

// Projector materializes and removes documents under one working
// directory, using a fixed serialization mode.
type Projector struct {
	Root          string
	Serialization Serialization
	RemoveTimeout time.Duration
}

// New returns a Projector rooted at dir.
func New(dir string, s Serialization) *Projector {
	return &Projector{Root: dir, Serialization: s, RemoveTimeout: DefaultRemoveTimeout}
}

// PathFor returns the absolute on-disk path for a document id.
func (p *Projector) PathFor(id string) string {
	return filepath.Join(p.Root, filepath.FromSlash(id)+p.Serialization.Postfix())
}

// RelPath returns the path for id relative to Root, using forward
// slashes regardless of OS (this is also the git tree path).
func (p *Projector) RelPath(id string) string {
	return id + p.Serialization.Postfix()
}

// IDFromRelPath strips the serialization postfix from a tree-relative
// path to recover the document's _id.
func (p *Projector) IDFromRelPath(relPath string) string {
	return strings.TrimSuffix(relPath, p.Serialization.Postfix())
}

// IsMetadata reports whether a tree-relative path falls under the
// reserved metadata directory.
func IsMetadata(relPath string) bool {
	return relPath == MetadataDir || strings.HasPrefix(relPath, MetadataDir+"/")
}

// Materialize writes doc to its canonical path, creating parent
// directories as needed, and returns the blob content written.
func (p *Projector) Materialize(id string, doc map[string]any) ([]byte, error) {
	data, err := Encode(p.Serialization, doc)
	if err != nil {
		return nil, err
	}
	path := p.PathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, kinds.New(kinds.CannotCreateDirectory, "worktree.Materialize", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, kinds.New(kinds.CannotCreateDirectory, "worktree.Materialize", err)
	}
	return data, nil
}

// Remove deletes the file for id and prunes any now-empty ancestor
// directories up to Root. A file that is already gone counts as
// removed; any other removal error is retried every 50ms up to
// RemoveTimeout before giving up with a file-remove-timeout kind.
func (p *Projector) Remove(id string) error {
	path := p.PathFor(id)
	timeout := p.RemoveTimeout
	if timeout == 0 {
		timeout = DefaultRemoveTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			return kinds.New(kinds.FileRemoveTimeout, "worktree.Remove", fmt.Errorf("removing %s: %w", path, err))
		}
		time.Sleep(50 * time.Millisecond)
	}

	p.pruneEmptyAncestors(filepath.Dir(path))
	return nil
}

func (p *Projector) pruneEmptyAncestors(dir string) {
	root := filepath.Clean(p.Root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Read loads and decodes the document for id, if present.
func (p *Projector) Read(id string) (map[string]any, error) {
	data, err := os.ReadFile(p.PathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kinds.New(kinds.DocumentNotFound, "worktree.Read", err)
		}
		return nil, kinds.New(kinds.CannotCreateDirectory, "worktree.Read", err)
	}
	return Decode(p.Serialization, data)
}

// FatDocFor builds a FatDoc for id from its on-disk body and blob oid.
func (p *Projector) FatDocFor(id string, fileOID string, doc map[string]any) model.FatDoc {
	return model.FatDoc{
		ID:      id,
		Name:    p.RelPath(id),
		Type:    model.DocTypeJSON,
		FileOid: fileOID,
		Doc:     doc,
	}
}
