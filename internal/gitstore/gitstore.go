// Package gitstore is the Git object gateway: it opens, initializes,
// and clones a repository, reads and writes blobs/trees/commits, and
// drives fetch/push against a remote, all through go-git so the rest
// of the database never shells out to a git binary.
package gitstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
)

// Store wraps one go-git repository.
type Store struct {
	repo *git.Repository
	root string
}

// Open opens an existing repository at root.
func Open(root string) (*Store, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, kinds.New(kinds.CannotCreateDirectory, "gitstore.Open", err)
	}
	return &Store{repo: repo, root: root}, nil
}

// Init creates a new repository at root.
func Init(root string) (*Store, error) {
	repo, err := git.PlainInit(root, false)
	if err != nil {
		return nil, kinds.New(kinds.CannotCreateDirectory, "gitstore.Init", err)
	}
	return &Store{repo: repo, root: root}, nil
}

// Clone clones url into root, using auth if non-nil.
func Clone(ctx context.Context, root, url string, auth transport.AuthMethod) (*Store, error) {
	repo, err := git.PlainCloneContext(ctx, root, false, &git.CloneOptions{
		URL:  url,
		Auth: auth,
	})
	if err != nil {
		return nil, mapTransportErr("gitstore.Clone", err)
	}
	return &Store{repo: repo, root: root}, nil
}

// Root returns the repository's working directory.
func (s *Store) Root() string { return s.root }

// ReadCommit returns a normalized view of the commit named by oid.
func (s *Store) ReadCommit(oid string) (model.Commit, error) {
	c, err := s.repo.CommitObject(plumbing.NewHash(oid))
	if err != nil {
		return model.Commit{}, kinds.New(kinds.DocumentNotFound, "gitstore.ReadCommit", err)
	}
	return commitToModel(c), nil
}

// CommitTreeOID returns the oid of the tree a commit points at, for
// use with ReadTree.
func (s *Store) CommitTreeOID(commitOID string) (string, error) {
	c, err := s.repo.CommitObject(plumbing.NewHash(commitOID))
	if err != nil {
		return "", kinds.New(kinds.DocumentNotFound, "gitstore.CommitTreeOID", err)
	}
	return c.TreeHash.String(), nil
}

func commitToModel(c *object.Commit) model.Commit {
	parents := make([]string, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = p.String()
	}
	return model.Commit{
		OID:     c.Hash.String(),
		Message: c.Message,
		Parents: parents,
		Author: model.Signature{
			Name: c.Author.Name, Email: c.Author.Email, Timestamp: c.Author.When,
		},
		Committer: model.Signature{
			Name: c.Committer.Name, Email: c.Committer.Email, Timestamp: c.Committer.When,
		},
	}
}

// TreeEntry is one file in a tree, keyed by its path in ReadTree's result.
type TreeEntry struct {
	OID string
}

// ReadTree flattens the tree at oid into path -> TreeEntry for every
// blob (recursing into subtrees); it does not include subtree entries
// themselves.
func (s *Store) ReadTree(oid string) (map[string]TreeEntry, error) {
	t, err := s.repo.TreeObject(plumbing.NewHash(oid))
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ReadTree", err)
	}
	out := map[string]TreeEntry{}
	walker := object.NewTreeWalker(t, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ReadTree", err)
		}
		if !entry.Mode.IsFile() {
			continue
		}
		out[name] = TreeEntry{OID: entry.Hash.String()}
	}
	return out, nil
}

// ReadBlob returns a blob's content.
func (s *Store) ReadBlob(oid string) ([]byte, error) {
	blob, err := s.repo.BlobObject(plumbing.NewHash(oid))
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ReadBlob", err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ReadBlob", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// HashBlob computes a blob's oid without writing it to the object
// store, letting the working-tree projector decide whether content
// actually changed before paying a write.
func HashBlob(data []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, data).String()
}

// WriteBlob stores data as a blob and returns its oid.
func (s *Store) WriteBlob(data []byte) (string, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.WriteBlob", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.WriteBlob", err)
	}
	w.Close()
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.WriteBlob", err)
	}
	return hash.String(), nil
}

// WriteTree builds and stores a tree from a flat path -> blob-oid map,
// creating the nested subtree objects the paths imply.
func (s *Store) WriteTree(entries map[string]TreeEntry) (string, error) {
	root := newTreeBuilder()
	for path, e := range entries {
		root.insert(splitPath(path), e)
	}
	return root.write(s)
}

// WriteCommit stores a new commit object and returns its oid.
func (s *Store) WriteCommit(treeOID string, parents []string, author, committer model.Signature, message string) (string, error) {
	parentHashes := make([]plumbing.Hash, len(parents))
	for i, p := range parents {
		parentHashes[i] = plumbing.NewHash(p)
	}
	c := &object.Commit{
		Author:       object.Signature{Name: author.Name, Email: author.Email, When: signatureTime(author)},
		Committer:    object.Signature{Name: committer.Name, Email: committer.Email, When: signatureTime(committer)},
		Message:      message,
		TreeHash:     plumbing.NewHash(treeOID),
		ParentHashes: parentHashes,
	}
	obj := s.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.WriteCommit", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", kinds.New(kinds.CannotCreateDirectory, "gitstore.WriteCommit", err)
	}
	return hash.String(), nil
}

func signatureTime(sig model.Signature) time.Time {
	if sig.Timestamp.IsZero() {
		return time.Now()
	}
	return sig.Timestamp
}

// AddRemote registers a remote named name pointing at url, replacing
// any existing remote with that name.
func (s *Store) AddRemote(name, url string) error {
	if err := s.repo.DeleteRemote(name); err != nil && err != git.ErrRemoteNotFound {
		return kinds.New(kinds.CannotCreateRemote, "gitstore.AddRemote", err)
	}
	_, err := s.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil {
		return kinds.New(kinds.CannotCreateRemote, "gitstore.AddRemote", err)
	}
	return nil
}

// RemoveRemote deletes a previously added remote.
func (s *Store) RemoveRemote(name string) error {
	if err := s.repo.DeleteRemote(name); err != nil && err != git.ErrRemoteNotFound {
		return kinds.New(kinds.CannotCreateRemote, "gitstore.RemoveRemote", err)
	}
	return nil
}

// HistoryForPath returns the commits (newest first) that touched path,
// starting from headOID.
func (s *Store) HistoryForPath(headOID, path string) ([]model.Commit, error) {
	iter, err := s.repo.Log(&git.LogOptions{From: plumbing.NewHash(headOID), FileName: &path})
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.HistoryForPath", err)
	}
	defer iter.Close()

	var commits []model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, commitToModel(c))
		return nil
	})
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.HistoryForPath", err)
	}
	return commits, nil
}

// ResolveRef returns the oid a ref currently points to.
func (s *Store) ResolveRef(name string) (string, error) {
	ref, err := s.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return "", kinds.New(kinds.DocumentNotFound, "gitstore.ResolveRef", err)
	}
	return ref.Hash().String(), nil
}

// UpdateRef sets a ref to point at oid.
func (s *Store) UpdateRef(name, oid string) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(oid))
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return kinds.New(kinds.CannotCreateDirectory, "gitstore.UpdateRef", err)
	}
	return nil
}

// FindMergeBase returns the merge base of a and b, or
// kinds.NoMergeBaseFound if their histories share no ancestor.
func (s *Store) FindMergeBase(a, b string) (string, error) {
	ca, err := s.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", kinds.New(kinds.DocumentNotFound, "gitstore.FindMergeBase", err)
	}
	cb, err := s.repo.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", kinds.New(kinds.DocumentNotFound, "gitstore.FindMergeBase", err)
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", kinds.New(kinds.NoMergeBaseFound, "gitstore.FindMergeBase", err)
	}
	if len(bases) == 0 {
		return "", kinds.New(kinds.NoMergeBaseFound, "gitstore.FindMergeBase", fmt.Errorf("no common ancestor between %s and %s", a, b))
	}
	return bases[0].Hash.String(), nil
}

// Fetch fetches ref from remote.
func (s *Store) Fetch(ctx context.Context, remote, ref string, auth transport.AuthMethod) error {
	refSpec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", ref, remote, ref)
	err := s.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return mapTransportErr("gitstore.Fetch", err)
	}
	return nil
}

// Push pushes ref to remote, optionally forced.
func (s *Store) Push(ctx context.Context, remote, ref string, auth transport.AuthMethod, force bool) error {
	refSpec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", ref, ref)
	if force {
		refSpec = "+" + refSpec
	}
	r, err := s.repo.Remote(remote)
	if err != nil {
		return kinds.New(kinds.CannotCreateRemote, "gitstore.Push", err)
	}
	err = r.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		if err == transport.ErrAuthenticationRequired || err == transport.ErrAuthorizationFailed {
			return kinds.New(kinds.PushPermissionDenied, "gitstore.Push", err)
		}
		if isNonFastForward(err) {
			return kinds.New(kinds.NonFastForwardPush, "gitstore.Push", err)
		}
		return kinds.New(kinds.PushConnectionFailed, "gitstore.Push", err)
	}
	return nil
}

func isNonFastForward(err error) bool {
	return err == git.ErrNonFastForwardUpdate
}

func mapTransportErr(op string, err error) error {
	switch err {
	case transport.ErrAuthenticationRequired, transport.ErrAuthorizationFailed:
		return kinds.New(kinds.FetchPermissionDenied, op, err)
	case transport.ErrRepositoryNotFound:
		return kinds.New(kinds.RemoteRepositoryNotFound, op, err)
	default:
		return kinds.New(kinds.HTTPNetwork, op, err)
	}
}

// ListCommitsBetween returns the commits reachable from newOID but
// not from oldOID, ordered oldest-first and excluding oldOID itself.
func (s *Store) ListCommitsBetween(oldOID, newOID string) ([]model.Commit, error) {
	excluded := map[plumbing.Hash]bool{}
	if oldOID != "" {
		oldIter, err := s.repo.Log(&git.LogOptions{From: plumbing.NewHash(oldOID)})
		if err == nil {
			err = oldIter.ForEach(func(c *object.Commit) error { excluded[c.Hash] = true; return nil })
			oldIter.Close()
		}
		if err != nil {
			return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ListCommitsBetween", err)
		}
	}

	iter, err := s.repo.Log(&git.LogOptions{From: plumbing.NewHash(newOID)})
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ListCommitsBetween", err)
	}
	defer iter.Close()

	var commits []model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if !excluded[c.Hash] {
			commits = append(commits, commitToModel(c))
		}
		return nil
	})
	if err != nil {
		return nil, kinds.New(kinds.DocumentNotFound, "gitstore.ListCommitsBetween", err)
	}

	reversed := make([]model.Commit, len(commits))
	for i, c := range commits {
		reversed[len(commits)-1-i] = c
	}
	return reversed, nil
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}
