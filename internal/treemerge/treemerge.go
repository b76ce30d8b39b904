// Package treemerge walks three document trees — base, local, and
// remote — over the union of their paths and applies the eleven-case
// resolution table: most cases resolve mechanically (an add, a
// delete, or an update visible on only one side); the two case where
// both sides touched the same path differently are routed to package
// docmerge.
package treemerge

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sosuisen/gitdocdb/internal/docmerge"
	"github.com/sosuisen/gitdocdb/internal/model"
)

// Tree is a flat snapshot of a document tree: path (the document's
// storage-layer Name) to its FatDoc. A path absent from the map means
// the file doesn't exist at that point in history.
type Tree map[string]*model.FatDoc

// Options configures one merge pass.
type Options struct {
	MergeOptions docmerge.Options

	// MetadataPrefix paths are skipped entirely — neither merged nor
	// reported as changes (the reserved database-metadata directory).
	MetadataPrefix string
}

// Result is the outcome of merging base/local/remote: the resulting
// tree, per-side changes to project, and any conflicts the document
// merger resolved.
type Result struct {
	Merged    Tree
	Local     []model.ChangedFile
	Remote    []model.ChangedFile
	Conflicts []model.Conflict
}

type pathResult struct {
	path      string
	doc       *model.FatDoc
	deleted   bool
	local     *model.ChangedFile
	remote    *model.ChangedFile
	conflict  *model.Conflict
}

// Merge walks the union of base/local/remote paths concurrently and
// resolves each according to the (baseHasBlob, localHasBlob,
// remoteHasBlob) case table.
func Merge(ctx context.Context, base, local, remote Tree, opts Options) (Result, error) {
	paths := unionPaths(base, local, remote, opts.MetadataPrefix)

	results := make([]*pathResult, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			r, err := resolvePath(p, base[p], local[p], remote[p], opts.MergeOptions)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	merged := Tree{}
	var out Result
	for _, r := range results {
		if r == nil {
			continue
		}
		if !r.deleted && r.doc != nil {
			merged[r.path] = r.doc
		}
		if r.local != nil {
			out.Local = append(out.Local, *r.local)
		}
		if r.remote != nil {
			out.Remote = append(out.Remote, *r.remote)
		}
		if r.conflict != nil {
			out.Conflicts = append(out.Conflicts, *r.conflict)
		}
	}
	out.Merged = merged
	return out, nil
}

func unionPaths(base, local, remote Tree, metadataPrefix string) []string {
	set := map[string]struct{}{}
	for _, t := range []Tree{base, local, remote} {
		for p := range t {
			if metadataPrefix != "" && hasPrefix(p, metadataPrefix) {
				continue
			}
			set[p] = struct{}{}
		}
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func hasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

// resolvePath applies the case table for one path given whether it
// exists in base/local/remote (A/B/C in the spec's notation) and,
// when present on more than one side, whether the oids match.
func resolvePath(path string, base, local, remote *model.FatDoc, mergeOpts docmerge.Options) (*pathResult, error) {
	switch {
	case base == nil && local == nil && remote != nil:
		// Case 1: accept remote add.
		return &pathResult{path: path, doc: remote,
			local: &model.ChangedFile{Operation: model.FileInsert, New: remote}}, nil

	case base == nil && local != nil && remote == nil:
		// Case 2: keep local add, nothing to project remotely (the
		// caller pushes it; no remote-side change entry is emitted
		// here since remote hasn't seen it yet).
		return &pathResult{path: path, doc: local}, nil

	case base == nil && local != nil && remote != nil && local.FileOid == remote.FileOid:
		// Case 3: both sides added the identical content.
		return &pathResult{path: path, doc: local}, nil

	case base == nil && local != nil && remote != nil:
		// Case 4: both added differently — doc merge with nil base.
		merged, conflict, err := docmerge.Merge(nil, local, remote, mergeOpts)
		if err != nil {
			return nil, err
		}
		doc := withBody(local, merged)
		return &pathResult{path: path, doc: doc, conflict: &conflict,
			local:  &model.ChangedFile{Operation: model.FileUpdate, Old: local, New: doc},
			remote: &model.ChangedFile{Operation: model.FileUpdate, Old: remote, New: doc}}, nil

	case base != nil && local != nil && remote != nil && base.FileOid == local.FileOid && local.FileOid == remote.FileOid:
		// Case 5: unchanged on both sides.
		return &pathResult{path: path, doc: base}, nil

	case base != nil && local == nil && remote != nil && base.FileOid == remote.FileOid:
		// Case 6: local deleted, remote unchanged — accept the local
		// deletion (push the delete).
		return &pathResult{path: path, deleted: true,
			remote: &model.ChangedFile{Operation: model.FileDelete, Old: base}}, nil

	case base != nil && local != nil && remote == nil && base.FileOid == local.FileOid:
		// Case 7: remote deleted, local unchanged — accept the remote
		// deletion (remove locally).
		return &pathResult{path: path, deleted: true,
			local: &model.ChangedFile{Operation: model.FileDelete, Old: base}}, nil

	case base != nil && local == nil && remote == nil:
		// Case 8: already deleted on both sides.
		return &pathResult{path: path, deleted: true}, nil

	case base != nil && local != nil && remote != nil && local.FileOid != base.FileOid && remote.FileOid == base.FileOid:
		// Case 9: accept local update.
		return &pathResult{path: path, doc: local}, nil

	case base != nil && local != nil && remote != nil && local.FileOid == base.FileOid && remote.FileOid != base.FileOid:
		// Case 10: accept remote update.
		return &pathResult{path: path, doc: remote,
			local: &model.ChangedFile{Operation: model.FileUpdate, Old: base, New: remote}}, nil

	case base != nil && local != nil && remote != nil:
		// Case 11: same file diverged on both sides — doc merge with base.
		merged, conflict, err := docmerge.Merge(base, local, remote, mergeOpts)
		if err != nil {
			return nil, err
		}
		doc := withBody(local, merged)
		return &pathResult{path: path, doc: doc, conflict: &conflict,
			local:  &model.ChangedFile{Operation: model.FileUpdate, Old: local, New: doc},
			remote: &model.ChangedFile{Operation: model.FileUpdate, Old: remote, New: doc}}, nil

	default:
		// base != nil, local == nil, remote != nil, oids differ: remote
		// changed a file local deleted — treat as remote update winning,
		// mirroring case 7's "accept remote" precedence for deletions
		// that raced with a content change.
		if remote != nil {
			return &pathResult{path: path, doc: remote,
				local: &model.ChangedFile{Operation: model.FileInsert, New: remote}}, nil
		}
		return &pathResult{path: path, deleted: true}, nil
	}
}

func withBody(template *model.FatDoc, merged map[string]any) *model.FatDoc {
	out := *template
	out.Doc = merged
	out.FileOid = ""
	return &out
}
