// Package syncengine drives one sync cycle end to end: fetch the
// remote, classify what changed on each side, run the three-way tree
// merge when both sides moved, materialize the result onto the
// working tree and the object store, and push. It also runs that
// cycle on a ticker for live sync, reporting filesystem events as
// change events.
package syncengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/sosuisen/gitdocdb/internal/config"
	"github.com/sosuisen/gitdocdb/internal/docmerge"
	"github.com/sosuisen/gitdocdb/internal/gitstore"
	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
	"github.com/sosuisen/gitdocdb/internal/retry"
	"github.com/sosuisen/gitdocdb/internal/treemerge"
	"github.com/sosuisen/gitdocdb/internal/worktree"
)

// MinLiveSyncInterval is the floor a live-sync ticker is clamped to.
const MinLiveSyncInterval = 3 * time.Second

// DefaultLiveSyncInterval is used when Settings.LiveSyncInterval is unset.
const DefaultLiveSyncInterval = 30 * time.Second

// Settings configures an Engine for the lifetime of one open database.
type Settings struct {
	RemoteName         string
	Branch             string
	Auth               transport.AuthMethod
	Author             model.Signature
	Committer          model.Signature
	MergeOptions       docmerge.Options
	RetryOptions       retry.Options
	CombineStrategy    config.CombineStrategy
	IncludeCommits     bool
	LiveSyncInterval   time.Duration
}

// Engine owns one database's sync cycle and optional live-sync loop.
type Engine struct {
	store     *gitstore.Store
	projector *worktree.Projector
	settings  Settings
	bus       eventBus

	liveStop   chan struct{}
	livePaused chan bool
	liveDone   chan struct{}
}

// New returns an Engine for one open database.
func New(store *gitstore.Store, projector *worktree.Projector, settings Settings) *Engine {
	if settings.RemoteName == "" {
		settings.RemoteName = "origin"
	}
	if settings.Branch == "" {
		settings.Branch = "main"
	}
	return &Engine{store: store, projector: projector, settings: settings}
}

// Subscribe returns a channel of lifecycle events. buf sizes the
// channel; events are dropped (never blocking the cycle) if the
// listener falls behind.
func (e *Engine) Subscribe(buf int) <-chan Event {
	return e.bus.subscribe(buf)
}

func (e *Engine) emit(ev Event) { e.bus.emit(ev) }

func (e *Engine) localRef() string  { return "refs/heads/" + e.settings.Branch }
func (e *Engine) remoteRef() string { return "refs/remotes/" + e.settings.RemoteName + "/" + e.settings.Branch }

// Sync runs exactly one fetch/classify/merge/push cycle.
func (e *Engine) Sync(ctx context.Context) (model.SyncResult, error) {
	e.emit(Event{Kind: EventStart})

	result, err := e.sync(ctx)
	if err != nil {
		e.emit(Event{Kind: EventError, Err: err})
		return model.SyncResult{}, err
	}
	e.emit(Event{Kind: EventComplete, Result: &result})
	return result, nil
}

func (e *Engine) sync(ctx context.Context) (model.SyncResult, error) {
	localHead, err := e.store.ResolveRef(e.localRef())
	if err != nil {
		return model.SyncResult{}, err
	}

	e.emit(Event{Kind: EventProgress, Message: "fetching " + e.settings.RemoteName})
	if _, err := retry.Do(ctx, e.settings.RetryOptions, func() error {
		return e.store.Fetch(ctx, e.settings.RemoteName, e.settings.Branch, e.settings.Auth)
	}); err != nil {
		return model.SyncResult{}, err
	}

	remoteHead, err := e.store.ResolveRef(e.remoteRef())
	if err != nil {
		remoteHead = ""
	}

	if remoteHead == "" {
		if localHead == "" {
			return model.SyncResult{Action: model.ActionNop}, nil
		}
		return e.runPush(ctx, localHead, "")
	}

	mergeBase, err := e.store.FindMergeBase(localHead, remoteHead)
	if kinds.Is(err, kinds.NoMergeBaseFound) {
		return e.runCombine(ctx, localHead, remoteHead)
	}
	if err != nil {
		return model.SyncResult{}, err
	}

	switch classify(localHead, remoteHead, mergeBase) {
	case model.ActionNop:
		return model.SyncResult{Action: model.ActionNop}, nil
	case model.ActionPush:
		return e.runPush(ctx, localHead, remoteHead)
	case model.ActionFastForward:
		return e.runFastForward(ctx, localHead, remoteHead)
	default:
		return e.runMerge(ctx, mergeBase, localHead, remoteHead)
	}
}

func (e *Engine) runPush(ctx context.Context, localHead, remoteHead string) (model.SyncResult, error) {
	e.emit(Event{Kind: EventProgress, Message: "pushing " + e.settings.Branch})
	if _, err := retry.Do(ctx, e.settings.RetryOptions, func() error {
		return e.store.Push(ctx, e.settings.RemoteName, e.settings.Branch, e.settings.Auth, false)
	}); err != nil {
		return model.SyncResult{}, err
	}

	result := model.SyncResult{Action: model.ActionPush}
	if e.settings.IncludeCommits {
		commits, err := e.store.ListCommitsBetween(remoteHead, localHead)
		if err != nil {
			return model.SyncResult{}, err
		}
		result.Commits = &model.SideCommits{Remote: commits}
	}
	return result, nil
}

func (e *Engine) runFastForward(ctx context.Context, localHead, remoteHead string) (model.SyncResult, error) {
	e.emit(Event{Kind: EventProgress, Message: "fast-forwarding to " + remoteHead})

	oldTree, newTree, err := e.treesFor(localHead, remoteHead)
	if err != nil {
		return model.SyncResult{}, err
	}
	changes, err := e.applyToWorkingTree(oldTree, newTree)
	if err != nil {
		return model.SyncResult{}, err
	}
	if err := e.store.UpdateRef(e.localRef(), remoteHead); err != nil {
		return model.SyncResult{}, err
	}

	result := model.SyncResult{Action: model.ActionFastForward, Changes: model.SideChanges{Local: changes}}
	if e.settings.IncludeCommits {
		commits, err := e.store.ListCommitsBetween(localHead, remoteHead)
		if err != nil {
			return model.SyncResult{}, err
		}
		result.Commits = &model.SideCommits{Local: commits}
	}
	return result, nil
}

func (e *Engine) runMerge(ctx context.Context, mergeBase, localHead, remoteHead string) (model.SyncResult, error) {
	e.emit(Event{Kind: EventProgress, Message: "merging"})

	mergeResult, newTreeOID, err := e.mergeTrees(ctx, mergeBase, localHead, remoteHead)
	if err != nil {
		return model.SyncResult{}, err
	}
	if err := e.commitMerge(newTreeOID, localHead, remoteHead, mergeCommitMessage(mergeResult.Conflicts)); err != nil {
		return model.SyncResult{}, err
	}

	if _, err := retry.Do(ctx, e.settings.RetryOptions, func() error {
		return e.store.Push(ctx, e.settings.RemoteName, e.settings.Branch, e.settings.Auth, false)
	}); err != nil {
		return model.SyncResult{}, err
	}

	action := model.ActionMergeAndPush
	if len(mergeResult.Conflicts) > 0 {
		action = model.ActionResolveConflictsAndPush
	}

	result := model.SyncResult{
		Action:    action,
		Changes:   model.SideChanges{Local: mergeResult.Local, Remote: mergeResult.Remote},
		Conflicts: mergeResult.Conflicts,
	}
	if e.settings.IncludeCommits {
		localCommits, err := e.store.ListCommitsBetween(mergeBase, localHead)
		if err != nil {
			return model.SyncResult{}, err
		}
		remoteCommits, err := e.store.ListCommitsBetween(mergeBase, remoteHead)
		if err != nil {
			return model.SyncResult{}, err
		}
		result.Commits = &model.SideCommits{Local: localCommits, Remote: remoteCommits}
	}
	return result, nil
}

// runCombine handles two histories with no shared merge base, per
// Settings.CombineStrategy.
func (e *Engine) runCombine(ctx context.Context, localHead, remoteHead string) (model.SyncResult, error) {
	switch e.settings.CombineStrategy {
	case config.CombineNop:
		return model.SyncResult{Action: model.ActionNop}, nil
	case config.CombineThrow:
		return model.SyncResult{}, kinds.New(kinds.NoMergeBaseFound, "syncengine.runCombine", nil)
	default: // config.CombineHeadWithTheirs
		e.emit(Event{Kind: EventProgress, Message: "combining with remote head"})

		mergeResult, newTreeOID, err := e.mergeTrees(ctx, "", localHead, remoteHead)
		if err != nil {
			return model.SyncResult{}, err
		}
		if err := e.commitMerge(newTreeOID, localHead, remoteHead, "combine database head with theirs"); err != nil {
			return model.SyncResult{}, err
		}
		if _, err := retry.Do(ctx, e.settings.RetryOptions, func() error {
			return e.store.Push(ctx, e.settings.RemoteName, e.settings.Branch, e.settings.Auth, false)
		}); err != nil {
			return model.SyncResult{}, err
		}
		return model.SyncResult{
			Action:  model.ActionCombine,
			Changes: model.SideChanges{Local: mergeResult.Local, Remote: mergeResult.Remote},
		}, nil
	}
}

// mergeTrees runs the three-way tree merge over base/local/remote and
// materializes the merged result as a tree object, without committing.
func (e *Engine) mergeTrees(ctx context.Context, mergeBase, localHead, remoteHead string) (treemerge.Result, string, error) {
	baseTree, err := e.readTree(mergeBase)
	if err != nil {
		return treemerge.Result{}, "", err
	}
	localTree, err := e.readTree(localHead)
	if err != nil {
		return treemerge.Result{}, "", err
	}
	remoteTree, err := e.readTree(remoteHead)
	if err != nil {
		return treemerge.Result{}, "", err
	}

	mergeResult, err := treemerge.Merge(ctx, baseTree, localTree, remoteTree, treemerge.Options{
		MergeOptions:   e.settings.MergeOptions,
		MetadataPrefix: worktree.MetadataDir,
	})
	if err != nil {
		return treemerge.Result{}, "", err
	}

	newTreeOID, err := e.writeMergedTree(mergeResult.Merged, localTree)
	if err != nil {
		return treemerge.Result{}, "", err
	}
	return mergeResult, newTreeOID, nil
}

// commitMerge writes a commit for the given merged tree with parents
// [localHead, remoteHead] and advances the local ref to it.
func (e *Engine) commitMerge(treeOID, localHead, remoteHead, message string) error {
	commitOID, err := e.store.WriteCommit(treeOID, []string{localHead, remoteHead}, e.settings.Author, e.settings.Committer, message)
	if err != nil {
		return err
	}
	return e.store.UpdateRef(e.localRef(), commitOID)
}

// mergeCommitMessage follows the commit-message grammar: plain merges
// use the verb "merge"; conflict resolutions use
// "[resolve conflicts] update-<strategy>: <id>", joined into one
// combined commit message when more than one path conflicted.
func mergeCommitMessage(conflicts []model.Conflict) string {
	if len(conflicts) == 0 {
		return "merge"
	}
	entries := make([]string, len(conflicts))
	for i, c := range conflicts {
		entries[i] = fmt.Sprintf("update-%s: %s", c.Strategy, c.ID)
	}
	return "[resolve conflicts] " + strings.Join(entries, "; ")
}

// readTree flattens a commit's tree into a treemerge.Tree, skipping
// metadata paths. An empty oid (no merge base) yields an empty tree;
// an oid that names no commit is an error.
func (e *Engine) readTree(commitOID string) (treemerge.Tree, error) {
	out := treemerge.Tree{}
	if commitOID == "" {
		return out, nil
	}
	treeOID, err := e.store.CommitTreeOID(commitOID)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ReadTree(treeOID)
	if err != nil {
		return nil, err
	}
	for path, te := range entries {
		if worktree.IsMetadata(path) {
			continue
		}
		data, err := e.store.ReadBlob(te.OID)
		if err != nil {
			return nil, err
		}
		doc, err := worktree.Decode(e.projector.Serialization, data)
		if err != nil {
			return nil, err
		}
		id := e.projector.IDFromRelPath(path)
		out[path] = &model.FatDoc{ID: id, Name: path, Type: model.DocTypeJSON, FileOid: te.OID, Doc: doc}
	}
	return out, nil
}

func (e *Engine) treesFor(localHead, remoteHead string) (treemerge.Tree, treemerge.Tree, error) {
	oldTree, err := e.readTree(localHead)
	if err != nil {
		return nil, nil, err
	}
	newTree, err := e.readTree(remoteHead)
	if err != nil {
		return nil, nil, err
	}
	return oldTree, newTree, nil
}

// applyToWorkingTree materializes newTree onto disk, removing any
// path present in oldTree but absent from newTree, and reports the
// resulting change list.
func (e *Engine) applyToWorkingTree(oldTree, newTree treemerge.Tree) ([]model.ChangedFile, error) {
	var changes []model.ChangedFile
	for path, doc := range newTree {
		if old, ok := oldTree[path]; ok && old.FileOid == doc.FileOid {
			continue
		}
		if _, err := e.projector.Materialize(doc.ID, doc.Doc); err != nil {
			return nil, err
		}
		op := model.FileInsert
		var old *model.FatDoc
		if o, ok := oldTree[path]; ok {
			op, old = model.FileUpdate, o
		}
		changes = append(changes, model.ChangedFile{Operation: op, Old: old, New: doc})
	}
	for path, old := range oldTree {
		if _, ok := newTree[path]; ok {
			continue
		}
		if err := e.projector.Remove(old.ID); err != nil {
			return nil, err
		}
		changes = append(changes, model.ChangedFile{Operation: model.FileDelete, Old: old})
	}
	return changes, nil
}

// writeMergedTree materializes every surviving document in merged
// onto the working tree and the object store, recomputing blob oids
// for entries the tree merger produced fresh (FileOid == ""), and
// removing paths present in priorLocal but absent from merged.
func (e *Engine) writeMergedTree(merged, priorLocal treemerge.Tree) (string, error) {
	entries := map[string]gitstore.TreeEntry{}
	for path, doc := range merged {
		data, err := worktree.Encode(e.projector.Serialization, doc.Doc)
		if err != nil {
			return "", err
		}
		oid := doc.FileOid
		if oid == "" {
			oid = gitstore.HashBlob(data)
		}
		if _, err := e.projector.Materialize(doc.ID, doc.Doc); err != nil {
			return "", err
		}
		if _, err := e.store.WriteBlob(data); err != nil {
			return "", err
		}
		entries[path] = gitstore.TreeEntry{OID: oid}
	}
	for path, old := range priorLocal {
		if _, ok := merged[path]; ok {
			continue
		}
		if err := e.projector.Remove(old.ID); err != nil {
			return "", err
		}
	}
	return e.store.WriteTree(entries)
}
