// Package database wires together the object store, working-tree
// projector, task queue, and sync engine into the public handle a
// caller opens once per working directory.
package database

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sosuisen/gitdocdb/internal/config"
	"github.com/sosuisen/gitdocdb/internal/docid"
	"github.com/sosuisen/gitdocdb/internal/docmerge"
	"github.com/sosuisen/gitdocdb/internal/gitstore"
	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
	"github.com/sosuisen/gitdocdb/internal/retry"
	"github.com/sosuisen/gitdocdb/internal/syncengine"
	"github.com/sosuisen/gitdocdb/internal/taskqueue"
	"github.com/sosuisen/gitdocdb/internal/worktree"
)

// defaultBranch is the single branch a Database tracks; gitdocdb has
// no concept of multiple branches per working directory.
const defaultBranch = "main"

const metadataInfoID = ".gitddb/info"

// Database is one open working directory: its Git object store, the
// on-disk projection of its documents, a serialized write queue, and
// any sync remotes registered against it.
type Database struct {
	path      string
	opts      config.Options
	store     *gitstore.Store
	projector *worktree.Projector
	queue     *taskqueue.Queue
	ids       *docid.Generator
	author    model.Signature
	committer model.Signature

	mu        sync.Mutex
	syncs     map[string]*syncengine.Engine
	syncNames map[string]string
	closed    bool
}

// Open opens the database at opts.LocalDir, initializing it with its
// bootstrap commits if no repository exists there yet. It fails with
// kinds.DatabaseAlreadyOpen if this process already has that directory open.
func Open(opts config.Options) (*Database, error) {
	path, err := canonicalPath(opts.LocalDir)
	if err != nil {
		return nil, err
	}

	sig := model.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail}
	db := &Database{
		path:      path,
		opts:      opts,
		ids:       docid.NewGenerator(),
		author:    sig,
		committer: sig,
		syncs:     map[string]*syncengine.Engine{},
		syncNames: map[string]string{},
	}

	if err := registerOpen(path, db); err != nil {
		return nil, err
	}

	store, isNew, err := openOrInitStore(path)
	if err != nil {
		unregisterOpen(path)
		return nil, err
	}
	db.store = store
	db.projector = worktree.New(path, serializationOf(opts.Serialization))
	db.queue = taskqueue.New()

	if isNew {
		if err := db.bootstrap(); err != nil {
			unregisterOpen(path)
			return nil, err
		}
	}

	return db, nil
}

func openOrInitStore(path string) (*gitstore.Store, bool, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		store, err := gitstore.Open(path)
		return store, false, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, false, kinds.New(kinds.CannotCreateDirectory, "database.Open", err)
	}
	store, err := gitstore.Init(path)
	return store, true, err
}

// bootstrap writes the three commits a freshly initialized database
// starts with: an empty root commit, the database-id info document,
// and the appinfo document.
func (db *Database) bootstrap() error {
	emptyTreeOID, err := db.store.WriteTree(map[string]gitstore.TreeEntry{})
	if err != nil {
		return err
	}
	rootOID, err := db.store.WriteCommit(emptyTreeOID, nil, db.author, db.committer, "first commit")
	if err != nil {
		return err
	}
	if err := db.store.UpdateRef(db.localRef(), rootOID); err != nil {
		return err
	}

	dbID := db.ids.New("")
	if _, err := db.commitDocument(metadataInfoID, map[string]any{
		"_id":     metadataInfoID,
		"dbId":    dbID,
		"creator": "gitdocdb",
		"version": "1",
	}, "set database id"); err != nil {
		return err
	}

	appInfoID := worktree.MetadataDir + "/app"
	_, err = db.commitDocument(appInfoID, map[string]any{
		"_id":    appInfoID,
		"dbName": db.opts.DBName,
	}, "put appinfo")
	return err
}

func (db *Database) localRef() string { return "refs/heads/" + defaultBranch }

func serializationOf(s string) worktree.Serialization {
	switch s {
	case "front-matter":
		return worktree.SerializationFrontMatter
	case "yaml":
		return worktree.SerializationYAML
	default:
		return worktree.SerializationJSON
	}
}

func strategyOf(s string) model.Strategy {
	switch s {
	case "ours":
		return model.StrategyOurs
	case "theirs":
		return model.StrategyTheirs
	case "theirs-diff":
		return model.StrategyTheirsDiff
	case "user-defined":
		return model.StrategyUserDefined
	default:
		return model.StrategyOursDiff
	}
}

func (db *Database) mergeOptions() docmerge.Options {
	return docmerge.Options{
		Strategy:         strategyOf(db.opts.ConflictResolutionStrategy),
		KeyOfUniqueArray: db.opts.KeyOfUniqueArray,
	}
}

func (db *Database) retryOptions() retry.Options {
	return retry.Options{MaxAttempts: db.opts.NetworkRetry, Interval: db.opts.NetworkRetryInterval}
}

// Close drains the task queue (see taskqueue.Queue.Close for the
// timeout/force contract) and unregisters this handle.
func (db *Database) Close(timeout time.Duration, force bool) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	for _, eng := range db.syncs {
		eng.StopLiveSync()
	}
	db.closed = true
	db.mu.Unlock()

	err := db.queue.Close(timeout, force)
	unregisterOpen(db.path)
	return err
}

// Destroy closes the database and removes its working directory
// (including the .git directory) from disk. It is irreversible.
func (db *Database) Destroy() error {
	if err := db.Close(db.opts.NetworkTimeout, true); err != nil {
		return err
	}
	if err := os.RemoveAll(db.path); err != nil {
		return kinds.New(kinds.CannotCreateDirectory, "database.Destroy", err)
	}
	return nil
}

// Path returns the canonical working directory this handle owns.
func (db *Database) Path() string { return db.path }
