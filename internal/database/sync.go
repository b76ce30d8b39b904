package database

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
	"github.com/sosuisen/gitdocdb/internal/syncengine"
	"github.com/sosuisen/gitdocdb/internal/taskqueue"
)

// RegisterSync adds (or replaces) a remote, returning the Engine that
// drives sync cycles against it. Database keeps at most one Engine per
// remoteURL.
func (db *Database) RegisterSync(remoteURL string, auth transport.AuthMethod) (*syncengine.Engine, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	name := remoteName(len(db.syncs))
	if err := db.store.AddRemote(name, remoteURL); err != nil {
		return nil, err
	}

	eng := syncengine.New(db.store, db.projector, syncengine.Settings{
		RemoteName:       name,
		Branch:           defaultBranch,
		Auth:             auth,
		Author:           db.author,
		Committer:        db.committer,
		MergeOptions:     db.mergeOptions(),
		RetryOptions:     db.retryOptions(),
		CombineStrategy:  db.opts.CombineDBStrategy,
		IncludeCommits:   db.opts.IncludeCommits,
		LiveSyncInterval: db.opts.Interval,
	})
	db.syncs[remoteURL] = eng
	db.syncNames[remoteURL] = name
	return eng, nil
}

// UnregisterSync stops any live-sync loop and removes the remote
// registered against remoteURL.
func (db *Database) UnregisterSync(remoteURL string) error {
	db.mu.Lock()
	eng, ok := db.syncs[remoteURL]
	if !ok {
		db.mu.Unlock()
		return kinds.New(kinds.DocumentNotFound, "database.UnregisterSync", nil)
	}
	name := db.syncNames[remoteURL]
	delete(db.syncs, remoteURL)
	delete(db.syncNames, remoteURL)
	db.mu.Unlock()

	eng.StopLiveSync()
	return db.store.RemoveRemote(name)
}

// Sync runs one sync cycle against remoteURL, registering it first if
// this is the first call for that remote. The cycle itself is
// serialized through the task queue like any other write.
func (db *Database) Sync(ctx context.Context, remoteURL string, auth transport.AuthMethod) (model.SyncResult, error) {
	eng, err := db.syncEngineFor(remoteURL, auth)
	if err != nil {
		return model.SyncResult{}, err
	}

	future, err := db.queue.Submit(taskqueue.Task{
		Label: "sync " + remoteURL,
		Run: func(taskCtx context.Context) (any, error) {
			return eng.Sync(taskCtx)
		},
	})
	if err != nil {
		return model.SyncResult{}, err
	}
	val, err := future.Wait(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}
	return val.(model.SyncResult), nil
}

// StartLiveSync begins periodic sync against remoteURL until StopLiveSync
// or Close is called.
func (db *Database) StartLiveSync(ctx context.Context, remoteURL string, auth transport.AuthMethod) error {
	eng, err := db.syncEngineFor(remoteURL, auth)
	if err != nil {
		return err
	}
	return eng.StartLiveSync(ctx)
}

// StopLiveSync halts the live-sync loop for remoteURL, if running.
func (db *Database) StopLiveSync(remoteURL string) {
	db.mu.Lock()
	eng, ok := db.syncs[remoteURL]
	db.mu.Unlock()
	if ok {
		eng.StopLiveSync()
	}
}

func (db *Database) syncEngineFor(remoteURL string, auth transport.AuthMethod) (*syncengine.Engine, error) {
	db.mu.Lock()
	eng, ok := db.syncs[remoteURL]
	db.mu.Unlock()
	if ok {
		return eng, nil
	}
	return db.RegisterSync(remoteURL, auth)
}

func remoteName(index int) string {
	if index == 0 {
		return "origin"
	}
	return fmt.Sprintf("remote%d", index+1)
}
