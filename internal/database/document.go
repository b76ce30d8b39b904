package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sosuisen/gitdocdb/internal/gitstore"
	"github.com/sosuisen/gitdocdb/internal/kinds"
	"github.com/sosuisen/gitdocdb/internal/model"
	"github.com/sosuisen/gitdocdb/internal/taskqueue"
	"github.com/sosuisen/gitdocdb/internal/worktree"
)

// Put inserts or updates the document named id, generating a
// monotonic id when id is empty. The write is serialized through the
// task queue so it never races a concurrent Put/Delete/Sync.
func (db *Database) Put(id string, doc map[string]any) (model.FatDoc, error) {
	future, err := db.queue.Submit(taskqueue.Task{
		Label: "put " + id,
		Run: func(ctx context.Context) (any, error) {
			return db.put(id, doc)
		},
	})
	if err != nil {
		return model.FatDoc{}, err
	}
	val, err := future.Wait(context.Background())
	if err != nil {
		return model.FatDoc{}, err
	}
	return val.(model.FatDoc), nil
}

// Delete removes the document named id.
func (db *Database) Delete(id string) error {
	future, err := db.queue.Submit(taskqueue.Task{
		Label: "delete " + id,
		Run: func(ctx context.Context) (any, error) {
			return nil, db.removeDocument(id)
		},
	})
	if err != nil {
		return err
	}
	_, err = future.Wait(context.Background())
	return err
}

// Get reads a document directly from the working tree, bypassing the
// task queue entirely (readers never wait on writers).
func (db *Database) Get(id string) (model.FatDoc, error) {
	doc, err := db.projector.Read(id)
	if err != nil {
		return model.FatDoc{}, err
	}
	data, err := worktree.Encode(db.projector.Serialization, doc)
	if err != nil {
		return model.FatDoc{}, err
	}
	return db.projector.FatDocFor(id, gitstore.HashBlob(data), doc), nil
}

// Find returns every document whose id starts with prefix, in the
// lexical file-path order of the working-tree walk.
func (db *Database) Find(prefix string) ([]model.FatDoc, error) {
	var out []model.FatDoc
	err := filepath.WalkDir(db.path, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(db.path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if worktree.IsMetadata(rel) || strings.HasPrefix(rel, ".git") {
			return nil
		}
		id := db.projector.IDFromRelPath(rel)
		if !strings.HasPrefix(id, prefix) {
			return nil
		}
		doc, err := db.Get(id)
		if err != nil {
			return err
		}
		out = append(out, doc)
		return nil
	})
	if err != nil {
		return nil, kinds.New(kinds.CannotCreateDirectory, "database.Find", err)
	}
	return out, nil
}

// GetHistory returns every commit (newest first) that touched id.
func (db *Database) GetHistory(id string) ([]model.Commit, error) {
	head, err := db.store.ResolveRef(db.localRef())
	if err != nil {
		return nil, err
	}
	return db.store.HistoryForPath(head, db.projector.RelPath(id))
}

// put is Put's body, run on the task queue's consumer goroutine.
func (db *Database) put(id string, doc map[string]any) (model.FatDoc, error) {
	if id == "" {
		id = db.ids.New(db.opts.NamePrefix)
	}
	doc["_id"] = id

	blobOID, err := db.commitDocument(id, doc, "")
	if err != nil {
		return model.FatDoc{}, err
	}
	return db.projector.FatDocFor(id, blobOID, doc), nil
}

// commitDocument materializes doc to disk, writes its blob and a new
// tree reflecting the change, and commits on top of the current HEAD.
// If message is empty, the standard "<verb>: <id><postfix>(<shortOid>)" grammar
// is used; bootstrap commits pass their own fixed message instead.
func (db *Database) commitDocument(id string, doc map[string]any, message string) (string, error) {
	verb := "insert"
	if _, err := db.projector.Read(id); err == nil {
		verb = "update"
	}

	data, err := db.projector.Materialize(id, doc)
	if err != nil {
		return "", err
	}
	blobOID, err := db.store.WriteBlob(data)
	if err != nil {
		return "", err
	}

	relPath := db.projector.RelPath(id)
	newTreeOID, err := db.updateTree(relPath, &blobOID)
	if err != nil {
		return "", err
	}

	if message == "" {
		message = fmt.Sprintf("%s: %s(%s)", verb, relPath, shortOID(blobOID))
	}
	if err := db.commit(newTreeOID, message); err != nil {
		return "", err
	}
	return blobOID, nil
}

func (db *Database) removeDocument(id string) error {
	relPath := db.projector.RelPath(id)
	head, err := db.store.ResolveRef(db.localRef())
	if err != nil {
		return err
	}
	treeOID, err := db.store.CommitTreeOID(head)
	if err != nil {
		return err
	}
	entries, err := db.store.ReadTree(treeOID)
	if err != nil {
		return err
	}
	entry, existed := entries[relPath]
	if !existed {
		return kinds.New(kinds.DocumentNotFound, "database.Delete", nil)
	}

	if err := db.projector.Remove(id); err != nil {
		return err
	}
	newTreeOID, err := db.updateTree(relPath, nil)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("delete: %s(%s)", relPath, shortOID(entry.OID))
	return db.commit(newTreeOID, message)
}

// updateTree rewrites the current HEAD tree with relPath set to
// newOID (or removed, when newOID is nil) and returns the new tree's oid.
func (db *Database) updateTree(relPath string, newOID *string) (string, error) {
	head, err := db.store.ResolveRef(db.localRef())
	if err != nil {
		return "", err
	}
	treeOID, err := db.store.CommitTreeOID(head)
	if err != nil {
		return "", err
	}
	entries, err := db.store.ReadTree(treeOID)
	if err != nil {
		return "", err
	}
	if newOID == nil {
		delete(entries, relPath)
	} else {
		entries[relPath] = gitstore.TreeEntry{OID: *newOID}
	}
	return db.store.WriteTree(entries)
}

func (db *Database) commit(treeOID, message string) error {
	head, err := db.store.ResolveRef(db.localRef())
	if err != nil {
		return err
	}
	commitOID, err := db.store.WriteCommit(treeOID, []string{head}, db.author, db.committer, message)
	if err != nil {
		return err
	}
	return db.store.UpdateRef(db.localRef(), commitOID)
}

func shortOID(oid string) string {
	if len(oid) <= 7 {
		return oid
	}
	return oid[:7]
}
