// Package model holds the data types shared across the database's
// subsystems: the document/FatDoc/commit shapes, the conflict
// resolution strategy enum, and the tagged sync result returned to
// callers and event listeners.
package model

import "time"

// DocType classifies a FatDoc's body.
type DocType string

const (
	DocTypeJSON   DocType = "json"
	DocTypeText   DocType = "text"
	DocTypeBinary DocType = "binary"
)

// FatDoc is a document plus its storage-layer identity: the on-disk
// file name (including postfix), its content type, the blob oid, and
// the parsed body (nil for binary).
type FatDoc struct {
	ID      string
	Name    string
	Type    DocType
	FileOid string
	Doc     map[string]any
	Body    []byte // raw bytes for DocTypeBinary/DocTypeText
}

// Strategy is a document-merge conflict resolution policy.
type Strategy string

const (
	StrategyOurs       Strategy = "ours"
	StrategyTheirs     Strategy = "theirs"
	StrategyOursDiff   Strategy = "ours-diff"
	StrategyTheirsDiff Strategy = "theirs-diff"
	StrategyUserDefined Strategy = "user-defined"
)

// Signature is a commit author or committer identity.
type Signature struct {
	Name      string
	Email     string
	Timestamp time.Time
}

// Commit is a normalized view of a Git commit.
type Commit struct {
	OID     string
	Message string
	Parents []string
	Author    Signature
	Committer Signature
}

// ShortOID returns the first 7 characters of the commit oid.
func (c Commit) ShortOID() string {
	if len(c.OID) <= 7 {
		return c.OID
	}
	return c.OID[:7]
}

// FileOperation tags what happened to a file between two trees.
type FileOperation string

const (
	FileInsert FileOperation = "insert"
	FileUpdate FileOperation = "update"
	FileDelete FileOperation = "delete"
)

// ChangedFile describes one file's transition between two tree
// states, with Old/New populated according to Operation.
type ChangedFile struct {
	Operation FileOperation
	Old       *FatDoc
	New       *FatDoc
}

// Conflict records one document-merge conflict resolution.
type Conflict struct {
	ID        string
	Strategy  Strategy
	Operation FileOperation
}

// SyncAction is the outcome category of one sync cycle.
type SyncAction string

const (
	ActionNop                     SyncAction = "nop"
	ActionPush                    SyncAction = "push"
	ActionFastForward             SyncAction = "fast-forward merge"
	ActionMergeAndPush            SyncAction = "merge and push"
	ActionResolveConflictsAndPush SyncAction = "resolve conflicts and push"
	ActionCombine                 SyncAction = "combine database with theirs"
	ActionCanceled                SyncAction = "canceled"
)

// SideChanges pairs the local and remote change lists one sync
// produced, from each side's point of view.
type SideChanges struct {
	Local  []ChangedFile
	Remote []ChangedFile
}

// SideCommits pairs the local and remote commit lists spanned by one
// sync, populated only when the caller asked for IncludeCommits.
type SideCommits struct {
	Local  []Commit
	Remote []Commit
}

// SyncResult is the typed outcome of one sync cycle, emitted both as
// a task's resolved value and to event listeners.
type SyncResult struct {
	Action    SyncAction
	Commits   *SideCommits
	Changes   SideChanges
	Conflicts []Conflict
}
