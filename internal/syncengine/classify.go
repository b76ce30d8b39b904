package syncengine

import "github.com/sosuisen/gitdocdb/internal/model"

// classify picks a sync cycle's tentative action from the three oids
// involved: the local branch tip, the remote branch tip as last
// fetched, and their merge base. An empty mergeBase means the two
// histories share no common ancestor at all.
//
// The table mirrors what each combination means for a single branch
// shared between exactly two remotes (local and one named remote):
//
//	local == remote                        -> nop, nothing to do
//	mergeBase == ""                        -> combine, no shared history
//	local == mergeBase, remote != mergeBase -> fast-forward, pull only
//	remote == mergeBase, local != mergeBase -> push, local only
//	otherwise                               -> merge-and-push, both sides moved
//
// merge-and-push is only ever tentative: resolvePath may or may not
// produce conflicts, and the caller upgrades the action to
// resolve-conflicts-and-push after the tree merge runs.
func classify(local, remote, mergeBase string) model.SyncAction {
	switch {
	case local == remote:
		return model.ActionNop
	case mergeBase == "":
		return model.ActionCombine
	case local == mergeBase && remote != mergeBase:
		return model.ActionFastForward
	case remote == mergeBase && local != mergeBase:
		return model.ActionPush
	default:
		return model.ActionMergeAndPush
	}
}
