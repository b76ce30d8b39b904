package ot

// Transform merges two concurrently-produced ops into one Op safe to
// apply on top of their common ancestor, resolving any command that
// touches the same or a nested path on both sides in favor of
// priority's side. Every dropped loser command is recorded as a
// Conflict so a caller can surface what was overwritten.
//
// Conflict detection never raises an error: a colliding pair simply
// produces one dropped command and one recorded Conflict, so the
// result is always a usable Op.
func Transform(opOurs, opTheirs Op, priority Priority) (Op, []Conflict) {
	var winner, loser Op
	if priority == PriorityOurs {
		winner, loser = opOurs, opTheirs
	} else {
		winner, loser = opTheirs, opOurs
	}

	var conflicts []Conflict
	kept := make(Op, 0, len(loser))
	for _, lc := range loser {
		if wc, ok := firstConflict(lc, winner); ok {
			conflicts = append(conflicts, Conflict{Path: conflictKey(lc, wc), Winner: wc, Loser: lc})
			continue
		}
		kept = append(kept, lc)
	}

	merged := make(Op, 0, len(winner)+len(kept))
	merged = append(merged, winner...)
	merged = append(merged, kept...)
	return merged, conflicts
}

func firstConflict(cmd Command, against Op) (Command, bool) {
	for _, other := range against {
		if commandsConflict(cmd, other) {
			return other, true
		}
	}
	return Command{}, false
}

// commandsConflict reports whether a and b touch overlapping parts of
// the document: one command's path is a prefix of (or equal to) the
// other's, counting a Move's destination as a second touched path.
func commandsConflict(a, b Command) bool {
	for _, pa := range touchedPaths(a) {
		for _, pb := range touchedPaths(b) {
			if pa.HasPrefix(pb) || pb.HasPrefix(pa) {
				return true
			}
		}
	}
	return false
}

func touchedPaths(c Command) []Path {
	if c.Kind == KindMove {
		return []Path{c.Path, c.ToPath}
	}
	return []Path{c.Path}
}

func conflictKey(a, b Command) string {
	if len(a.Path) >= len(b.Path) {
		return a.Path.Key()
	}
	return b.Path.Key()
}
