package view

import "sort"

// PatchOp enumerates the edit operations a reconciliation pass can emit.
type PatchOp int

const (
	// OpInsert inserts Entry immediately after position After (-1 inserts
	// at the front).
	OpInsert PatchOp = iota
	// OpRemove removes the entry at position Pos.
	OpRemove
	// OpReplace swaps the entry at position Pos for Entry.
	OpReplace
	// OpClear atomically removes every entry.
	OpClear
)

func (op PatchOp) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpClear:
		return "clear"
	}
	return "unknown"
}

// Patch is one edit against the live view. Positions are interpreted
// against the view as it stands when the patch is applied, so a patch
// sequence must be applied in order.
type Patch struct {
	Op    PatchOp
	Pos   int
	After int
	Entry Entry
}

// Reconcile computes the minimal ordered edit sequence transforming the
// live view into the snapshot read from the cache store, plus the decision
// whether to re-anchor focus to the bottom.
//
// The four empty/non-empty combinations are explicit cases:
//   - both empty: nothing to do, zero patches;
//   - live empty: one insert per snapshot entry, re-anchor (cold start);
//   - snapshot empty: full clear (the channel vanished upstream);
//   - both populated: removes for stale keys, inserts for fresh keys at the
//     position implied by lexical timestamp order, replaces for shared keys
//     whose digest changed.
//
// Re-anchoring happens only if focus already sat on the last entry before
// the pass, so a user who scrolled up is never yanked back down.
func Reconcile(v *View, snapshot []Entry) ([]Patch, bool) {
	wasAtBottom := v.AtBottom()
	live := v.Entries()

	if len(live) == 0 && len(snapshot) == 0 {
		return nil, false
	}
	if len(live) == 0 {
		patches := make([]Patch, 0, len(snapshot))
		for i, e := range snapshot {
			patches = append(patches, Patch{Op: OpInsert, After: i - 1, Entry: e})
		}
		return patches, true
	}
	if len(snapshot) == 0 {
		return []Patch{{Op: OpClear}}, false
	}

	inStore := make(map[string]Entry, len(snapshot))
	for _, e := range snapshot {
		inStore[e.TS] = e
	}
	inLive := make(map[string]struct{}, len(live))
	for _, e := range live {
		inLive[e.TS] = struct{}{}
	}

	var patches []Patch

	// stale: present locally, gone upstream. Removes are emitted at
	// descending positions so earlier removals cannot invalidate later
	// indices.
	for i := len(live) - 1; i >= 0; i-- {
		if _, ok := inStore[live[i].TS]; !ok {
			patches = append(patches, Patch{Op: OpRemove, Pos: i})
		}
	}

	// work tracks the view as it will stand after the removes.
	work := live[:0:0]
	for _, e := range live {
		if _, ok := inStore[e.TS]; ok {
			work = append(work, e)
		}
	}

	// fresh: new messages. Keys that sort after the current tail append;
	// anything else inserts at the slot implied by lexical order.
	for _, e := range snapshot {
		if _, ok := inLive[e.TS]; ok {
			continue
		}
		at := sort.Search(len(work), func(i int) bool { return work[i].TS > e.TS })
		patches = append(patches, Patch{Op: OpInsert, After: at - 1, Entry: e})
		work = append(work, Entry{})
		copy(work[at+1:], work[at:])
		work[at] = e
	}

	// shared: replace where the backing payload's digest moved.
	for i, e := range work {
		se := inStore[e.TS]
		if se.Digest != e.Digest {
			patches = append(patches, Patch{Op: OpReplace, Pos: i, Entry: se})
		}
	}

	if len(patches) == 0 {
		return nil, false
	}
	return patches, wasAtBottom
}
