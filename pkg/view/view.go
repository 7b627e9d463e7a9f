// Package view holds the in-memory ordered projection of the active
// conversation and the reconciliation engine that keeps it consistent with
// the cache store. The view is only ever mutated by applying patches
// produced here; no other component may splice it directly. Reads are safe
// from any goroutine.
package view

import "sync"

// Entry is one rendered message position: its ordering key and the digest
// of the payload it was rendered with.
type Entry struct {
	TS     string
	Digest string
}

// View is the live ordered projection. Focus is tracked by key, not index,
// so patches elsewhere in the sequence never move it. Mutation belongs to
// the single owning goroutine; the lock exists so observers (status
// endpoints, tests) can read concurrently.
type View struct {
	mu      sync.RWMutex
	entries []Entry
	focus   string
}

// Entries returns a copy of the current ordered entries.
func (v *View) Entries() []Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Len returns the number of entries.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Keys returns the ordered timestamp keys.
func (v *View) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.TS
	}
	return out
}

// Focus returns the key of the focused entry, or "" when nothing is
// focused.
func (v *View) Focus() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.focus
}

// SetFocus moves focus to the entry with the given key. An unknown key
// clears focus.
func (v *View) SetFocus(ts string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index(ts) >= 0 {
		v.focus = ts
		return
	}
	v.focus = ""
}

// AtBottom reports whether the view's focus sits on the last entry. An
// empty view and an unfocused view both count as bottom-anchored, so
// background updates keep following the tail until the user scrolls away.
func (v *View) AtBottom() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.entries) == 0 || v.focus == "" {
		return true
	}
	return v.focus == v.entries[len(v.entries)-1].TS
}

// index returns the position of the entry with key ts, or -1. Callers must
// hold the lock.
func (v *View) index(ts string) int {
	for i, e := range v.entries {
		if e.TS == ts {
			return i
		}
	}
	return -1
}

// Apply mutates the view by the given patch sequence. Positions in each
// patch refer to the view state at the moment that patch is applied. When
// reanchor is set, focus moves to the last entry afterwards; otherwise the
// focused key is preserved if it survived the patches.
func (v *View) Apply(patches []Patch, reanchor bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range patches {
		switch p.Op {
		case OpClear:
			v.entries = nil
		case OpRemove:
			if p.Pos < 0 || p.Pos >= len(v.entries) {
				continue
			}
			v.entries = append(v.entries[:p.Pos], v.entries[p.Pos+1:]...)
		case OpInsert:
			at := p.After + 1
			if at < 0 {
				at = 0
			}
			if at > len(v.entries) {
				at = len(v.entries)
			}
			v.entries = append(v.entries, Entry{})
			copy(v.entries[at+1:], v.entries[at:])
			v.entries[at] = p.Entry
		case OpReplace:
			if p.Pos < 0 || p.Pos >= len(v.entries) {
				continue
			}
			v.entries[p.Pos] = p.Entry
		}
	}
	if reanchor {
		if n := len(v.entries); n > 0 {
			v.focus = v.entries[n-1].TS
		} else {
			v.focus = ""
		}
		return
	}
	if v.focus != "" && v.index(v.focus) < 0 {
		v.focus = ""
	}
}
