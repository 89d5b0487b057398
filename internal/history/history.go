// Package history provides a bounded undo/redo stack of immutable
// compensator snapshots.
package history

import (
	"errors"
	"time"

	"github.com/pkarhu/comptune/internal/block"
)

var (
	// ErrNothingToUndo signals the pointer is at the oldest retained entry.
	ErrNothingToUndo = errors.New("history: nothing to undo")
	// ErrNothingToRedo signals the pointer is at the newest entry.
	ErrNothingToRedo = errors.New("history: nothing to redo")
)

// DefaultCapacity bounds retained entries. On overflow the oldest entry is
// dropped silently; deep edit sessions lose their tail instead of growing
// without bound.
const DefaultCapacity = 100

// Entry is one committed state: a deep copy of the block list plus the
// action that produced it. Entries are immutable once committed.
type Entry struct {
	Action string
	At     time.Time
	Blocks []*block.Instance
}

// Log is a stack of entries with a current pointer. Commits advance the
// pointer and drop any redo-able future; undo and redo only move the
// pointer. The caller owns applying a returned snapshot to its live
// compensator.
type Log struct {
	entries []Entry
	cur     int
	cap     int
}

// New returns an empty log. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cur: -1, cap: capacity}
}

// Commit truncates the redo tail, pushes the snapshot, and advances the
// pointer, evicting the oldest entry when over capacity. The log takes
// ownership of blocks; callers pass a fresh deep copy.
func (l *Log) Commit(action string, blocks []*block.Instance) {
	l.entries = append(l.entries[:l.cur+1], Entry{Action: action, At: time.Now(), Blocks: blocks})
	if len(l.entries) > l.cap {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.cap]
	}
	l.cur = len(l.entries) - 1
}

// Undo moves the pointer back one entry and returns it for the caller to
// restore.
func (l *Log) Undo() (Entry, error) {
	if l.cur <= 0 {
		return Entry{}, ErrNothingToUndo
	}
	l.cur--
	return l.entries[l.cur], nil
}

// Redo moves the pointer forward one entry and returns it.
func (l *Log) Redo() (Entry, error) {
	if l.cur >= len(l.entries)-1 {
		return Entry{}, ErrNothingToRedo
	}
	l.cur++
	return l.entries[l.cur], nil
}

// CanUndo reports whether Undo would succeed. Drives UI affordances.
func (l *Log) CanUndo() bool { return l.cur > 0 }

// CanRedo reports whether Redo would succeed.
func (l *Log) CanRedo() bool { return l.cur < len(l.entries)-1 }

// Len counts retained entries.
func (l *Log) Len() int { return len(l.entries) }

// Current returns the entry at the pointer, if any.
func (l *Log) Current() (Entry, bool) {
	if l.cur < 0 {
		return Entry{}, false
	}
	return l.entries[l.cur], true
}
