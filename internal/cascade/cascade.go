// Package cascade holds the compensator: an ordered, mutable list of block
// instances whose aggregate response is the elementwise product of the
// enabled blocks' responses.
package cascade

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/history"
)

// ErrIndexOutOfRange is returned for block indices outside the cascade.
var ErrIndexOutOfRange = errors.New("cascade: index out of range")

// Compensator is an ordered block cascade. Block order defines editing and
// display positions; the numeric response is order-independent. All
// mutations go through the methods below, and each successful mutation
// commits one entry to the attached history, so no observer ever sees a
// half-applied change.
type Compensator struct {
	blocks []*block.Instance
	hist   *history.Log
}

// Option configures a Compensator at construction.
type Option func(*Compensator)

// WithHistory attaches an undo/redo log. The log is seeded with the
// initial (empty) state so the first mutation can be undone.
func WithHistory(h *history.Log) Option {
	return func(c *Compensator) { c.hist = h }
}

// New returns an empty compensator.
func New(opts ...Option) *Compensator {
	c := &Compensator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.hist != nil {
		c.hist.Commit("init", c.Snapshot())
	}
	return c
}

// Len returns the number of blocks, enabled or not.
func (c *Compensator) Len() int { return len(c.blocks) }

// Blocks exposes the cascade for display. Callers must treat the returned
// instances as read-only; edits go through the Compensator operations.
func (c *Compensator) Blocks() []*block.Instance { return c.blocks }

func (c *Compensator) commit(action string) {
	if c.hist != nil {
		c.hist.Commit(action, c.Snapshot())
	}
}

// Add inserts a block at index; index may equal Len to append.
func (c *Compensator) Add(in *block.Instance, index int) error {
	if index < 0 || index > len(c.blocks) {
		return fmt.Errorf("%w: add at %d (len %d)", ErrIndexOutOfRange, index, len(c.blocks))
	}
	c.blocks = append(c.blocks, nil)
	copy(c.blocks[index+1:], c.blocks[index:])
	c.blocks[index] = in
	c.commit("add " + in.Type())
	return nil
}

// Append adds a block at the end of the cascade.
func (c *Compensator) Append(in *block.Instance) error {
	return c.Add(in, len(c.blocks))
}

// Remove deletes the block at index.
func (c *Compensator) Remove(index int) error {
	if index < 0 || index >= len(c.blocks) {
		return fmt.Errorf("%w: remove at %d (len %d)", ErrIndexOutOfRange, index, len(c.blocks))
	}
	name := c.blocks[index].Type()
	c.blocks = append(c.blocks[:index], c.blocks[index+1:]...)
	c.commit("remove " + name)
	return nil
}

// Move relocates the block at from to position to.
func (c *Compensator) Move(from, to int) error {
	n := len(c.blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d (len %d)", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	in := c.blocks[from]
	c.blocks = append(c.blocks[:from], c.blocks[from+1:]...)
	c.blocks = append(c.blocks, nil)
	copy(c.blocks[to+1:], c.blocks[to:])
	c.blocks[to] = in
	c.commit(fmt.Sprintf("move %s %d -> %d", in.Type(), from, to))
	return nil
}

// SetParam updates one parameter of the block at index. Out-of-schema
// values fail with the block package's range error and leave the cascade
// unchanged.
func (c *Compensator) SetParam(index int, name string, value float64) error {
	if index < 0 || index >= len(c.blocks) {
		return fmt.Errorf("%w: block %d (len %d)", ErrIndexOutOfRange, index, len(c.blocks))
	}
	in := c.blocks[index]
	if err := in.SetParam(name, value); err != nil {
		return err
	}
	c.commit(fmt.Sprintf("set %s.%s=%.4g", in.Type(), name, value))
	return nil
}

// SetEnabled toggles the block at index. Disabled blocks keep their
// position; they contribute a multiplicative identity when evaluating.
func (c *Compensator) SetEnabled(index int, enabled bool) error {
	if index < 0 || index >= len(c.blocks) {
		return fmt.Errorf("%w: block %d (len %d)", ErrIndexOutOfRange, index, len(c.blocks))
	}
	in := c.blocks[index]
	if in.Enabled == enabled {
		return nil
	}
	in.Enabled = enabled
	if enabled {
		c.commit("enable " + in.Type())
	} else {
		c.commit("disable " + in.Type())
	}
	return nil
}

// Load replaces the whole cascade in one step, committing a single history
// entry. Used for preset loads so one undo restores the pre-load state.
func (c *Compensator) Load(blocks []*block.Instance, action string) {
	c.blocks = blocks
	c.commit(action)
}

// Evaluate computes the cascade response at every angular frequency in w:
// the elementwise product over the enabled blocks. An empty or
// all-disabled cascade is the all-ones response. Points where any block is
// singular come back as NaN together with an advisory *SingularityError;
// the remaining points are valid.
func (c *Compensator) Evaluate(w []float64) ([]complex128, error) {
	h := make([]complex128, len(w))
	for i := range h {
		h[i] = 1
	}
	var singular []int
	for _, in := range c.blocks {
		if !in.Enabled {
			continue
		}
		bh, err := in.Response(w)
		if err != nil {
			var se *block.SingularityError
			if !errors.As(err, &se) {
				return nil, err
			}
			singular = append(singular, se.Points...)
		}
		cmplxs.Mul(h, bh)
	}
	if singular != nil {
		sort.Ints(singular)
		uniq := singular[:1]
		for _, p := range singular[1:] {
			if p != uniq[len(uniq)-1] {
				uniq = append(uniq, p)
			}
		}
		return h, &block.SingularityError{Points: uniq}
	}
	return h, nil
}

// Snapshot deep-copies the block list. Snapshots never alias live state.
func (c *Compensator) Snapshot() []*block.Instance {
	out := make([]*block.Instance, len(c.blocks))
	for i, in := range c.blocks {
		out[i] = in.Clone()
	}
	return out
}

// Restore replaces the cascade with a copy of snap without touching the
// history. It is the application path for undo and redo.
func (c *Compensator) Restore(snap []*block.Instance) {
	blocks := make([]*block.Instance, len(snap))
	for i, in := range snap {
		blocks[i] = in.Clone()
	}
	c.blocks = blocks
}

// Summary renders the cascade as a single human-readable line.
func (c *Compensator) Summary() string {
	if len(c.blocks) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(c.blocks))
	for i, in := range c.blocks {
		parts[i] = in.String()
	}
	return strings.Join(parts, "; ")
}
