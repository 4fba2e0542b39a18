package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/ruler/internal/ir"
)

// Entry is a pool constraint together with its index in the problem's
// constraint list. The index is the constraint's identity: two identical
// constraints in the input are still consumed separately.
type Entry struct {
	ID         int
	Constraint ir.Constraint
}

// Pool is the working set of constraints not yet consumed by a strategy.
//
// INVARIANTS:
//   - Entries stay in input order
//   - A consumed entry never comes back; Consume fails on a second attempt
//   - Applicable returns a fresh slice, so consuming while a caller still
//     holds an earlier snapshot never disturbs that snapshot
type Pool struct {
	entries []Entry
}

// NewPool builds a pool over a copy of the constraints.
func NewPool(cs []ir.Constraint) *Pool {
	entries := make([]Entry, len(cs))
	for i, c := range cs {
		entries[i] = Entry{ID: i, Constraint: c}
	}
	return &Pool{entries: entries}
}

// Applicable returns the constraints that mention p and whose other
// operands are all visited.
func (p *Pool) Applicable(pt ir.Point, visited map[ir.Point]bool) []Entry {
	var out []Entry
	for _, e := range p.entries {
		if !e.Constraint.Mentions(pt) {
			continue
		}
		ready := true
		for _, q := range e.Constraint.Points {
			if q != pt && !visited[q] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, e)
		}
	}
	return out
}

// Consume removes the entries with the given IDs.
func (p *Pool) Consume(ids ...int) error {
	for _, id := range ids {
		idx := slices.IndexFunc(p.entries, func(e Entry) bool { return e.ID == id })
		if idx < 0 {
			return fmt.Errorf("constraint %d is not in the pool", id)
		}
		p.entries = slices.Delete(p.entries, idx, idx+1)
	}
	return nil
}

// Remaining returns the unconsumed entries in input order.
func (p *Pool) Remaining() []Entry {
	return slices.Clone(p.entries)
}

// Len returns the number of unconsumed entries.
func (p *Pool) Len() int {
	return len(p.entries)
}
