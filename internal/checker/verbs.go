package checker

import (
	"fmt"
	"strings"
)

// AddLiteral appends the external literal e to the pending clause. The
// pending clause is closed by the next verb.
func (c *Checker) AddLiteral(e int) {
	c.handle("add literal")
	c.pending.Push(c.importLiteral("add literal", e))
}

// AddOriginal adds the pending clause as an original (input) clause.
func (c *Checker) AddOriginal() {
	c.handle("add original clause")
	c.logPending("original")
	if c.inconsistent {
		c.clearPending()
		return
	}
	if c.normalize() {
		return
	}
	c.install()
	c.maybeCollect()
	c.stats.Original++
}

// AddLearned verifies that the pending clause is implied by the current
// clause database through unit propagation, then adds it. A clause that
// is not implied is a verification failure and aborts the process.
func (c *Checker) AddLearned() {
	c.handle("add learned clause")
	c.logPending("learned")
	if c.inconsistent {
		c.clearPending()
		return
	}
	if c.normalize() {
		return
	}
	if !c.implied() {
		fatalf("add learned clause: clause %s not implied", c.pendingString())
	}
	c.install()
	c.maybeCollect()
	c.stats.Learned++
}

// Delete removes the stored clause whose literal set matches the pending
// clause exactly. Deleting a clause that is not in the store is a
// verification failure and aborts the process.
func (c *Checker) Delete() {
	c.handle("delete clause")
	c.logPending("delete")
	if c.inconsistent {
		c.clearPending()
		return
	}
	if c.normalize() {
		return
	}

	// The pending literals are marked by normalize, so a stored clause
	// matches iff it has the pending size and only marked literals. The
	// clause can only be reached through the watch lists of its two
	// watched literals, both of which are pending literals.
	size := c.pending.Len()
	for i := 0; i < size; i++ {
		l := c.pending.At(i)
		ptr := &c.watches[l]
		for *ptr != nil {
			cl := *ptr
			p := cl.pos(l)
			if len(cl.lits) == size && c.allMarked(cl) {
				*ptr = cl.next[p]
				c.unwatch(cl, 1-p)
				cl.lits = nil
				c.stats.Live--
				c.stats.Deleted++
				c.clearPending()
				return
			}
			ptr = &cl.next[p]
		}
	}

	fatalf("delete clause: clause %s requested to delete not found", c.pendingString())
}

// normalize collapses duplicate literals of the pending clause and detects
// trivial clauses: clauses containing a root-true literal or both a literal
// and its negation. It returns true and resets the scratchpad if the clause
// is trivial; otherwise the surviving literals are pairwise distinct, none
// is true at root, and exactly they are marked until the verb returns.
func (c *Checker) normalize() bool {
	j := 0
	for i := 0; i < c.pending.Len(); i++ {
		l := c.pending.At(i)
		if c.marks[l] {
			continue // duplicate
		}
		if c.marks[l.not()] || c.values[l] > 0 {
			c.pending.Truncate(j)
			c.clearPending()
			return true
		}
		c.marks[l] = true
		c.pending.Set(j, l)
		j++
	}
	c.pending.Truncate(j)
	return false
}

// install stores the normalized pending clause. False literals are dropped
// first; depending on how many literals survive, the clause raises the
// inconsistency flag, forces a unit, or becomes a watched clause record.
// The scratchpad and marks are reset on every path.
func (c *Checker) install() {
	j := 0
	for i := 0; i < c.pending.Len(); i++ {
		l := c.pending.At(i)
		if c.values[l] < 0 {
			c.marks[l] = false
			continue
		}
		c.pending.Set(j, l)
		j++
	}
	c.pending.Truncate(j)

	switch j {
	case 0:
		c.inconsistent = true
	case 1:
		c.assign(c.pending.At(0))
		if !c.propagate() {
			c.inconsistent = true
		}
		c.drainTrail()
		c.newUnits++
	default:
		cl := &clause{lits: make([]lit, j)}
		for i := 0; i < j; i++ {
			cl.lits[i] = c.pending.At(i)
		}
		c.watch(cl, 0)
		c.watch(cl, 1)
		c.stats.Live++
	}

	c.clearPending()
}

// implied runs the asymmetric-tautology check on the normalized pending
// clause: the clause is implied iff some of its literals is already true,
// or assigning the negations of its unassigned literals in order produces
// a propagation conflict. The empty clause is accepted as is; installing
// it raises the inconsistency flag. All temporary assignments are undone.
func (c *Checker) implied() bool {
	if c.pending.IsEmpty() {
		return true
	}
	ok := false
	for i := 0; i < c.pending.Len() && !ok; i++ {
		l := c.pending.At(i)
		switch {
		case c.values[l] > 0:
			ok = true
		case c.values[l] == 0:
			c.assign(l.not())
			if !c.propagate() {
				ok = true
			}
		}
	}
	c.backtrack()
	return ok
}

// clearPending resets the marks of the pending literals and empties the
// scratchpad. Every verb ends through here so that marks never survive a
// single operation.
func (c *Checker) clearPending() {
	for i := 0; i < c.pending.Len(); i++ {
		c.marks[c.pending.At(i)] = false
	}
	c.pending.Clear()
}

// pendingString renders the pending clause in external form for error
// reporting.
func (c *Checker) pendingString() string {
	sb := strings.Builder{}
	for i := 0; i < c.pending.Len(); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", c.pending.At(i).external())
	}
	return sb.String()
}

// logPending logs the pending clause before it is processed.
func (c *Checker) logPending(kind string) {
	if !c.logging {
		return
	}
	ext := make([]int, c.pending.Len())
	for i := range ext {
		ext[i] = c.pending.At(i).external()
	}
	c.logger.Debug().Str("type", kind).Ints("clause", ext).Msg("checking")
}
