package checker

import (
	"fmt"
	"math"
)

// maybeCollect ticks the collection cooldown and runs a collection once it
// has elapsed, provided at least one new unit was derived since the last
// collection and the checker is still consistent. Called once per add
// operation.
func (c *Checker) maybeCollect() {
	c.countdown--
	if c.countdown > 0 || c.newUnits == 0 || c.inconsistent {
		return
	}
	c.collect()
}

// detachSecondWatches unlinks every clause from the watch list of its
// position-1 literal, leaving each live clause reachable from exactly one
// list: that of its position-0 literal.
func (c *Checker) detachSecondWatches() {
	for i := range c.watches {
		l := lit(i)
		ptr := &c.watches[i]
		for *ptr != nil {
			cl := *ptr
			if cl.lits[1] == l {
				*ptr = cl.next[1]
			} else {
				ptr = &cl.next[0]
			}
		}
	}
}

// collect reclaims every clause containing a root-true literal and
// reschedules the next collection with an arithmetically larger cooldown.
//
// The collection walks clauses through their first watch only: second
// watches are detached up front and reconnected at the end, so that each
// clause is visited once by the sweep. During reconnection a clause found
// through its position-1 link has already been relinked when the list of
// its position-0 literal was walked, and is skipped.
func (c *Checker) collect() {
	c.detachSecondWatches()

	collected := int64(0)
	for i := range c.watches {
		ptr := &c.watches[i]
		for *ptr != nil {
			cl := *ptr
			if c.satisfied(cl) {
				*ptr = cl.next[0]
				cl.lits = nil
				collected++
			} else {
				ptr = &cl.next[0]
			}
		}
	}

	for i := range c.watches {
		l := lit(i)
		cl := c.watches[i]
		for cl != nil {
			p := cl.pos(l)
			next := cl.next[p]
			if p == 0 {
				c.watch(cl, 1)
			}
			cl = next
		}
	}

	c.stats.Collected += collected
	c.stats.Live -= collected
	c.collections++
	c.newUnits = 0

	if c.collections+1 > math.MaxInt/gcInterval {
		c.countdown = math.MaxInt
	} else {
		c.countdown = gcInterval * int(c.collections+1)
	}

	if c.verbose {
		fmt.Fprintf(c.out, "c [checker] collection %d reclaimed %d satisfied clauses\n",
			c.collections, collected)
	}
}
