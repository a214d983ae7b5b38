package checker

// clause is an owning record of a stored clause of size >= 2. The clause is
// threaded onto exactly two watch lists: the list of lits[0] through next[0]
// and the list of lits[1] through next[1]. Unit and empty clauses are never
// stored; their effect is applied directly to the value store.
type clause struct {
	next [2]*clause
	lits []lit
}

// pos returns the watched position of l in the clause. Must only be called
// with one of the clause's two watched literals.
func (cl *clause) pos(l lit) int {
	if cl.lits[0] == l {
		return 0
	}
	return 1
}

// watch links the clause into the watch list of its literal at position p.
func (c *Checker) watch(cl *clause, p int) {
	l := cl.lits[p]
	cl.next[p] = c.watches[l]
	c.watches[l] = cl
}

// unwatch unlinks the clause from the watch list of its literal at position
// q by walking that list.
func (c *Checker) unwatch(cl *clause, q int) {
	l := cl.lits[q]
	ptr := &c.watches[l]
	for *ptr != cl {
		other := *ptr
		ptr = &other.next[other.pos(l)]
	}
	*ptr = cl.next[q]
}

// satisfied reports whether some literal of the clause is true in the
// current value store.
func (c *Checker) satisfied(cl *clause) bool {
	for _, l := range cl.lits {
		if c.values[l] > 0 {
			return true
		}
	}
	return false
}

// allMarked reports whether every literal of the clause is marked. Together
// with a size comparison this is the content-equality test used by Delete.
func (c *Checker) allMarked(cl *clause) bool {
	for _, l := range cl.lits {
		if !c.marks[l] {
			return false
		}
	}
	return true
}
