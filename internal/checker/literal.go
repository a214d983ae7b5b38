package checker

import "math"

// lit is an internal literal. Bit 0 holds the sign and the remaining bits
// the variable index, so that a literal and its negation always occupy
// adjacent slots in the per-literal tables.
type lit int

// not returns the negation of the literal.
func (l lit) not() lit {
	return l ^ 1
}

// external converts the literal back to its DIMACS form: variable v > 0 is
// literal v for positive polarity and -v for negative.
func (l lit) external() int {
	e := int(l)/2 + 1
	if l&1 != 0 {
		return -e
	}
	return e
}

// importLiteral maps the external literal e to its internal form, growing
// the per-literal tables if either polarity of e falls outside them. The
// literals 0 and math.MinInt are invalid usage.
func (c *Checker) importLiteral(op string, e int) lit {
	if e == 0 || e == math.MinInt {
		fatalf("%s: invalid external literal %d", op, e)
	}
	v := e
	if v < 0 {
		v = -v
	}
	l := lit(2 * (v - 1))
	if e < 0 {
		l++
	}
	c.grow(l | 1)
	return l
}

// grow widens the value, mark and watch tables so that literal l (and its
// negation) can be used as an index. Tables are grown to the next power of
// two; existing slots keep their content, new slots are zero.
func (c *Checker) grow(l lit) {
	if int(l) < len(c.values) {
		return
	}
	capa := len(c.values)
	if capa == 0 {
		capa = 2
	}
	for capa <= int(l) {
		capa *= 2
	}

	values := make([]int8, capa)
	copy(values, c.values)
	c.values = values

	marks := make([]bool, capa)
	copy(marks, c.marks)
	c.marks = marks

	watches := make([]*clause, capa)
	copy(watches, c.watches)
	c.watches = watches
}
