// Package checker implements an online proof checker for the DRUP fragment
// of DRAT. It accompanies a running SAT solver: every original clause,
// every learnt clause and every deletion the solver performs is replayed
// against the checker's own clause database, and any operation that is not
// sound with respect to that database aborts the process.
//
// Clauses are streamed literal by literal with AddLiteral and closed with
// one of the verbs AddOriginal, AddLearned or Delete. The checker keeps a
// two-watched-literal index over its clauses and certifies each learnt
// clause as an asymmetric tautology: assigning the negations of its
// literals and propagating must yield a conflict.
package checker

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// gcInterval is the base cooldown, in add operations, between two
// collections of root-satisfied clauses. The effective cooldown grows
// arithmetically with the number of collections performed.
const gcInterval = 10_000

// fatalf reports an unrecoverable condition and aborts the process. It is
// a variable so that tests can intercept the abort.
var fatalf = func(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}

// Statistics are the counters accumulated by a Checker over its lifetime.
type Statistics struct {
	// Original is the number of original clauses added.
	Original int64
	// Learned is the number of learnt clauses checked and added.
	Learned int64
	// Deleted is the number of deletions processed.
	Deleted int64
	// Collected is the number of root-satisfied clauses reclaimed by
	// garbage collection.
	Collected int64
	// Collections is the number of garbage collections performed.
	Collections int64
	// Live is the number of clauses currently stored.
	Live int64
}

// Checker is an online DRUP proof checker. A Checker is owned by a single
// caller and must not be used concurrently. All failures are terminal: an
// unsound operation, an invalid usage or an exhausted allocation aborts
// the process.
type Checker struct {
	// Per-literal tables, indexed by internal literal and grown together
	// by doubling.
	values  []int8
	marks   []bool
	watches []*clause

	// Trail of currently assigned literals with the propagation cursor
	// into it, and the scratchpad holding the pending clause.
	trail      *Stack[lit]
	propagated int
	pending    *Stack[lit]

	// Once inconsistent is set, verbs still drain the pending clause but
	// no longer mutate the clause store.
	inconsistent bool

	// Collection scheduling.
	newUnits    int
	countdown   int
	collections int64

	stats Statistics

	verbose   bool
	logging   bool
	leakCheck bool
	logger    zerolog.Logger
	out       io.Writer
}

// New returns a checker in the initial empty state.
func New() *Checker {
	return &Checker{
		trail:     NewStack[lit](64),
		pending:   NewStack[lit](16),
		countdown: gcInterval,
		logger:    log.Logger,
		out:       os.Stdout,
	}
}

// EnableVerbose makes the checker print a short message after each
// garbage collection and a statistics block on Release. Semantics are
// unaffected.
func (c *Checker) EnableVerbose() {
	c.handle("enable verbose")
	c.verbose = true
}

// EnableLogging makes the checker log every pending clause in external
// form before processing it. Semantics are unaffected.
func (c *Checker) EnableLogging() {
	c.handle("enable logging")
	c.logging = true
}

// EnableLeakChecking makes Release abort if clauses that are not
// root-satisfied remain in the store of a consistent checker.
func (c *Checker) EnableLeakChecking() {
	c.handle("enable leak checking")
	c.leakCheck = true
}

// Statistics returns a snapshot of the checker's counters.
func (c *Checker) Statistics() Statistics {
	c.handle("statistics")
	s := c.stats
	s.Collections = c.collections
	return s
}

// Inconsistent reports whether the checker has derived the empty clause.
func (c *Checker) Inconsistent() bool {
	c.handle("inconsistent")
	return c.inconsistent
}

// Release frees all clauses and tables. With leak checking enabled it
// aborts if a consistent checker still stores clauses that are not
// root-satisfied; with verbose enabled it prints the final statistics.
func (c *Checker) Release() {
	c.handle("release")

	c.backtrack()
	c.detachSecondWatches()

	remained := 0
	for i := range c.watches {
		cl := c.watches[i]
		for cl != nil {
			next := cl.next[0]
			if !c.satisfied(cl) {
				remained++
			}
			cl.lits = nil
			cl = next
		}
		c.watches[i] = nil
	}

	if c.verbose {
		c.printStatistics(remained)
	}

	leak := c.leakCheck && !c.inconsistent && remained > 0
	c.values = nil
	c.marks = nil
	c.watches = nil
	c.trail = nil
	c.pending = nil

	if leak {
		if remained == 1 {
			fatalf("release: 1 clause remained")
		} else {
			fatalf("release: %d clauses remained", remained)
		}
	}
}

// handle aborts on a zero checker handle. Every exported operation calls
// it with its own name so that invalid usage is reported precisely.
func (c *Checker) handle(op string) {
	if c == nil {
		fatalf("%s: zero checker handle", op)
	}
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// printStatistics writes the teardown statistics block as DIMACS comment
// lines.
func (c *Checker) printStatistics(remained int) {
	added := c.stats.Original + c.stats.Learned
	fmt.Fprintf(c.out, "c [checker] %d original clauses added\n", c.stats.Original)
	fmt.Fprintf(c.out, "c [checker] %d learned clauses checked (%.0f%% of added)\n",
		c.stats.Learned, percent(c.stats.Learned, added))
	fmt.Fprintf(c.out, "c [checker] %d deletions processed\n", c.stats.Deleted)
	fmt.Fprintf(c.out, "c [checker] %d satisfied clauses collected in %d collections\n",
		c.stats.Collected, c.collections)
	fmt.Fprintf(c.out, "c [checker] %d clauses remained (%.0f%% of added)\n",
		remained, percent(int64(remained), added))
}
