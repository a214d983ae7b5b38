package checker_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmordell/certisat/internal/checker"
	"github.com/lmordell/certisat/internal/sat"
)

// These tests drive the solver end to end with a checker attached: every
// original clause, learnt clause and deletion the solver performs is
// verified online. Any unsound derivation aborts through the intercepted
// hook and fails the test.

func interceptFatal(t *testing.T) {
	t.Helper()
	restore := checker.SetFatalf(func(format string, args ...any) {
		panic(fmt.Sprintf("checker abort: "+format, args...))
	})
	t.Cleanup(restore)
}

func newCheckedSolver(nVars int) (*sat.Solver, *checker.Checker) {
	chk := checker.New()
	ops := sat.DefaultOptions
	ops.Proof = sat.NewCheckedProof(chk)
	s := sat.NewSolver(ops)
	for i := 0; i < nVars; i++ {
		s.AddVariable()
	}
	return s, chk
}

func addClause(t *testing.T, s *sat.Solver, lits ...int) {
	t.Helper()
	clause := make([]sat.Literal, len(lits))
	for i, l := range lits {
		clause[i] = sat.FromDimacs(l)
	}
	require.NoError(t, s.AddClause(clause))
}

// pigeonhole adds the clauses placing n+1 pigeons into n holes: each pigeon
// sits in some hole and no two pigeons share one. The formula is
// unsatisfiable and requires real conflict analysis to refute.
func pigeonhole(t *testing.T, s *sat.Solver, n int) {
	t.Helper()
	hole := func(p, h int) int { return p*n + h + 1 }

	for p := 0; p <= n; p++ {
		lits := make([]int, n)
		for h := 0; h < n; h++ {
			lits[h] = hole(p, h)
		}
		addClause(t, s, lits...)
	}
	for h := 0; h < n; h++ {
		for p := 0; p <= n; p++ {
			for q := p + 1; q <= n; q++ {
				addClause(t, s, -hole(p, h), -hole(q, h))
			}
		}
	}
}

func TestCheckedSolver_Unsat(t *testing.T) {
	interceptFatal(t)

	const holes = 3
	s, chk := newCheckedSolver((holes + 1) * holes)
	pigeonhole(t, s, holes)

	require.Equal(t, sat.False, s.Solve())

	stats := chk.Statistics()
	assert.True(t, chk.Inconsistent(), "refutation must reach the empty clause")
	assert.Greater(t, stats.Learned, int64(0), "refutation must check learnt clauses")

	chk.Release()
}

func TestCheckedSolver_Sat(t *testing.T) {
	interceptFatal(t)

	s, chk := newCheckedSolver(4)
	addClause(t, s, 1, 2)
	addClause(t, s, -1, 3)
	addClause(t, s, -2, 4)
	addClause(t, s, -3, -4, 1)

	require.Equal(t, sat.True, s.Solve())
	assert.False(t, chk.Inconsistent())

	chk.Release()
}

func TestCheckedSolver_ModelEnumeration(t *testing.T) {
	interceptFatal(t)

	s, chk := newCheckedSolver(3)
	addClause(t, s, 1, 2, 3)

	// Enumerate all models by forbidding each one found. The blocking
	// clauses are streamed to the checker like any other original clause.
	models := 0
	for s.Solve() == sat.True {
		models++
		require.LessOrEqual(t, models, 7, "enumeration does not terminate")

		model := s.Models[len(s.Models)-1]
		blocking := make([]sat.Literal, len(model))
		for i, b := range model {
			if b {
				blocking[i] = sat.NegativeLiteral(i)
			} else {
				blocking[i] = sat.PositiveLiteral(i)
			}
		}
		require.NoError(t, s.AddClause(blocking))
	}

	assert.Equal(t, 7, models, "1 v 2 v 3 has exactly 7 models")
	chk.Release()
}
