package sat

import (
	"testing"
)

// recordingProof captures the solver's derivation stream for inspection.
type recordingProof struct {
	originals [][]Literal
	learnts   [][]Literal
	deleted   [][]Literal
}

func (p *recordingProof) snapshot(literals []Literal) []Literal {
	c := make([]Literal, len(literals))
	copy(c, literals)
	return c
}

func (p *recordingProof) OriginalClause(literals []Literal) {
	p.originals = append(p.originals, p.snapshot(literals))
}

func (p *recordingProof) LearntClause(literals []Literal) {
	p.learnts = append(p.learnts, p.snapshot(literals))
}

func (p *recordingProof) DeletedClause(literals []Literal) {
	p.deleted = append(p.deleted, p.snapshot(literals))
}

func newTestSolver(nVars int, proof ProofObserver) *Solver {
	ops := DefaultOptions
	ops.Proof = proof
	s := NewSolver(ops)
	for i := 0; i < nVars; i++ {
		s.AddVariable()
	}
	return s
}

func addClause(t *testing.T, s *Solver, lits ...int) {
	t.Helper()
	clause := make([]Literal, len(lits))
	for i, l := range lits {
		clause[i] = FromDimacs(l)
	}
	if err := s.AddClause(clause); err != nil {
		t.Fatalf("AddClause(%v): %s", lits, err)
	}
}

func TestSolver_ProofStreamsOriginals(t *testing.T) {
	proof := &recordingProof{}
	s := newTestSolver(3, proof)

	addClause(t, s, 1, 2)
	addClause(t, s, -1, 3)

	if got, want := len(proof.originals), 2; got != want {
		t.Fatalf("streamed originals: got %d, want %d", got, want)
	}
	if got, want := proof.originals[0][0], FromDimacs(1); got != want {
		t.Errorf("first streamed literal: got %v, want %v", got, want)
	}
}

func TestSolver_ProofEndsWithEmptyClauseOnUnsat(t *testing.T) {
	proof := &recordingProof{}
	s := newTestSolver(2, proof)

	// 4 clauses over 2 variables: refuted by propagation and analysis.
	addClause(t, s, 1, 2)
	addClause(t, s, 1, -2)
	addClause(t, s, -1, 2)
	addClause(t, s, -1, -2)

	if got := s.Solve(); got != False {
		t.Fatalf("Solve(): got %v, want %v", got, False)
	}

	if len(proof.learnts) == 0 {
		t.Fatal("refutation must stream at least one learnt clause")
	}
	last := proof.learnts[len(proof.learnts)-1]
	if len(last) != 0 {
		t.Errorf("last learnt clause: got %v, want the empty clause", last)
	}
}

func TestSolver_Sat(t *testing.T) {
	s := newTestSolver(3, nil)

	addClause(t, s, 1, 2)
	addClause(t, s, -1, 3)
	addClause(t, s, -2, 3)

	if got := s.Solve(); got != True {
		t.Fatalf("Solve(): got %v, want %v", got, True)
	}
	if len(s.Models) != 1 {
		t.Fatalf("Models: got %d, want 1", len(s.Models))
	}

	model := s.Models[0]
	check := func(lits ...int) bool {
		for _, l := range lits {
			if model[FromDimacs(l).VarID()] == (l > 0) {
				return true
			}
		}
		return false
	}
	if !check(1, 2) || !check(-1, 3) || !check(-2, 3) {
		t.Errorf("model %v does not satisfy the formula", model)
	}
}
