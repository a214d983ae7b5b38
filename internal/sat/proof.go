package sat

import (
	"github.com/lmordell/certisat/internal/checker"
)

// ProofObserver receives the solver's clausal derivations as a DRUP stream:
// every original clause before it enters the database, every learnt clause
// when it is recorded (the empty clause when the problem is refuted), and
// every clause deletion. Observers must not retain the literal slices they
// are given.
type ProofObserver interface {
	OriginalClause(literals []Literal)
	LearntClause(literals []Literal)
	DeletedClause(literals []Literal)
}

// CheckedProof forwards the solver's derivations to an online DRUP checker,
// converting literals to their DIMACS form on the way. An unsound
// derivation aborts the process: see the checker package.
type CheckedProof struct {
	checker *checker.Checker
}

// NewCheckedProof returns a CheckedProof feeding the given checker.
func NewCheckedProof(c *checker.Checker) *CheckedProof {
	return &CheckedProof{checker: c}
}

func (p *CheckedProof) push(literals []Literal) {
	for _, l := range literals {
		p.checker.AddLiteral(l.Dimacs())
	}
}

func (p *CheckedProof) OriginalClause(literals []Literal) {
	p.push(literals)
	p.checker.AddOriginal()
}

func (p *CheckedProof) LearntClause(literals []Literal) {
	p.push(literals)
	p.checker.AddLearned()
}

func (p *CheckedProof) DeletedClause(literals []Literal) {
	p.push(literals)
	p.checker.Delete()
}
