// Package sat implements a CDCL SAT solver with two-watched-literal
// propagation, VSIDS variable ordering, phase saving, activity based
// clause database reduction, and moving-average restarts. The solver can
// stream its derivations to a ProofObserver, e.g. to have every learnt
// clause and deletion verified online by the checker package.
package sat

import (
	"fmt"
	"sort"
	"time"
)

type Solver struct {
	// Clause database.
	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	// Variable ordering.
	order *VarOrder

	// Propagation and watchers.
	watchers  [][]watcher
	propQueue *Queue[Literal]

	// Value assigned to each literal.
	assigns []LBool

	// Trail.
	trail         []Literal
	trailLim      []int
	assignReasons []*Clause
	assignLevels  []int

	// Whether the problem has reached a top level conflict.
	unsat bool

	// Observer of the solver's derivations (may be nil).
	proof ProofObserver

	// Restart policy: exponential moving averages of the learnt clauses'
	// literal block distances. A restart is forced when the recent average
	// degrades too much compared to the long term one.
	lbdShort EMA
	lbdLong  EMA

	// Search statistics.
	TotalConflicts  int64
	TotalRestarts   int64
	TotalIterations int64
	startTime       time.Time

	// Stop conditions.
	hasStopCond bool
	maxConflict int64
	timeout     time.Duration

	verbose bool

	// Models.
	Models [][]bool

	// Shared by operations that need to put variables in a set and empty
	// that set efficiently.
	seenVar *ResetSet

	// Same as seenVar, for decision levels. Used to compute literal block
	// distances.
	seenLevels *ResetSet

	// Temporary slice used in the Propagate function. The slice is re-used by
	// all Propagate calls to avoid unnecessarily allocating new slices.
	tmpWatchers []watcher

	// Temporary slice used in Analyze to accumulate literals before these are
	// used to create a new learnt clause. Having one shared buffer between all
	// call reduces the overhead of having to grow each time Analyze is called.
	tmpLearnts []Literal

	// Used for clauses to explain themselves.
	tmpReason []Literal

	// Snapshot buffer used when simplification shrinks a clause and the
	// shrunk/original pair must be streamed to the proof observer.
	tmpSimplify []Literal
}

// watcher represents a clause attached to the watch list of a literal.
type watcher struct {
	// The watching clause to be propagated when the watched literal becomes
	// true.
	clause *Clause

	// Guard is one of the clause's literals. If it is true, then there is
	// no need to propagate the clause. Note that the guard literal must be
	// different from the watcher literal.
	guard Literal
}

type Options struct {
	ClauseDecay   float64
	VariableDecay float64
	MaxConflicts  int64
	Timeout       time.Duration
	PhaseSaving   bool
	Verbose       bool

	// Proof, if non-nil, receives every original clause, learnt clause and
	// deletion performed by the solver.
	Proof ProofObserver
}

var DefaultOptions = Options{
	ClauseDecay:   0.999,
	VariableDecay: 0.95,
	MaxConflicts:  -1,
	Timeout:       -1,
	PhaseSaving:   true,
	Verbose:       false,
}

// Decay factors of the short and long term LBD averages, and the factor by
// which the short term average must exceed the long term one to force a
// restart.
const (
	lbdShortDecay = 0.8
	lbdLongDecay  = 0.995
	restartMargin = 1.25
	minRestartGap = 50
)

// NewDefaultSolver returns a solver configured with default options. This is
// equivalent to calling NewSolver with DefaultOptions.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(ops Options) *Solver {
	s := &Solver{
		clauseDecay: ops.ClauseDecay,
		clauseInc:   1,
		order:       NewVarOrder(ops.VariableDecay, ops.PhaseSaving),
		propQueue:   NewQueue[Literal](128),
		maxConflict: -1,
		timeout:     -1,
		seenVar:     &ResetSet{},
		seenLevels:  &ResetSet{},
		lbdShort:    NewEMA(lbdShortDecay),
		lbdLong:     NewEMA(lbdLongDecay),
		verbose:     ops.Verbose,
		proof:       ops.Proof,
	}

	// Levels range over [0, number of variables], one more slot than the
	// per-variable sets.
	s.seenLevels.Expand()

	if ops.MaxConflicts >= 0 {
		s.hasStopCond = true
		s.maxConflict = ops.MaxConflicts
	}
	if ops.Timeout >= 0 {
		s.hasStopCond = true
		s.timeout = ops.Timeout
	}

	return s
}

func (s *Solver) shouldStop() bool {
	if !s.hasStopCond {
		return false
	}
	if s.maxConflict >= 0 && s.maxConflict <= s.TotalConflicts {
		return true
	}
	if s.timeout >= 0 && s.timeout <= time.Since(s.startTime) {
		return true
	}

	return false
}

func (s *Solver) NumVariables() int {
	return len(s.assigns) / 2
}

func (s *Solver) NumAssigns() int {
	return len(s.trail)
}

func (s *Solver) NumConstraints() int {
	return len(s.constraints)
}

func (s *Solver) NumLearnts() int {
	return len(s.learnts)
}

func (s *Solver) VarValue(x int) LBool {
	return s.assigns[PositiveLiteral(x)]
}

func (s *Solver) LitValue(l Literal) LBool {
	return s.assigns[l]
}

func (s *Solver) AddVariable() int {
	index := s.NumVariables()
	s.watchers = append(s.watchers, nil)
	s.watchers = append(s.watchers, nil)
	s.assignReasons = append(s.assignReasons, nil)
	s.assignLevels = append(s.assignLevels, -1)
	s.seenVar.Expand()
	s.seenLevels.Expand()

	// One for each literal.
	s.assigns = append(s.assigns, Unknown)
	s.assigns = append(s.assigns, Unknown)

	s.order.AddVar(0, true)
	return index
}

// Watch registers clause c to be awaken when Literal watch is assigned to true.
func (s *Solver) Watch(c *Clause, watch Literal, guard Literal) {
	s.watchers[watch] = append(s.watchers[watch], watcher{
		clause: c,
		guard:  guard,
	})
}

// Unwatch removes clause c from the list of watchers.
func (s *Solver) Unwatch(c *Clause, watch Literal) {
	j := 0
	for i := 0; i < len(s.watchers[watch]); i++ {
		if s.watchers[watch][i].clause != c {
			s.watchers[watch][j] = s.watchers[watch][i]
			j++
		}
	}
	s.watchers[watch] = s.watchers[watch][:j]
}

// AddClause adds a problem clause to the solver. Clauses can only be added
// at the root level, before or between Solve calls.
func (s *Solver) AddClause(clause []Literal) error {
	if s.decisionLevel() != 0 {
		return fmt.Errorf("can only add clauses at the root level")
	}
	if s.proof != nil {
		s.proof.OriginalClause(clause)
	}
	c, ok := NewClause(s, clause, false)
	if c != nil {
		s.constraints = append(s.constraints, c)
	}
	if !ok {
		s.unsat = true
	}

	return nil
}

// Simplify simplifies the clause DB as well as the problem clauses according
// to the root-level assignments. Clauses that are satisfied at the root-level
// are removed.
func (s *Solver) Simplify() bool {
	if l := s.decisionLevel(); l != 0 {
		panic(fmt.Sprintf("Simplify called on non root-level: %d", l))
	}
	if s.propQueue.Size() != 0 {
		panic("propQueue should be empty when calling simplify")
	}

	if s.unsat || s.Propagate() != nil {
		if !s.unsat && s.proof != nil {
			s.proof.LearntClause(nil)
		}
		s.unsat = true
		return false
	}

	s.simplifyPtr(&s.learnts)
	s.simplifyPtr(&s.constraints) // could be turned off

	return true
}

// simplifyPtr simplifies the clauses in the given slice and removes clauses
// that are already satisfied. When a clause shrinks, the shrunk clause is a
// unit-propagation consequence of the original one and the root units, so
// the pair is streamed to the proof observer as a learnt clause followed by
// a deletion.
func (s *Solver) simplifyPtr(clausesPtr *[]*Clause) {
	clauses := *clausesPtr
	j := 0
	for i := 0; i < len(clauses); i++ {
		c := clauses[i]
		if s.proof != nil {
			s.tmpSimplify = append(s.tmpSimplify[:0], c.literals...)
		}
		if c.Simplify(s) {
			// Satisfied at the root: no deletion is streamed, the checker
			// reclaims root-satisfied clauses on its own.
			c.Delete(s)
		} else {
			if s.proof != nil && len(c.literals) < len(s.tmpSimplify) {
				s.proof.LearntClause(c.literals)
				s.proof.DeletedClause(s.tmpSimplify)
			}
			clauses[j] = c
			j++
		}
	}
	*clausesPtr = clauses[:j]
}

// ReduceDB removes half of the learnt clauses, keeping clauses that are
// locked (i.e. act as a reason of an assignment), recently protected, or
// have a high activity.
func (s *Solver) ReduceDB() {
	lim := s.clauseInc / float64(len(s.learnts))

	sort.Slice(s.learnts, func(i, j int) bool {
		return s.learnts[i].activity < s.learnts[j].activity
	})

	i, j := 0, 0
	for ; i < len(s.learnts)/2; i++ {
		c := s.learnts[i]
		if c.locked(s) || c.isProtected() {
			c.setUnprotected()
			s.learnts[j] = c
			j++
		} else {
			s.removeLearnt(c)
		}
	}

	for ; i < len(s.learnts); i++ {
		c := s.learnts[i]
		if !c.locked(s) && !c.isProtected() && c.activity < lim {
			s.removeLearnt(c)
		} else {
			c.setUnprotected()
			s.learnts[j] = c
			j++
		}
	}

	s.learnts = s.learnts[:j]
}

// removeLearnt deletes learnt clause c, streaming the deletion to the proof
// observer. Clauses satisfied at the root are not streamed: the checker
// reclaims those on its own schedule and may already have done so.
func (s *Solver) removeLearnt(c *Clause) {
	if s.proof != nil && !s.rootSatisfied(c) {
		s.proof.DeletedClause(c.literals)
	}
	c.Delete(s)
}

// rootSatisfied reports whether one of the clause's literals is true at the
// root level.
func (s *Solver) rootSatisfied(c *Clause) bool {
	for _, l := range c.literals {
		if s.LitValue(l) == True && s.assignLevels[l.VarID()] == 0 {
			return true
		}
	}
	return false
}

func (s *Solver) decisionLevel() int {
	return len(s.trailLim)
}

func (s *Solver) Solve() LBool {
	numConflicts := 100
	numLearnts := s.NumConstraints() / 3
	status := Unknown
	s.startTime = time.Now()

	s.printSeparator()
	s.printSearchHeader()
	s.printSeparator()

	for status == Unknown {
		status = s.Search(numConflicts, numLearnts)
		numConflicts += numConflicts / 10
		numLearnts += numLearnts / 20

		if s.shouldStop() {
			break
		}
	}

	s.printSearchStats()
	s.printSeparator()

	s.cancelUntil(0)
	return status
}

func (s *Solver) BumpClaActivity(c *Clause) {
	c.activity += s.clauseInc

	if c.activity > 1e100 {
		s.clauseInc *= 1e-100 // important to keep proportions
		for _, l := range s.learnts {
			l.activity *= 1e-100
		}
	}
}

func (s *Solver) DecayClaActivity() {
	s.clauseInc *= s.clauseDecay
}

func (s *Solver) Propagate() *Clause {
	for s.propQueue.Size() > 0 {
		l := s.propQueue.Pop()

		s.tmpWatchers = s.tmpWatchers[:0]
		s.tmpWatchers = append(s.tmpWatchers, s.watchers[l]...)
		s.watchers[l] = s.watchers[l][:0]

		for i, w := range s.tmpWatchers {
			// No need to propagate the clause if its guard is true. This block
			// is not necessary for propagation to behave properly. However, it
			// helps to significantly speed-up computation by avoiding loading
			// clause (in memory) that do not need to be propagated. Note that
			// this alters the order in which clause are propagated and can thus
			// yield to different conflict analysis and learnt clauses.
			if s.LitValue(w.guard) == True {
				s.watchers[l] = append(s.watchers[l], w)
				continue
			}

			if w.clause.Propagate(s, l) {
				continue
			}

			// Constraint is conflicting, copy remaining watchers
			// and return the constraint.
			s.watchers[l] = append(s.watchers[l], s.tmpWatchers[i+1:]...)
			s.propQueue.Clear()
			return s.tmpWatchers[i].clause
		}
	}

	return nil
}

func (s *Solver) enqueue(l Literal, from *Clause) bool {
	switch v := s.LitValue(l); v {
	case False:
		return false // conflicting assignment
	case True:
		return true // already assigned
	default:
		// New fact, store it.
		varID := l.VarID()
		s.assigns[l] = True
		s.assigns[l.Opposite()] = False
		s.assignLevels[varID] = s.decisionLevel()
		s.assignReasons[varID] = from
		s.trail = append(s.trail, l)
		s.propQueue.Push(l)
		return true
	}
}

// explain fills tmpReason with the literals explaining the conflict (when
// l is -1) or the assignment of l by clause c.
func (s *Solver) explain(c *Clause, l Literal) {
	if l == -1 {
		c.explainConflict(&s.tmpReason)
	} else {
		c.explainAssign(&s.tmpReason)
	}
	if c.isLearnt() {
		s.BumpClaActivity(c)
	}
}

func (s *Solver) analyze(confl *Clause) ([]Literal, int) {
	// Current number of "implication" nodes encountered in the exploration of
	// the decision level. A value of 0 indicates that the exploration has
	// reached a single implication point.
	nImplicationPoints := 0

	// Empty the buffer of literals in which the learnt clause will be stored.
	// Note that the first literal is reserved for the FUIP which is set at the
	// end of this function.
	s.tmpLearnts = s.tmpLearnts[:0]
	s.tmpLearnts = append(s.tmpLearnts, -1)

	// Next literal to look at. This is used to iterate over the trail without
	// actually undoing the literal assignments.
	nextLiteral := len(s.trail) - 1

	l := Literal(-1) // unknown literal used to represent the conflict
	s.seenVar.Clear()
	backtrackLevel := 0

	for {
		s.explain(confl, l)
		for _, q := range s.tmpReason {
			v := q.VarID()
			if s.seenVar.Contains(v) {
				continue
			}
			// Root facts cannot be part of the learnt clause: they hold in
			// every model.
			if s.assignLevels[v] == 0 {
				continue
			}

			s.seenVar.Add(v)
			s.order.BumpScore(v)

			if s.assignLevels[v] == s.decisionLevel() {
				nImplicationPoints++
				continue
			}

			s.tmpLearnts = append(s.tmpLearnts, q.Opposite())
			if level := s.assignLevels[v]; level > backtrackLevel {
				backtrackLevel = level
			}
		}

		// Select next literal to look at.
		for {
			l = s.trail[nextLiteral]
			nextLiteral--
			v := l.VarID()
			confl = s.assignReasons[v]
			if s.seenVar.Contains(v) {
				break
			}
		}

		nImplicationPoints--
		if nImplicationPoints <= 0 {
			break
		}
	}

	// Add literal corresponding to the FUIP.
	s.tmpLearnts[0] = l.Opposite()

	return s.tmpLearnts, backtrackLevel
}

// computeLBD returns the literal block distance of the clause, that is the
// number of distinct decision levels its literals are assigned at. Must be
// called before backtracking.
func (s *Solver) computeLBD(clause []Literal) int {
	s.seenLevels.Clear()
	lbd := 0
	for _, l := range clause {
		level := s.assignLevels[l.VarID()]
		if !s.seenLevels.Contains(level) {
			s.seenLevels.Add(level)
			lbd++
		}
	}
	return lbd
}

func (s *Solver) record(clause []Literal, lbd int) {
	if s.proof != nil {
		s.proof.LearntClause(clause)
	}
	c, _ := NewClause(s, clause, true)
	s.enqueue(clause[0], c)
	if c != nil {
		c.lbd = uint32(lbd)
		if lbd <= 3 {
			c.setProtected()
		}
		s.learnts = append(s.learnts, c)
	}
}

// forceRestart reports whether the recent learnt clauses are bad enough,
// LBD-wise, compared to the long term average to force a restart.
func (s *Solver) forceRestart(conflictCount int) bool {
	return conflictCount >= minRestartGap &&
		s.lbdShort.Val() > restartMargin*s.lbdLong.Val()
}

func (s *Solver) Search(nConflicts int, nLearnts int) LBool {
	if s.unsat {
		return False
	}

	s.TotalRestarts++
	conflictCount := 0

	for !s.shouldStop() {
		if s.TotalIterations%10000 == 0 {
			s.printSearchStats()
		}
		s.TotalIterations++

		if conflict := s.Propagate(); conflict != nil {
			conflictCount++
			s.TotalConflicts++

			if s.decisionLevel() == 0 {
				// The conflict does not depend on any decision: the problem
				// is refuted.
				if s.proof != nil {
					s.proof.LearntClause(nil)
				}
				s.unsat = true
				return False
			}

			learntClause, backtrackLevel := s.analyze(conflict)
			lbd := s.computeLBD(learntClause)
			s.lbdShort.Add(float64(lbd))
			s.lbdLong.Add(float64(lbd))

			s.cancelUntil(backtrackLevel)
			s.record(learntClause, lbd)

			s.DecayClaActivity()
			s.order.DecayScores()

			continue
		}

		// No Conflict
		// -----------

		if s.decisionLevel() == 0 {
			if !s.Simplify() {
				return False
			}
		}

		if len(s.learnts)-s.NumAssigns() >= nLearnts {
			s.ReduceDB()
		}

		if s.NumAssigns() == s.NumVariables() { // solution found
			s.saveModel()
			s.cancelUntil(0)
			return True
		}

		if conflictCount > nConflicts || s.forceRestart(conflictCount) {
			s.cancelUntil(0)
			return Unknown
		}

		l, ok := s.order.NextDecision(s)
		if !ok {
			panic("no decision candidate on a partial assignment")
		}
		s.assume(l)
	}

	return Unknown
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	s.order.Reinsert(v, s.VarValue(v))
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.assignReasons[v] = nil
	s.assignLevels[v] = -1

	s.trail = s.trail[:len(s.trail)-1]
}

func (s *Solver) assume(l Literal) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	return s.enqueue(l, nil)
}

func (s *Solver) cancel() {
	c := len(s.trail) - s.trailLim[len(s.trailLim)-1]
	for ; c != 0; c-- {
		s.undoOne()
	}
	s.trailLim = s.trailLim[:len(s.trailLim)-1]
}

func (s *Solver) cancelUntil(level int) {
	for s.decisionLevel() > level {
		s.cancel()
	}
}

func (s *Solver) saveModel() {
	model := make([]bool, s.NumVariables())
	for i := range model {
		lb := s.VarValue(i)
		if lb == Unknown {
			panic("not a model")
		}
		model[i] = lb == True
	}
	s.Models = append(s.Models, model)
}

func (s *Solver) printSeparator() {
	if !s.verbose {
		return
	}
	fmt.Println("c ---------------------------------------------------------------------------")
}

func (s *Solver) printSearchHeader() {
	if !s.verbose {
		return
	}
	fmt.Println("c            time     iterations      conflicts       restarts        learnts")
}

func (s *Solver) printSearchStats() {
	if !s.verbose {
		return
	}
	fmt.Printf(
		"c %14.3fs %14d %14d %14d %14d\n",
		time.Since(s.startTime).Seconds(),
		s.TotalIterations,
		s.TotalConflicts,
		s.TotalRestarts,
		len(s.learnts))
}
