package solver

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

type Termination int

const (
	Converged Termination = iota
	Capped
)

func (t Termination) String() string {
	if t == Capped {
		return "CAPPED"
	}
	return "CONVERGED"
}

func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Termination) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CONVERGED":
		*t = Converged
	case "CAPPED":
		*t = Capped
	default:
		return fmt.Errorf("unknown termination %q", b)
	}
	return nil
}

// runner carries one run: the working state, the injected rng and the
// summary being accumulated.
type runner struct {
	st     *state
	params Params
	rng    *rand.Rand
	log    *zap.Logger
	sum    Summary
	round  int
}

func (r *runner) atMoveCap() bool {
	return r.sum.TotalMoves >= r.params.MaxMoves
}

func (r *runner) record(m Move) {
	r.sum.Moves = append(r.sum.Moves, m)
	r.sum.TotalMoves++
	switch m.Kind {
	case MoveTransfer:
		r.sum.Transfers++
	case MoveSwap:
		r.sum.Swaps++
	case MoveGroup:
		r.sum.GroupMoves++
	case MoveConflict:
		r.sum.ConflictMoves++
	case MoveParityTransfer, MoveParitySwap:
		r.sum.ParityMoves++
	}
	r.log.Debug("move applied",
		zap.Int("round", r.round),
		zap.Stringer("kind", m.Kind),
		zap.Any("students", m.Students),
		zap.Any("to", m.To),
		zap.Float64("gain", m.Gain))
}

// search applies the best improving move until none is left or a cap is
// reached. It reports whether it stopped on a cap.
func (r *runner) search() bool {
	for {
		c, ok := r.st.bestMove()
		if !ok {
			return false
		}
		if r.sum.Iterations >= r.params.MaxIterations || r.atMoveCap() {
			return true
		}
		r.sum.Iterations++
		r.record(r.st.apply(c))
	}
}

// consolidationTarget picks the class that can take every member of group g
// not already in it: most free seats first, lowest name on ties.
func (st *state) consolidationTarget(g int) (int, bool) {
	best, bestFree := -1, 0
	for k := range st.classes {
		var in []int
		for _, m := range st.groups[g].members {
			if st.assign[m] != k {
				in = append(in, m)
			}
		}
		if !st.admits(k, in, nil, true) {
			continue
		}
		if free := st.classes[k].Max - st.size[k]; best < 0 || free > bestFree {
			best, bestFree = k, free
		}
	}
	return best, best >= 0
}

// consolidateGroups gathers every split association group into one class in
// a single group move. Groups with no common class are left untouched.
func (r *runner) consolidateGroups() bool {
	st := r.st
	for g := range st.groups {
		if _, together := st.groupClass(g); together {
			continue
		}
		if r.atMoveCap() {
			return true
		}
		k, ok := st.consolidationTarget(g)
		if !ok {
			r.log.Debug("association group has no common class", zap.String("code", string(st.groups[g].code)))
			continue
		}
		before := st.objective()
		m := st.apply(candidate{kind: MoveGroup, a: st.groups[g].members[0], b: -1, group: g, to: k})
		m.Gain = before - st.objective()
		r.record(m)
	}
	return false
}
