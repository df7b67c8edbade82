package solver

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
)

type Conflict struct {
	Code     DissociationCode `json:"code"`
	Class    ClassID          `json:"class"`
	Students []StudentID      `json:"students"`
	Pairs    int              `json:"pairs"`
}

func (st *state) pairs(code DissociationCode) int {
	n := 0
	for k := range st.classes {
		c := st.dissoc[k][code]
		n += c * (c - 1) / 2
	}
	return n
}

func (st *state) colocated(code DissociationCode) bool {
	for k := range st.classes {
		if st.dissoc[k][code] > 1 {
			return true
		}
	}
	return false
}

func (st *state) conflicts() []Conflict {
	var out []Conflict
	for _, code := range st.codes {
		for k, c := range st.classes {
			n := st.dissoc[k][code]
			if n < 2 {
				continue
			}
			var in []int
			for _, s := range st.holders[code] {
				if st.assign[s] == k {
					in = append(in, s)
				}
			}
			out = append(out, Conflict{Code: code, Class: c.Name, Students: st.ids(in...), Pairs: n * (n - 1) / 2})
		}
	}
	return out
}

// partition is one placement of the movable holders of a dissociation code.
type partition struct {
	code    DissociationCode
	movable []int
	origin  []int
	options [][]int
}

func (st *state) newPartition(code DissociationCode) *partition {
	p := &partition{code: code}
	for _, s := range st.holders[code] {
		if !st.mobility[s].Swappable() {
			continue
		}
		from := st.assign[s]
		opts := []int{from}
		for k := range st.classes {
			if k != from && st.allowed[s][k] {
				opts = append(opts, k)
			}
		}
		p.movable = append(p.movable, s)
		p.origin = append(p.origin, from)
		p.options = append(p.options, opts)
	}
	return p
}

func (st *state) partitionScore(code DissociationCode, objective float64, kept int) float64 {
	return st.params.ConflictWeight*float64(st.pairs(code)) + objective - st.params.StabilityBonus*float64(kept)
}

// exact enumerates every placement of the movable holders, pruning on
// capacity and on a lower bound, and stops after ExactNodeLimit nodes. It
// returns the best placement strictly under bound, or nil.
func (st *state) exact(p *partition, objective, bound float64) ([]int, float64) {
	cw, sb := st.params.ConflictWeight, st.params.StabilityBonus
	decided := make([]int, len(st.classes))
	for k := range st.classes {
		decided[k] = st.dissoc[k][p.code]
	}
	for _, from := range p.origin {
		decided[from]--
	}
	decidedPairs := 0
	for _, c := range decided {
		decidedPairs += c * (c - 1) / 2
	}

	dest := make([]int, len(p.movable))
	var best []int
	nodes, kept := 0, 0
	var walk func(i int)
	walk = func(i int) {
		if nodes >= st.params.ExactNodeLimit {
			return
		}
		nodes++
		remaining := len(p.movable) - i
		if cw*float64(decidedPairs)-sb*float64(kept+remaining) >= bound-epsilon {
			return
		}
		if i == len(p.movable) {
			if score := cw*float64(decidedPairs) + objective - sb*float64(kept); score < bound-epsilon {
				bound = score
				best = slices.Clone(dest)
			}
			return
		}
		s, from := p.movable[i], p.origin[i]
		for _, k := range p.options[i] {
			gain := 0.0
			if k == from {
				kept++
			} else {
				if !st.keepsMin(from, 1) || !st.admits(k, []int{s}, nil, false) {
					continue
				}
				gain = st.transferGain(s, k, st.classCost)
				st.move(s, k)
				objective -= gain
			}
			decidedPairs += decided[k]
			decided[k]++
			dest[i] = k
			walk(i + 1)
			decided[k]--
			decidedPairs -= decided[k]
			if k == from {
				kept--
			} else {
				st.move(s, from)
				objective += gain
			}
		}
	}
	walk(0)
	return best, bound
}

// greedy places holders most constrained first, each into the eligible
// class with the fewest holders of the code and then the fewest students.
// Restarts shuffle the order within equal constrainedness and break ties
// at random. The placement order of the winning restart is returned with it.
func (r *runner) greedy(p *partition, objective, bound float64) ([]int, []int, float64) {
	st := r.st
	var best, bestOrder []int
	for restart := range r.params.HeuristicRestarts + 1 {
		order := make([]int, len(p.movable))
		for i := range order {
			order[i] = i
		}
		if restart > 0 {
			r.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(len(p.options[a]), len(p.options[b])) })

		obj := objective
		for _, i := range order {
			s, from := p.movable[i], st.assign[p.movable[i]]
			var ties []int
			bestHolders, bestLoad := 0, 0
			for _, k := range p.options[i] {
				holders, load := st.dissoc[k][p.code], st.size[k]
				if k == from {
					holders--
					load--
				} else if !st.keepsMin(from, 1) || !st.admits(k, []int{s}, nil, false) {
					continue
				}
				switch {
				case len(ties) == 0 || holders < bestHolders || (holders == bestHolders && load < bestLoad):
					ties = []int{k}
					bestHolders, bestLoad = holders, load
				case holders == bestHolders && load == bestLoad:
					ties = append(ties, k)
				}
			}
			to := ties[0]
			if restart > 0 && len(ties) > 1 {
				to = ties[r.rng.Intn(len(ties))]
			}
			if to != from {
				obj -= st.transferGain(s, to, st.classCost)
				st.move(s, to)
			}
		}

		kept := 0
		dest := make([]int, len(p.movable))
		for i, s := range p.movable {
			dest[i] = st.assign[s]
			if dest[i] == p.origin[i] {
				kept++
			}
		}
		if score := st.partitionScore(p.code, obj, kept); score < bound-epsilon {
			bound = score
			best, bestOrder = dest, order
		}
		for i, s := range p.movable {
			st.move(s, p.origin[i])
		}
	}
	return best, bestOrder, bound
}

// resolveConflicts re-partitions every dissociation code that still has
// co-located holders. A new placement is kept only when it beats the current
// one on the combined conflict, balance and stability score.
func (r *runner) resolveConflicts() bool {
	st := r.st
	for _, code := range st.codes {
		if len(st.holders[code]) < 2 || !st.colocated(code) {
			continue
		}
		if r.atMoveCap() {
			return true
		}
		p := st.newPartition(code)
		if len(p.movable) == 0 {
			continue
		}
		objective := st.objective()
		current := st.partitionScore(code, objective, len(p.movable))
		var dest, order []int
		if len(st.holders[code]) <= r.params.ExactGroupLimit {
			dest, _ = st.exact(p, objective, current)
		} else {
			dest, order, _ = r.greedy(p, objective, current)
		}
		if dest == nil {
			r.log.Debug("no better partition", zap.String("code", string(code)), zap.Int("pairs", st.pairs(code)))
			continue
		}
		if order == nil {
			order = make([]int, len(dest))
			for i := range order {
				order[i] = i
			}
		}
		changed := 0
		for i := range dest {
			if dest[i] != p.origin[i] {
				changed++
			}
		}
		// A partition is applied whole or not at all.
		if r.sum.TotalMoves+changed > r.params.MaxMoves {
			return true
		}
		for _, i := range order {
			s := p.movable[i]
			if dest[i] == p.origin[i] {
				continue
			}
			gain := st.transferGain(s, dest[i], st.classCost)
			m := st.apply(candidate{kind: MoveConflict, a: s, b: -1, group: -1, to: dest[i]})
			m.Gain = gain
			r.record(m)
		}
	}
	return false
}
