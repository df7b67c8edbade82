package solver

import "math"

func (st *state) imbalanced(k int) bool {
	return math.Abs(st.surplus(k)) > st.params.ParityTolerance+epsilon
}

// surplusSex is the sex a class has too many of.
func surplusSex(surplus float64) Sex {
	if surplus > 0 {
		return SexF
	}
	return SexM
}

// parityGain scores a parity candidate from its parity and objective gains.
// Candidates that raise the objective are refused.
func (st *state) parityGain(parity, objective float64) (float64, bool) {
	if parity <= epsilon || objective < -epsilon {
		return 0, false
	}
	return parity + st.params.ParityTieWeight*objective, true
}

func opposite(sex Sex) Sex {
	if sex == SexF {
		return SexM
	}
	return SexF
}

// bestParityTransfer looks for a free student of the surplus sex that can
// move to a class leaning the other way.
func (st *state) bestParityTransfer() (candidate, bool) {
	costs := st.costs(st.parityClassCost)
	var best candidate
	found := false
	for a := range st.classes {
		if !st.imbalanced(a) || !st.keepsMin(a, 1) {
			continue
		}
		sa := st.surplus(a)
		sex := surplusSex(sa)
		reps := st.representatives(a, func(s int) bool {
			return st.mobility[s] == SwappableFree && st.students[s].Sex == sex
		})
		for k := range st.classes {
			if k == a || sa*st.surplus(k) >= 0 {
				continue
			}
			for _, s := range reps {
				if !st.canPlace(s, k) {
					continue
				}
				gain, ok := st.parityGain(st.transferGain(s, k, st.parityDev), st.transferGain(s, k, st.classCost))
				if !ok {
					continue
				}
				c := candidate{
					kind: MoveParityTransfer, a: s, b: -1, group: -1, to: k,
					gain:     gain,
					pressure: max(costs[a], costs[k]),
					lead:     s,
				}
				if !found || c.better(&best) {
					best, found = c, true
				}
			}
		}
	}
	return best, found
}

// bestParityExchange swaps a surplus-sex student of an imbalanced class with
// an opposite-sex student of a class imbalanced the other way.
func (st *state) bestParityExchange() (candidate, bool) {
	costs := st.costs(st.parityClassCost)
	var best candidate
	found := false
	for a := range st.classes {
		if !st.imbalanced(a) {
			continue
		}
		sa := st.surplus(a)
		sex := surplusSex(sa)
		out := st.representatives(a, func(s int) bool {
			return st.mobility[s].Swappable() && st.students[s].Sex == sex
		})
		for b := range st.classes {
			if b == a || sa*st.surplus(b) >= 0 {
				continue
			}
			in := st.representatives(b, func(t int) bool {
				return st.mobility[t].Swappable() && st.students[t].Sex == opposite(sex)
			})
			for _, s := range out {
				for _, t := range in {
					if !st.canSwap(s, t) {
						continue
					}
					gain, ok := st.parityGain(st.swapGain(s, t, st.parityDev), st.swapGain(s, t, st.classCost))
					if !ok {
						continue
					}
					c := candidate{
						kind: MoveParitySwap, a: s, b: t, group: -1, to: b,
						gain:     gain,
						pressure: max(costs[a], costs[b]),
						lead:     min(s, t),
					}
					if !found || c.better(&best) {
						best, found = c, true
					}
				}
			}
		}
	}
	return best, found
}

// balanceParity prefers direct transfers and falls back to one exchange
// whenever no transfer improves, until neither does. It reports whether it
// stopped on a cap.
func (r *runner) balanceParity() bool {
	st := r.st
	if st.femaleShare == 0 || st.femaleShare == 1 {
		return false
	}
	for moves := 0; ; moves++ {
		c, ok := st.bestParityTransfer()
		if !ok {
			c, ok = st.bestParityExchange()
		}
		if !ok {
			return false
		}
		if moves >= r.params.ParityMaxMoves || r.atMoveCap() {
			return true
		}
		r.record(st.apply(c))
	}
}
