package solver

import "math"

// referenceSizes gives each class the size it is balanced against: its ideal
// when configured, otherwise a share of the remaining students proportional
// to its maximum. It depends on nothing a move can change.
func referenceSizes(classes []ClassGroup, total int) []float64 {
	ref := make([]float64, len(classes))
	remaining := float64(total)
	freeMax := 0
	for k, c := range classes {
		if c.Ideal > 0 {
			ref[k] = float64(c.Ideal)
			remaining -= ref[k]
		} else {
			freeMax += c.Max
		}
	}
	remaining = max(remaining, 0)
	for k, c := range classes {
		if c.Ideal == 0 && freeMax > 0 {
			ref[k] = remaining * float64(c.Max) / float64(freeMax)
		}
	}
	return ref
}

// computeTargets scales the global bucket counts by each class's share of
// the population, sizes[k] / total. Rounding is half away from zero and the drift between
// the sum of targets and the global count is left as is.
func computeTargets(students []Student, sizes []float64) [][NumCriteria][MaxScore + 1]int {
	targets := make([][NumCriteria][MaxScore + 1]int, len(sizes))
	total := len(students)
	if total == 0 {
		return targets
	}
	var global [NumCriteria][MaxScore + 1]int
	for _, s := range students {
		for c, v := range s.Scores {
			if v >= MinScore {
				global[c][v]++
			}
		}
	}
	for k, size := range sizes {
		for c := range NumCriteria {
			for b := MinScore; b <= MaxScore; b++ {
				targets[k][c][b] = int(math.Round(size / float64(total) * float64(global[c][b])))
			}
		}
	}
	return targets
}

// retarget recomputes the bucket targets. Under BasisCurrent they follow the
// sizes the classes have right now.
func (st *state) retarget() {
	sizes := st.ref
	if st.params.TargetBasis != BasisCapacity {
		sizes = make([]float64, len(st.classes))
		for k, n := range st.size {
			sizes[k] = float64(n)
		}
	}
	st.targets = computeTargets(st.students, sizes)
}

func (st *state) targetDistribution() TargetDistribution {
	out := TargetDistribution{}
	for k, c := range st.classes {
		out[c.Name] = st.targets[k]
	}
	return out
}

// ComputeTargets validates the snapshot and returns the per-class targets the
// first round of a run would balance against.
func ComputeTargets(in Input, params Params) (TargetDistribution, error) {
	st, err := newState(in, params)
	if err != nil {
		return nil, err
	}
	return st.targetDistribution(), nil
}
