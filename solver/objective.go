package solver

import "math"

// classCost is the share of the objective owned by class k. The objective is
// separable, so a move only ever changes the cost of the classes it touches.
func (st *state) classCost(k int) float64 {
	cost := 0.0
	for c := range NumCriteria {
		w := st.params.CriterionWeights[c]
		if w == 0 {
			continue
		}
		dev := 0.0
		for b := MinScore; b <= MaxScore; b++ {
			d := float64(st.buckets[k][c][b] - st.targets[k][c][b])
			dev += d * d
		}
		cost += w * dev
	}
	cost += st.params.ParityWeight * st.parityDev(k)
	if d := math.Abs(float64(st.size[k])-st.ref[k]) - st.params.CapacityTolerance; d > 0 {
		cost += st.params.CapacityWeight * d * d
	}
	return cost
}

func (st *state) surplus(k int) float64 {
	return float64(st.females[k]) - st.femaleShare*float64(st.females[k]+st.males[k])
}

func (st *state) parityDev(k int) float64 {
	d := st.surplus(k)
	return d * d
}

func (st *state) parityClassCost(k int) float64 {
	return st.parityDev(k) + st.params.ParityTieWeight*st.classCost(k)
}

func (st *state) objective() float64 {
	total := 0.0
	for k := range st.classes {
		total += st.classCost(k)
	}
	return total
}

func (st *state) parityCost() float64 {
	total := 0.0
	for k := range st.classes {
		total += st.parityDev(k)
	}
	return total
}

func (st *state) costs(cost func(int) float64) []float64 {
	out := make([]float64, len(st.classes))
	for k := range out {
		out[k] = cost(k)
	}
	return out
}

// Objective scores a snapshot without running anything.
func Objective(in Input, params Params) (float64, error) {
	st, err := newState(in, params)
	if err != nil {
		return 0, err
	}
	return st.objective(), nil
}
