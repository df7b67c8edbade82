package solver

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

type MoveKind int

const (
	MoveTransfer MoveKind = iota
	MoveSwap
	MoveGroup
	MoveConflict
	MoveParityTransfer
	MoveParitySwap
)

func (k MoveKind) String() string {
	switch k {
	case MoveTransfer:
		return "transfer"
	case MoveSwap:
		return "swap"
	case MoveGroup:
		return "group"
	case MoveConflict:
		return "conflict"
	case MoveParityTransfer:
		return "parity-transfer"
	case MoveParitySwap:
		return "parity-swap"
	}
	return "unknown"
}

func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MoveKind) UnmarshalText(b []byte) error {
	for v := MoveTransfer; v <= MoveParitySwap; v++ {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown move kind %q", b)
}

// Move is an applied relocation. From and To are parallel to Students.
type Move struct {
	Kind     MoveKind    `json:"kind"`
	Students []StudentID `json:"students"`
	From     []ClassID   `json:"from"`
	To       []ClassID   `json:"to"`
	Gain     float64     `json:"gain"`
}

type candidate struct {
	kind     MoveKind
	a, b     int // b is the swap partner, -1 otherwise
	group    int // association group, -1 otherwise
	to       int
	gain     float64
	pressure float64
	lead     int
}

// better orders candidates by gain, then by the largest current cost among
// the touched classes, then by lowest student, then by lowest target class.
func (c *candidate) better(o *candidate) bool {
	if d := c.gain - o.gain; math.Abs(d) > epsilon {
		return d > 0
	}
	if d := c.pressure - o.pressure; math.Abs(d) > epsilon {
		return d > 0
	}
	if c.lead != o.lead {
		return c.lead < o.lead
	}
	if c.to != o.to {
		return c.to < o.to
	}
	return c.b < o.b
}

func (st *state) transferGain(s, to int, cost func(int) float64) float64 {
	from := st.assign[s]
	before := cost(from) + cost(to)
	st.shift(s, from, to)
	after := cost(from) + cost(to)
	st.shift(s, to, from)
	return before - after
}

func (st *state) swapGain(s, t int, cost func(int) float64) float64 {
	a, b := st.assign[s], st.assign[t]
	before := cost(a) + cost(b)
	st.shift(s, a, b)
	st.shift(t, b, a)
	after := cost(a) + cost(b)
	st.shift(t, a, b)
	st.shift(s, b, a)
	return before - after
}

func (st *state) groupGain(g, to int, cost func(int) float64) float64 {
	members := st.groups[g].members
	from := st.assign[members[0]]
	before := cost(from) + cost(to)
	for _, m := range members {
		st.shift(m, from, to)
	}
	after := cost(from) + cost(to)
	for _, m := range members {
		st.shift(m, to, from)
	}
	return before - after
}

// swapClasses lists the partner classes searched for s: the classes s may
// legally join, highest current cost first, capped at SwapClassLimit.
func (st *state) swapClasses(s int, order []int) []int {
	var out []int
	for _, k := range order {
		if k == st.assign[s] || !st.allowed[s][k] {
			continue
		}
		out = append(out, k)
		if st.params.SwapClassLimit > 0 && len(out) == st.params.SwapClassLimit {
			break
		}
	}
	return out
}

func byCostDesc(costs []float64) []int {
	order := make([]int, len(costs))
	for k := range order {
		order[k] = k
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(costs[b], costs[a]) })
	return order
}

// eachCandidate visits every legal transfer, swap and group transfer of the
// local search, scored against the full objective.
func (st *state) eachCandidate(costs []float64, visit func(c candidate)) {
	nc := len(st.classes)
	swappable := func(s int) bool { return st.mobility[s].Swappable() }
	reps := make([][]int, nc)
	for k := range nc {
		reps[k] = st.representatives(k, swappable)
	}

	for a := range nc {
		if !st.keepsMin(a, 1) {
			continue
		}
		for _, s := range reps[a] {
			for k := range nc {
				if k == a || !st.canPlace(s, k) {
					continue
				}
				visit(candidate{
					kind: MoveTransfer, a: s, b: -1, group: -1, to: k,
					gain:     st.transferGain(s, k, st.classCost),
					pressure: max(costs[a], costs[k]),
					lead:     s,
				})
			}
		}
	}

	order := byCostDesc(costs)
	for a := range nc {
		for _, s := range reps[a] {
			for _, b := range st.swapClasses(s, order) {
				for _, t := range reps[b] {
					if !st.canSwap(s, t) {
						continue
					}
					visit(candidate{
						kind: MoveSwap, a: s, b: t, group: -1, to: b,
						gain:     st.swapGain(s, t, st.classCost),
						pressure: max(costs[a], costs[b]),
						lead:     min(s, t),
					})
				}
			}
		}
	}

	for g := range st.groups {
		from, ok := st.groupClass(g)
		members := st.groups[g].members
		if !ok || !st.keepsMin(from, len(members)) {
			continue
		}
		for k := range nc {
			if k == from || !st.admits(k, members, nil, true) {
				continue
			}
			visit(candidate{
				kind: MoveGroup, a: members[0], b: -1, group: g, to: k,
				gain:     st.groupGain(g, k, st.classCost),
				pressure: max(costs[from], costs[k]),
				lead:     members[0],
			})
		}
	}
}

func (st *state) bestMove() (candidate, bool) {
	var best candidate
	found := false
	st.eachCandidate(st.costs(st.classCost), func(c candidate) {
		if c.gain <= epsilon {
			return
		}
		if !found || c.better(&best) {
			best, found = c, true
		}
	})
	return best, found
}

// apply performs a candidate as one step and returns its record.
func (st *state) apply(c candidate) Move {
	m := Move{Kind: c.kind, Gain: c.gain}
	relocate := func(s, to int) {
		m.Students = append(m.Students, st.students[s].ID)
		m.From = append(m.From, st.classes[st.assign[s]].Name)
		m.To = append(m.To, st.classes[to].Name)
	}
	switch {
	case c.group >= 0:
		var moving []int
		for _, s := range st.groups[c.group].members {
			if st.assign[s] != c.to {
				relocate(s, c.to)
				moving = append(moving, s)
			}
		}
		for _, s := range moving {
			st.move(s, c.to)
		}
	case c.b >= 0:
		if c.b < c.a {
			c.a, c.b = c.b, c.a
		}
		a, b := st.assign[c.a], st.assign[c.b]
		relocate(c.a, b)
		relocate(c.b, a)
		st.move(c.a, b)
		st.move(c.b, a)
	default:
		relocate(c.a, c.to)
		st.move(c.a, c.to)
	}
	return m
}
