package solver

import (
	"cmp"
	"fmt"
	"slices"
)

const epsilon = 1e-9

type assocGroup struct {
	code    AssociationCode
	members []int
}

// state is the single mutable working copy of a run. Students are indexed in
// ID order and classes in name order, so index order is the tie-break order.
type state struct {
	params   Params
	students []Student
	classes  []ClassGroup
	classIdx map[ClassID]int
	pools    OptionPool

	mobility []Mobility
	keys     [][]OptionKey
	allowed  [][]bool
	groups   []assocGroup
	holders  map[DissociationCode][]int
	codes    []DissociationCode

	ref         []float64
	targets     [][NumCriteria][MaxScore + 1]int
	femaleShare float64

	assign   []int
	members  [][]int
	size     []int
	buckets  [][NumCriteria][MaxScore + 1]int
	females  []int
	males    []int
	keyCount []map[OptionKey]int
	dissoc   []map[DissociationCode]int
}

func newState(in Input, params Params) (*state, error) {
	if len(in.Classes) == 0 {
		return nil, ErrNoClasses
	}
	st := &state{
		params:   params,
		classes:  slices.Clone(in.Classes),
		classIdx: map[ClassID]int{},
		holders:  map[DissociationCode][]int{},
	}
	slices.SortFunc(st.classes, func(a, b ClassGroup) int { return cmp.Compare(a.Name, b.Name) })
	for i, c := range st.classes {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: class without a name", ErrUnknownClass)
		}
		if _, dup := st.classIdx[c.Name]; dup {
			return nil, fmt.Errorf("%w: class %q defined twice", ErrInvalidCapacity, c.Name)
		}
		if c.Max <= 0 || c.Min < 0 || c.Min > c.Max {
			return nil, fmt.Errorf("%w: class %q has min=%d max=%d", ErrInvalidCapacity, c.Name, c.Min, c.Max)
		}
		if c.Ideal < 0 {
			return nil, fmt.Errorf("%w: class %q has ideal=%d", ErrInvalidCapacity, c.Name, c.Ideal)
		}
		st.classIdx[c.Name] = i
	}

	if in.Pools == nil {
		st.pools = BuildOptionPool(st.classes)
	} else {
		st.pools = OptionPool{}
		for key, classes := range in.Pools {
			for _, c := range classes {
				if _, ok := st.classIdx[c]; !ok {
					return nil, fmt.Errorf("%w: %q lists %q", ErrInvalidPool, key, c)
				}
			}
			st.pools[key] = slices.Sorted(slices.Values(classes))
		}
	}

	st.students = slices.Clone(in.Students)
	slices.SortFunc(st.students, func(a, b Student) int { return cmp.Compare(a.ID, b.ID) })
	for i := range st.students {
		s := &st.students[i]
		if i > 0 && st.students[i-1].ID == s.ID {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStudent, s.ID)
		}
		if _, ok := st.classIdx[s.Class]; !ok {
			return nil, fmt.Errorf("%w: student %q is in %q", ErrUnknownClass, s.ID, s.Class)
		}
		for c, v := range s.Scores {
			if v < 0 || v > MaxScore {
				return nil, fmt.Errorf("%w: student %q has %s=%d", ErrInvalidScore, s.ID, Criterion(c), v)
			}
		}
	}

	n, nc := len(st.students), len(st.classes)
	st.mobility = make([]Mobility, n)
	st.keys = make([][]OptionKey, n)
	st.allowed = make([][]bool, n)
	groupIdx := map[AssociationCode]int{}
	for i := range st.students {
		s := &st.students[i]
		s.Mobility = Classify(*s, st.pools)
		st.mobility[i] = s.Mobility
		st.keys[i] = s.keys()
		st.allowed[i] = make([]bool, nc)
		for k, c := range st.classes {
			ok := true
			for _, key := range st.keys[i] {
				if !st.pools.Allows(key, c.Name) {
					ok = false
					break
				}
			}
			st.allowed[i][k] = ok
		}
		if s.Association != "" {
			gi, seen := groupIdx[s.Association]
			if !seen {
				gi = len(st.groups)
				groupIdx[s.Association] = gi
				st.groups = append(st.groups, assocGroup{code: s.Association})
			}
			st.groups[gi].members = append(st.groups[gi].members, i)
		}
		if s.Dissociation != "" {
			if _, seen := st.holders[s.Dissociation]; !seen {
				st.codes = append(st.codes, s.Dissociation)
			}
			st.holders[s.Dissociation] = append(st.holders[s.Dissociation], i)
		}
	}
	slices.SortFunc(st.groups, func(a, b assocGroup) int { return cmp.Compare(a.code, b.code) })
	slices.Sort(st.codes)

	st.assign = make([]int, n)
	st.members = make([][]int, nc)
	st.size = make([]int, nc)
	st.buckets = make([][NumCriteria][MaxScore + 1]int, nc)
	st.females = make([]int, nc)
	st.males = make([]int, nc)
	st.keyCount = make([]map[OptionKey]int, nc)
	st.dissoc = make([]map[DissociationCode]int, nc)
	for k := range nc {
		st.keyCount[k] = map[OptionKey]int{}
		st.dissoc[k] = map[DissociationCode]int{}
	}
	for class, codes := range in.Dissociations {
		k, ok := st.classIdx[class]
		if !ok {
			return nil, fmt.Errorf("%w: dissociation seed for %q", ErrUnknownClass, class)
		}
		for code, count := range codes {
			if count > 0 {
				st.dissoc[k][code] += count
			}
		}
	}
	for i := range st.students {
		k := st.classIdx[st.students[i].Class]
		st.assign[i] = k
		st.members[k] = append(st.members[k], i)
		st.count(i, k, 1)
	}

	st.ref = referenceSizes(st.classes, n)
	st.retarget()
	females, known := 0, 0
	for i := range st.students {
		switch st.students[i].Sex {
		case SexF:
			females++
			known++
		case SexM:
			known++
		}
	}
	if known > 0 {
		st.femaleShare = float64(females) / float64(known)
	}
	return st, nil
}

// count adds d copies of student s to the counters of class k. It leaves
// assign and members alone, which is what move evaluation needs.
func (st *state) count(s, k, d int) {
	stu := &st.students[s]
	st.size[k] += d
	for c, v := range stu.Scores {
		if v >= MinScore {
			st.buckets[k][c][v] += d
		}
	}
	switch stu.Sex {
	case SexF:
		st.females[k] += d
	case SexM:
		st.males[k] += d
	}
	for _, key := range st.keys[s] {
		st.keyCount[k][key] += d
	}
	if stu.Dissociation != "" {
		st.dissoc[k][stu.Dissociation] += d
	}
}

// shift moves s between class counters without touching rosters.
func (st *state) shift(s, from, to int) {
	st.count(s, from, -1)
	st.count(s, to, 1)
}

func (st *state) move(s, to int) {
	from := st.assign[s]
	if from == to {
		return
	}
	st.shift(s, from, to)
	st.assign[s] = to
	if i, ok := slices.BinarySearch(st.members[from], s); ok {
		st.members[from] = slices.Delete(st.members[from], i, i+1)
	}
	i, _ := slices.BinarySearch(st.members[to], s)
	st.members[to] = slices.Insert(st.members[to], i, s)
}

func (st *state) keepsMin(k, leaving int) bool {
	return st.size[k]-leaving >= st.classes[k].Min
}

// groupClass returns the class of an association group when all members share it.
func (st *state) groupClass(g int) (int, bool) {
	members := st.groups[g].members
	k := st.assign[members[0]]
	for _, m := range members[1:] {
		if st.assign[m] != k {
			return -1, false
		}
	}
	return k, true
}

type profile struct {
	scores   Scores
	sex      Sex
	language OptionKey
	option   OptionKey
	dissoc   DissociationCode
	mobility Mobility
}

// representatives returns the lowest-index student of each distinct profile
// in class k among those accepted by keep. Students sharing a profile are
// interchangeable for every move the engine scores.
func (st *state) representatives(k int, keep func(s int) bool) []int {
	seen := map[profile]bool{}
	var reps []int
	for _, s := range st.members[k] {
		if !keep(s) {
			continue
		}
		stu := &st.students[s]
		p := profile{stu.Scores, stu.Sex, stu.Language, stu.Option, stu.Dissociation, st.mobility[s]}
		if seen[p] {
			continue
		}
		seen[p] = true
		reps = append(reps, s)
	}
	return reps
}

func (st *state) ids(students ...int) []StudentID {
	out := make([]StudentID, len(students))
	for i, s := range students {
		out[i] = st.students[s].ID
	}
	return out
}

func (st *state) snapshot() []Student {
	out := slices.Clone(st.students)
	for i := range out {
		out[i].Class = st.classes[st.assign[i]].Name
	}
	return out
}
