package solver

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop()

func stu(id, class string, scores ...int) Student {
	s := Student{ID: StudentID(id), Class: ClassID(class)}
	copy(s.Scores[:], scores)
	return s
}

func class(name string, lo, hi int) ClassGroup {
	return ClassGroup{Name: ClassID(name), Min: lo, Max: hi}
}

func mustState(t *testing.T, in Input, params Params) *state {
	t.Helper()
	st, err := newState(in, params)
	require.NoError(t, err)
	return st
}

func index(t *testing.T, st *state, id string) int {
	t.Helper()
	for i, s := range st.students {
		if s.ID == StudentID(id) {
			return i
		}
	}
	t.Fatalf("student %s not found", id)
	return -1
}

func newRunner(st *state) *runner {
	return &runner{st: st, params: st.params, rng: rand.New(rand.NewSource(st.params.Seed)), log: nopLogger}
}

type genOpts struct {
	sexes         bool
	dissociations bool
}

// generate builds a 28-student, 4-class cohort. Two LATIN students are pinned
// to C1, four GERMAN students share C1 and C2, and two association groups
// start split.
func generate(seed int64, opts genOpts) Input {
	rng := rand.New(rand.NewSource(seed))
	in := Input{Classes: []ClassGroup{
		{Name: "C1", Min: 2, Max: 9, Quotas: map[OptionKey]int{"LATIN": 3, "GERMAN": 4}},
		{Name: "C2", Min: 2, Max: 9, Quotas: map[OptionKey]int{"GERMAN": 4}},
		{Name: "C3", Min: 2, Max: 9},
		{Name: "C4", Min: 2, Max: 9},
	}}
	for i := range 28 {
		s := Student{ID: StudentID(fmt.Sprintf("s%02d", i)), Class: ClassID(fmt.Sprintf("C%d", i%4+1))}
		for c := range NumCriteria {
			s.Scores[c] = rng.Intn(MaxScore) + MinScore
		}
		if opts.sexes {
			s.Sex = SexF
			if rng.Intn(2) == 0 {
				s.Sex = SexM
			}
		}
		switch i {
		case 0, 1:
			s.Option, s.Class = "LATIN", "C1"
		case 2, 3:
			s.Language, s.Class = "GERMAN", "C1"
		case 4, 5:
			s.Language, s.Class = "GERMAN", "C2"
		case 10, 11:
			s.Association = "G1"
		case 14, 15, 16:
			s.Association = "G2"
		}
		if opts.dissociations {
			switch i {
			case 20, 21:
				s.Dissociation, s.Class = "D1", "C3"
			case 22, 23:
				s.Dissociation, s.Class = "D2", "C4"
			case 24:
				s.Dissociation = "D2"
			}
		}
		in.Students = append(in.Students, s)
	}
	return in
}
