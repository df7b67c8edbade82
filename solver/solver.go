package solver

import (
	"cmp"
	"math/rand"
	"slices"
	"strings"
)

func Solve(in Input, params Params, rng *rand.Rand) (*Result, error) {
	e, err := New(params, WithRand(rng))
	if err != nil {
		return nil, err
	}
	return e.Run(in)
}

// Fingerprint renders an assignment as "class:id,id;" per class in name
// order, so equal assignments compare equal as strings.
func Fingerprint(assignment map[StudentID]ClassID) string {
	rm := map[ClassID][]StudentID{}
	for id, class := range assignment {
		rm[class] = append(rm[class], id)
	}
	classes := make([]ClassID, 0, len(rm))
	for class := range rm {
		classes = append(classes, class)
	}
	slices.SortFunc(classes, func(a, b ClassID) int { return cmp.Compare(a, b) })
	var buf strings.Builder
	for _, class := range classes {
		members := rm[class]
		slices.Sort(members)
		buf.WriteString(string(class))
		buf.WriteByte(':')
		for i, m := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(string(m))
		}
		buf.WriteByte(';')
	}
	return buf.String()
}
