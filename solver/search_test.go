package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA() Input {
	return Input{
		Classes:  []ClassGroup{class("A", 0, 2), class("B", 0, 2)},
		Students: []Student{stu("s1", "A", 1), stu("s2", "A", 1), stu("s3", "B", 4), stu("s4", "B", 4)},
	}
}

func TestScenarioABalancesWithOneSwap(t *testing.T) {
	res, err := Solve(scenarioA(), DefaultParams, nil)
	require.NoError(t, err)

	sum := res.Summary
	assert.Equal(t, Converged, sum.Termination)
	assert.Equal(t, 1, sum.TotalMoves)
	assert.Equal(t, 1, sum.Swaps)
	assert.Equal(t, 4.0, sum.ObjectiveBefore)
	assert.InDelta(t, 0, sum.ObjectiveAfter, epsilon)

	require.Len(t, sum.Moves, 1)
	m := sum.Moves[0]
	assert.Equal(t, MoveSwap, m.Kind)
	assert.Equal(t, []StudentID{"s1", "s3"}, m.Students)
	assert.Equal(t, []ClassID{"A", "B"}, m.From)
	assert.Equal(t, []ClassID{"B", "A"}, m.To)
	assert.Equal(t, ClassID("B"), res.Assignment["s1"])
	assert.Equal(t, ClassID("A"), res.Assignment["s3"])
}

func TestSearchStopsOnMoveCapOnlyWithPendingWork(t *testing.T) {
	params := DefaultParams
	params.MaxMoves = 0

	res, err := Solve(scenarioA(), params, nil)
	require.NoError(t, err)
	assert.Equal(t, Capped, res.Summary.Termination)
	assert.Zero(t, res.Summary.TotalMoves)

	balanced := scenarioA()
	balanced.Students[1].Class, balanced.Students[2].Class = "B", "A"
	res, err = Solve(balanced, params, nil)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Summary.Termination)
	assert.Equal(t, 1, res.Summary.Rounds)
}

func TestSearchIterationCap(t *testing.T) {
	params := DefaultParams
	params.MaxIterations = 0
	params.MaxRounds = 1
	st := mustState(t, scenarioA(), params)
	r := newRunner(st)
	assert.True(t, r.search())
	assert.Zero(t, r.sum.Iterations)
}

func TestScenarioCGroupConsolidation(t *testing.T) {
	st := mustState(t, Input{
		Classes: []ClassGroup{class("A", 0, 3), class("B", 0, 3), class("C", 0, 2)},
		Students: []Student{
			{ID: "g1", Class: "A", Association: "G1"},
			{ID: "g2", Class: "B", Association: "G1"},
			{ID: "g3", Class: "C", Association: "G1"},
			{ID: "x1", Class: "C"},
		},
	}, DefaultParams)

	k, ok := st.consolidationTarget(0)
	require.True(t, ok)
	assert.Equal(t, ClassID("A"), st.classes[k].Name)

	r := newRunner(st)
	assert.False(t, r.consolidateGroups())
	require.Len(t, r.sum.Moves, 1)
	m := r.sum.Moves[0]
	assert.Equal(t, MoveGroup, m.Kind)
	assert.Equal(t, []StudentID{"g2", "g3"}, m.Students)
	assert.Equal(t, []ClassID{"B", "C"}, m.From)
	assert.Equal(t, []ClassID{"A", "A"}, m.To)
	_, together := st.groupClass(0)
	assert.True(t, together)
}

func TestGroupWithoutCommonClassIsReported(t *testing.T) {
	in := Input{
		Classes: []ClassGroup{class("A", 0, 1), class("B", 0, 1)},
		Students: []Student{
			{ID: "g1", Class: "A", Association: "G1"},
			{ID: "g2", Class: "B", Association: "G1"},
		},
	}
	res, err := Solve(in, DefaultParams, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.GroupMoves)
	require.Len(t, res.Summary.Unplaceable, 1)
	assert.Equal(t, GroupIssue{
		Code:     "G1",
		Students: []StudentID{"g1", "g2"},
		Classes:  []ClassID{"A", "B"},
	}, res.Summary.Unplaceable[0])
}

func TestScenarioDFixedStudentNeverCandidate(t *testing.T) {
	in := Input{
		Classes: []ClassGroup{class("A", 0, 4), class("B", 0, 4)},
		Pools:   OptionPool{"LATIN": {"A"}},
		Students: []Student{
			{ID: "l1", Class: "A", Option: "LATIN", Scores: Scores{4}},
			stu("s1", "A", 4), stu("s2", "A", 4),
			stu("s3", "B", 1), stu("s4", "B", 1),
		},
	}
	st := mustState(t, in, DefaultParams)
	latin := index(t, st, "l1")
	assert.Equal(t, Fixed, st.mobility[latin])

	visited := 0
	st.eachCandidate(st.costs(st.classCost), func(c candidate) {
		visited++
		assert.NotEqual(t, latin, c.a)
		assert.NotEqual(t, latin, c.b)
	})
	assert.Positive(t, visited)

	res, err := Solve(in, DefaultParams, nil)
	require.NoError(t, err)
	assert.Equal(t, ClassID("A"), res.Assignment["l1"])
	assert.Equal(t, 1, res.Summary.Mobility[Fixed])
}

func TestRepresentativesDedupeProfiles(t *testing.T) {
	st := mustState(t, scenarioA(), DefaultParams)
	all := func(int) bool { return true }
	assert.Equal(t, []int{index(t, st, "s1")}, st.representatives(st.classIdx["A"], all))
}

func TestBetterTieBreak(t *testing.T) {
	base := candidate{gain: 1, pressure: 2, lead: 3, to: 1, b: -1}
	higherGain := base
	higherGain.gain = 2
	assert.True(t, higherGain.better(&base))

	morePressure := base
	morePressure.pressure = 5
	assert.True(t, morePressure.better(&base))

	lowerLead := base
	lowerLead.lead = 0
	assert.True(t, lowerLead.better(&base))

	lowerClass := base
	lowerClass.to = 0
	assert.True(t, lowerClass.better(&base))
	assert.False(t, base.better(&base))
}
