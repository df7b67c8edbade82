package solver

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsCohortIntact(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		in := generate(seed, genOpts{sexes: true, dissociations: true})
		res, err := Solve(in, DefaultParams, nil)
		require.NoError(t, err)

		require.Len(t, res.Students, len(in.Students))
		require.Len(t, res.Assignment, len(in.Students))
		sizes := map[ClassID]int{}
		for _, s := range in.Students {
			class, ok := res.Assignment[s.ID]
			require.True(t, ok, "student %s lost", s.ID)
			sizes[class]++
		}
		for _, c := range in.Classes {
			assert.LessOrEqual(t, sizes[c.Name], c.Max, "class %s over capacity", c.Name)
		}
	}
}

func TestRunNeverMovesFixedStudents(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		in := generate(seed, genOpts{sexes: true, dissociations: true})
		res, err := Solve(in, DefaultParams, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Summary.Mobility[Fixed])
		for _, s := range res.Students {
			if s.Fixed() {
				assert.Equal(t, ClassID("C1"), s.Class, "fixed student %s moved", s.ID)
			}
		}
	}
}

func TestRunGathersAssociationGroups(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		in := generate(seed, genOpts{sexes: true, dissociations: true})
		res, err := Solve(in, DefaultParams, nil)
		require.NoError(t, err)

		unplaceable := map[AssociationCode]bool{}
		for _, issue := range res.Summary.Unplaceable {
			unplaceable[issue.Code] = true
		}
		groups := map[AssociationCode]map[ClassID]bool{}
		for _, s := range res.Students {
			if s.Association == "" {
				continue
			}
			if groups[s.Association] == nil {
				groups[s.Association] = map[ClassID]bool{}
			}
			groups[s.Association][s.Class] = true
		}
		for code, classes := range groups {
			if !unplaceable[code] {
				assert.Len(t, classes, 1, "group %s split", code)
			}
		}
	}
}

func TestSearchPhasesNeverWorsenObjective(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		res, err := Solve(generate(seed, genOpts{sexes: true, dissociations: true}), DefaultParams, nil)
		require.NoError(t, err)
		require.NotEmpty(t, res.Summary.Phases)
		for _, p := range res.Summary.Phases {
			if p.Phase == PhaseSearch {
				assert.LessOrEqual(t, p.ObjectiveAfter, p.ObjectiveBefore+1e-6, "round %d", p.Round)
			}
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	in := generate(7, genOpts{sexes: true, dissociations: true})
	first, err := Solve(in, DefaultParams, nil)
	require.NoError(t, err)
	second, err := Solve(in, DefaultParams, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}

	shuffled := in
	shuffled.Students = append([]Student(nil), in.Students...)
	rand.New(rand.NewSource(99)).Shuffle(len(shuffled.Students), func(i, j int) {
		shuffled.Students[i], shuffled.Students[j] = shuffled.Students[j], shuffled.Students[i]
	})
	third, err := Solve(shuffled, DefaultParams, nil)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(first.Assignment), Fingerprint(third.Assignment))
}

func TestEngineReusesInjectedRand(t *testing.T) {
	in := generate(3, genOpts{sexes: true, dissociations: true})
	e, err := New(DefaultParams, WithRand(rand.New(rand.NewSource(5))), WithLogger(nopLogger))
	require.NoError(t, err)
	res, err := e.Run(in)
	require.NoError(t, err)
	assert.Len(t, res.Assignment, len(in.Students))
}

func TestRunIsIdempotent(t *testing.T) {
	cohorts := []genOpts{{}, {sexes: true}, {sexes: true, dissociations: true}}
	for _, opts := range cohorts {
		for seed := int64(1); seed <= 8; seed++ {
			in := generate(seed, opts)
			first, err := Solve(in, DefaultParams, nil)
			require.NoError(t, err)
			require.Equal(t, Converged, first.Summary.Termination, "seed %d %+v", seed, opts)

			again := in
			again.Students = first.Students
			second, err := Solve(again, DefaultParams, nil)
			require.NoError(t, err)
			assert.Equal(t, Converged, second.Summary.Termination)
			assert.Zero(t, second.Summary.TotalMoves, "seed %d %+v", seed, opts)
			assert.Equal(t, first.Assignment, second.Assignment)
			assert.InDelta(t, first.Summary.ObjectiveAfter, second.Summary.ObjectiveAfter, 1e-9)
		}
	}
}

func TestParityAndSearchDoNotUndoEachOther(t *testing.T) {
	for seed := int64(1); seed <= 40; seed++ {
		res, err := Solve(generate(seed, genOpts{sexes: true}), DefaultParams, nil)
		require.NoError(t, err)
		assert.Equal(t, Converged, res.Summary.Termination, "seed %d", seed)

		for _, p := range res.Summary.Phases {
			if p.Phase == PhaseParity {
				assert.LessOrEqual(t, p.ObjectiveAfter, p.ObjectiveBefore+1e-6, "seed %d round %d", seed, p.Round)
			}
		}
	}
}

func TestSummaryCountsAddUp(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		res, err := Solve(generate(seed, genOpts{sexes: true, dissociations: true}), DefaultParams, nil)
		require.NoError(t, err)
		assert.Equal(t, res.Summary.TotalMoves, len(res.Summary.Moves))
		assert.Equal(t, res.Summary.TotalMoves,
			res.Summary.Transfers+res.Summary.Swaps+res.Summary.GroupMoves+res.Summary.ConflictMoves+res.Summary.ParityMoves)
	}
}

func TestRunWithoutStudents(t *testing.T) {
	res, err := Solve(Input{Classes: []ClassGroup{class("A", 0, 3)}}, DefaultParams, nil)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Summary.Termination)
	assert.Equal(t, 1, res.Summary.Rounds)
	assert.Zero(t, res.Summary.TotalMoves)
	assert.Empty(t, res.Assignment)
}

func TestRunRejectsInvalidSnapshots(t *testing.T) {
	valid := func() Input {
		return Input{
			Classes:  []ClassGroup{class("A", 0, 3), class("B", 0, 3)},
			Students: []Student{stu("s1", "A", 1), stu("s2", "B", 2)},
		}
	}
	tests := []struct {
		name   string
		mutate func(in *Input)
		want   error
	}{
		{"no classes", func(in *Input) { in.Classes = nil }, ErrNoClasses},
		{"unknown class", func(in *Input) { in.Students[0].Class = "Z" }, ErrUnknownClass},
		{"duplicate id", func(in *Input) { in.Students[1].ID = "s1" }, ErrDuplicateStudent},
		{"score too high", func(in *Input) { in.Students[0].Scores[Work] = 5 }, ErrInvalidScore},
		{"negative score", func(in *Input) { in.Students[0].Scores[Behavior] = -1 }, ErrInvalidScore},
		{"min above max", func(in *Input) { in.Classes[0].Min = 4 }, ErrInvalidCapacity},
		{"zero max", func(in *Input) { in.Classes[1].Max = 0 }, ErrInvalidCapacity},
		{"pool class", func(in *Input) { in.Pools = OptionPool{"LATIN": {"Q"}} }, ErrInvalidPool},
		{"seed class", func(in *Input) { in.Dissociations = DissociationMap{"Q": {"D": 1}} }, ErrUnknownClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			res, err := Solve(in, DefaultParams, nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	params := DefaultParams
	params.MaxRounds = 0
	_, err := New(params)
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.True(t, IsInputError(err))
}

func TestSummaryJSONRoundTrip(t *testing.T) {
	res, err := Solve(generate(2, genOpts{sexes: true, dissociations: true}), DefaultParams, nil)
	require.NoError(t, err)
	raw, err := json.Marshal(res.Summary)
	require.NoError(t, err)
	var back Summary
	require.NoError(t, json.Unmarshal(raw, &back))
	if diff := cmp.Diff(res.Summary, back, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("summary changed (-want +got):\n%s", diff)
	}
}
