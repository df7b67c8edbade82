package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParamsAreValid(t *testing.T) {
	require.NoError(t, DefaultParams.Validate())
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		msg    string
	}{
		{"negative weight", func(p *Params) { p.CriterionWeights[Attendance] = -1 }, "attendance"},
		{"negative parity", func(p *Params) { p.ParityWeight = -0.1 }, "parity_weight"},
		{"negative moves", func(p *Params) { p.MaxMoves = -1 }, "max_moves"},
		{"no rounds", func(p *Params) { p.MaxRounds = 0 }, "max_rounds"},
		{"tiny exact limit", func(p *Params) { p.ExactGroupLimit = 1 }, "exact_group_limit"},
		{"unknown basis", func(p *Params) { p.TargetBasis = "median" }, "target_basis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams
			tt.mutate(&p)
			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestObjectiveOfBalancedSnapshot(t *testing.T) {
	in := scenarioA()
	in.Students[1].Class, in.Students[2].Class = "B", "A"
	obj, err := Objective(in, DefaultParams)
	require.NoError(t, err)
	assert.InDelta(t, 0, obj, epsilon)
}
