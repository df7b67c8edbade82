package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classmix/solver"
)

func TestLoadParamsOverlaysDefaults(t *testing.T) {
	p, err := LoadParams(strings.NewReader(`
criterion_weights: [2, 1, 1, 0.5]
parity_weight: 3
target_basis: capacity
max_rounds: 6
seed: 7
`))
	require.NoError(t, err)

	want := solver.DefaultParams
	want.CriterionWeights = [solver.NumCriteria]float64{2, 1, 1, 0.5}
	want.ParityWeight = 3
	want.TargetBasis = solver.BasisCapacity
	want.MaxRounds = 6
	want.Seed = 7
	assert.Equal(t, want, p)
}

func TestLoadParamsEmpty(t *testing.T) {
	p, err := LoadParams(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultParams, p)
}

func TestLoadParamsRejects(t *testing.T) {
	_, err := LoadParams(strings.NewReader("max_roundz: 3\n"))
	require.Error(t, err)

	_, err = LoadParams(strings.NewReader("max_rounds: 0\n"))
	require.ErrorIs(t, err, solver.ErrInvalidParams)

	_, err = LoadParams(strings.NewReader("target_basis: median\n"))
	require.ErrorIs(t, err, solver.ErrInvalidParams)
}

func TestLoadParamsFile(t *testing.T) {
	p, err := LoadParamsFile("")
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultParams, p)

	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exact_group_limit: 4\n"), 0o644))
	p, err = LoadParamsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, p.ExactGroupLimit)
}

func TestMergeJSON(t *testing.T) {
	p, err := MergeJSON(solver.DefaultParams, []byte(`{"stability_bonus": 2, "max_moves": 10}`))
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.StabilityBonus)
	assert.Equal(t, 10, p.MaxMoves)
	assert.Equal(t, solver.DefaultParams.MaxRounds, p.MaxRounds)

	p, err = MergeJSON(solver.DefaultParams, nil)
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultParams, p)

	_, err = MergeJSON(solver.DefaultParams, []byte(`{"max_moves": -1}`))
	require.ErrorIs(t, err, solver.ErrInvalidParams)
	_, err = MergeJSON(solver.DefaultParams, []byte(`{`))
	require.ErrorIs(t, err, solver.ErrInvalidParams)
}

func setRequired(t *testing.T) {
	t.Setenv("PGCONN", "postgres://localhost/classmix")
	t.Setenv("CLIENT_ID", "client")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("ADMINS", "a@example.com, b@example.com")
}

func TestLoadServerFromEnv(t *testing.T) {
	setRequired(t)
	s, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "secret", s.ClientSecret)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, s.Admins)
	assert.True(t, s.IsAdmin("b@example.com"))
	assert.False(t, s.IsAdmin("c@example.com"))
}

func TestLoadServerFromFile(t *testing.T) {
	setRequired(t)
	t.Setenv("ADDR", ":9000")
	path := filepath.Join(t.TempDir(), "classmix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\nparams_file: /etc/params.yaml\nlog_level: debug\n"), 0o644))

	s, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", s.Addr)
	assert.Equal(t, "/etc/params.yaml", s.ParamsFile)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadServerRequiresSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("CLIENT_SECRET", "")
	_, err := LoadServer("")
	require.ErrorContains(t, err, "CLIENT_SECRET")
}
