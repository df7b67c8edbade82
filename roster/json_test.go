package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classmix/solver"
)

const studentsJSON = `[
  {"id": "s1", "class": "a", "scores": [1, 2, 3, 4], "sex": "F", "language": "german"},
  {"id": "s2", "class": "B", "scores": [4, 0, 0, 1], "sex": "M", "dissociation": "d1"}
]`

const structureJSON = `{
  "classes": [
    {"name": "A", "min": 0, "max": 3, "quotas": {"german": 2}},
    {"name": "b", "min": 0, "max": 3}
  ],
  "dissociations": {"b": {"d1": 1}}
}`

func TestReadJSON(t *testing.T) {
	in, err := ReadJSON(strings.NewReader(studentsJSON), strings.NewReader(structureJSON))
	require.NoError(t, err)

	require.Len(t, in.Students, 2)
	assert.Equal(t, solver.ClassID("A"), in.Students[0].Class)
	assert.Equal(t, solver.SexF, in.Students[0].Sex)
	assert.Equal(t, solver.OptionKey("GERMAN"), in.Students[0].Language)
	assert.Equal(t, solver.Scores{4, 0, 0, 1}, in.Students[1].Scores)
	assert.Equal(t, solver.DissociationCode("D1"), in.Students[1].Dissociation)

	assert.Equal(t, map[solver.OptionKey]int{"GERMAN": 2}, in.Classes[0].Quotas)
	assert.Equal(t, solver.ClassID("B"), in.Classes[1].Name)
	assert.Equal(t, 1, in.Dissociations.Count("B", "D1"))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "students.json"), []byte(studentsJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "structure.json"), []byte(structureJSON), 0o644))

	in, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, in.Students, 2)
	assert.Len(t, in.Classes, 2)

	_, err = Load(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestReadJSONRejectsGarbage(t *testing.T) {
	_, err := ReadJSON(strings.NewReader("{"), strings.NewReader(structureJSON))
	require.Error(t, err)
}
