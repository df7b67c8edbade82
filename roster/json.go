package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"classmix/solver"
)

// Structure is the class layout stored next to students.json.
type Structure struct {
	Classes       []solver.ClassGroup    `json:"classes"`
	Pools         solver.OptionPool      `json:"pools,omitempty"`
	Dissociations solver.DissociationMap `json:"dissociations,omitempty"`
}

func ReadJSON(students, structure io.Reader) (solver.Input, error) {
	var in solver.Input
	if err := json.NewDecoder(students).Decode(&in.Students); err != nil {
		return in, fmt.Errorf("failed to decode students: %w", err)
	}
	var st Structure
	if err := json.NewDecoder(structure).Decode(&st); err != nil {
		return in, fmt.Errorf("failed to decode structure: %w", err)
	}
	in.Classes, in.Pools, in.Dissociations = st.Classes, st.Pools, st.Dissociations
	Normalize(&in)
	return in, nil
}

// LoadDir reads students.json and structure.json from dir.
func LoadDir(dir string) (solver.Input, error) {
	students, err := os.Open(filepath.Join(dir, "students.json"))
	if err != nil {
		return solver.Input{}, err
	}
	defer students.Close()
	structure, err := os.Open(filepath.Join(dir, "structure.json"))
	if err != nil {
		return solver.Input{}, err
	}
	defer structure.Close()
	return ReadJSON(students, structure)
}

// Load picks the reader from the path: a directory holds JSON files,
// anything else is read as a workbook.
func Load(path string) (solver.Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return solver.Input{}, err
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return solver.Input{}, err
	}
	defer f.Close()
	return ReadXLSX(f)
}
