package roster

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"classmix/solver"
)

const (
	SheetStudents   = "Students"
	SheetClasses    = "Classes"
	SheetPools      = "Pools"
	SheetAssignment = "Assignment"
	SheetSummary    = "Summary"
	SheetConflicts  = "Conflicts"
	SheetMoves      = "Moves"
)

// ReadXLSX loads a cohort workbook. Students and Classes are required; a
// Pools sheet overrides the pools derived from class quotas.
//
// Classes: name, min, max, ideal, then one column per option key holding
// the seats reserved for it. Pools: key, then the allowed class names.
func ReadXLSX(r io.Reader) (solver.Input, error) {
	var in solver.Input
	f, err := excelize.OpenReader(r)
	if err != nil {
		return in, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, name := range []string{SheetStudents, SheetClasses} {
		if !slices.Contains(sheets, name) {
			return in, fmt.Errorf("%w: %s", ErrMissingSheet, name)
		}
	}

	rows, err := f.GetRows(SheetClasses)
	if err != nil {
		return in, fmt.Errorf("failed to read %s: %w", SheetClasses, err)
	}
	if in.Classes, err = parseClasses(rows); err != nil {
		return in, err
	}

	rows, err = f.GetRows(SheetStudents)
	if err != nil {
		return in, fmt.Errorf("failed to read %s: %w", SheetStudents, err)
	}
	if in.Students, err = parseStudents(rows); err != nil {
		return in, err
	}

	if slices.Contains(sheets, SheetPools) {
		rows, err = f.GetRows(SheetPools)
		if err != nil {
			return in, fmt.Errorf("failed to read %s: %w", SheetPools, err)
		}
		in.Pools = parsePools(rows)
	}
	Normalize(&in)
	return in, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseStudents(rows [][]string) ([]solver.Student, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBadHeader, SheetStudents)
	}
	fields, err := MapHeader(rows[0])
	if err != nil {
		return nil, err
	}
	var out []solver.Student
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s, err := fields.Student(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetStudents, i+2, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func atoi(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	return strconv.Atoi(cell)
}

func parseClasses(rows [][]string) ([]solver.ClassGroup, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBadHeader, SheetClasses)
	}
	header := rows[0]
	if len(header) < 3 {
		return nil, fmt.Errorf("%w: %s needs name, min and max", ErrBadHeader, SheetClasses)
	}
	var out []solver.ClassGroup
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		c := solver.ClassGroup{Name: solver.ClassID(normalize(row[0]))}
		nums := make([]int, len(header))
		for j := 1; j < len(header) && j < len(row); j++ {
			n, err := atoi(row[j])
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w: column %q", SheetClasses, i+2, ErrBadRow, header[j])
			}
			nums[j] = n
		}
		c.Min, c.Max = nums[1], nums[2]
		if len(header) > 3 {
			c.Ideal = nums[3]
		}
		for j := 4; j < len(header); j++ {
			key := normalize(header[j])
			if key == "" || nums[j] == 0 {
				continue
			}
			if c.Quotas == nil {
				c.Quotas = map[solver.OptionKey]int{}
			}
			c.Quotas[solver.OptionKey(key)] = nums[j]
		}
		out = append(out, c)
	}
	return out, nil
}

func parsePools(rows [][]string) solver.OptionPool {
	pools := solver.OptionPool{}
	for _, row := range rows {
		if len(row) < 2 || blank(row) {
			continue
		}
		key := solver.OptionKey(normalize(row[0]))
		for _, c := range row[1:] {
			if c = normalize(c); c != "" {
				pools[key] = append(pools[key], solver.ClassID(c))
			}
		}
	}
	return pools
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s: %w", sheet, err)
		}
	}
	return nil
}

func joinIDs[T ~string](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// WriteXLSX writes the assignment of every student and, when a summary is
// given, the run summary, residual conflicts and move log.
func WriteXLSX(w io.Writer, students []solver.Student, sum *solver.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{}
	order := []string{SheetAssignment}

	assignment := [][]any{{"ID", "Class", "Behavior", "Work", "Participation", "Attendance", "Sex", "Language", "Option", "Association", "Dissociation", "Mobility"}}
	for _, s := range students {
		assignment = append(assignment, []any{
			string(s.ID), string(s.Class),
			s.Scores[solver.Behavior], s.Scores[solver.Work], s.Scores[solver.Participation], s.Scores[solver.Attendance],
			s.Sex.String(), string(s.Language), string(s.Option), string(s.Association), string(s.Dissociation),
			s.Mobility.String(),
		})
	}
	sheets[SheetAssignment] = assignment

	if sum != nil {
		order = append(order, SheetSummary, SheetConflicts, SheetMoves)
		sheets[SheetSummary] = [][]any{
			{"Termination", sum.Termination.String()},
			{"Rounds", sum.Rounds},
			{"Iterations", sum.Iterations},
			{"Moves", sum.TotalMoves},
			{"Transfers", sum.Transfers},
			{"Swaps", sum.Swaps},
			{"Group moves", sum.GroupMoves},
			{"Conflict moves", sum.ConflictMoves},
			{"Parity moves", sum.ParityMoves},
			{"Objective before", sum.ObjectiveBefore},
			{"Objective after", sum.ObjectiveAfter},
			{"Residual conflicts", len(sum.Conflicts)},
			{"Unplaceable groups", len(sum.Unplaceable)},
		}
		conflicts := [][]any{{"Code", "Class", "Students", "Pairs"}}
		for _, c := range sum.Conflicts {
			conflicts = append(conflicts, []any{string(c.Code), string(c.Class), joinIDs(c.Students), c.Pairs})
		}
		for _, g := range sum.Unplaceable {
			conflicts = append(conflicts, []any{string(g.Code), joinIDs(g.Classes), joinIDs(g.Students), 0})
		}
		sheets[SheetConflicts] = conflicts
		moves := [][]any{{"Kind", "Students", "From", "To", "Gain"}}
		for _, m := range sum.Moves {
			moves = append(moves, []any{m.Kind.String(), joinIDs(m.Students), joinIDs(m.From), joinIDs(m.To), m.Gain})
		}
		sheets[SheetMoves] = moves
	}

	for _, name := range order {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := setRows(f, name, sheets[name]); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}
