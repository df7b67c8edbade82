package roster

import (
	"fmt"
	"strconv"
	"strings"

	"classmix/solver"
)

type Field int

const (
	FieldID Field = iota
	FieldClass
	FieldBehavior
	FieldWork
	FieldParticipation
	FieldAttendance
	FieldSex
	FieldLanguage
	FieldOption
	FieldAssociation
	FieldDissociation
)

// Aliases maps a normalised header to the field it names. Headers are
// matched after trimming and upper-casing.
var Aliases = map[string]Field{
	"ID":            FieldID,
	"STUDENT":       FieldID,
	"STUDENT ID":    FieldID,
	"NAME":          FieldID,
	"CLASS":         FieldClass,
	"CLASSE":        FieldClass,
	"GROUP":         FieldClass,
	"BEHAVIOR":      FieldBehavior,
	"BEHAVIOUR":     FieldBehavior,
	"CONDUCT":       FieldBehavior,
	"WORK":          FieldWork,
	"WORK ETHIC":    FieldWork,
	"PARTICIPATION": FieldParticipation,
	"ORAL":          FieldParticipation,
	"ATTENDANCE":    FieldAttendance,
	"ABSENCES":      FieldAttendance,
	"SEX":           FieldSex,
	"GENDER":        FieldSex,
	"LANGUAGE":      FieldLanguage,
	"LV2":           FieldLanguage,
	"OPTION":        FieldOption,
	"ASSOCIATION":   FieldAssociation,
	"ASSO":          FieldAssociation,
	"DISSOCIATION":  FieldDissociation,
	"DISSO":         FieldDissociation,
}

var scoreFields = [solver.NumCriteria]Field{FieldBehavior, FieldWork, FieldParticipation, FieldAttendance}

// FieldMap records the column index of every recognised field.
type FieldMap map[Field]int

func MapHeader(header []string) (FieldMap, error) {
	m := FieldMap{}
	for i, h := range header {
		f, ok := Aliases[normalize(h)]
		if !ok {
			continue
		}
		if _, dup := m[f]; !dup {
			m[f] = i
		}
	}
	if _, ok := m[FieldID]; !ok {
		return nil, fmt.Errorf("%w: no student id column", ErrBadHeader)
	}
	if _, ok := m[FieldClass]; !ok {
		return nil, fmt.Errorf("%w: no class column", ErrBadHeader)
	}
	return m, nil
}

func (m FieldMap) cell(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Student converts one data row. Empty score cells stay unset.
func (m FieldMap) Student(row []string) (solver.Student, error) {
	s := solver.Student{
		ID:           solver.StudentID(m.cell(row, FieldID)),
		Class:        solver.ClassID(normalize(m.cell(row, FieldClass))),
		Sex:          solver.ParseSex(m.cell(row, FieldSex)),
		Language:     solver.OptionKey(normalize(m.cell(row, FieldLanguage))),
		Option:       solver.OptionKey(normalize(m.cell(row, FieldOption))),
		Association:  solver.AssociationCode(normalize(m.cell(row, FieldAssociation))),
		Dissociation: solver.DissociationCode(normalize(m.cell(row, FieldDissociation))),
	}
	if s.ID == "" || s.Class == "" {
		return s, fmt.Errorf("%w: missing id or class", ErrBadRow)
	}
	for c, f := range scoreFields {
		v := m.cell(row, f)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%w: %s %q for %s", ErrBadRow, solver.Criterion(c), v, s.ID)
		}
		s.Scores[c] = n
	}
	return s, nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Normalize upper-cases and trims every class name and key of a snapshot so
// the solver compares them verbatim.
func Normalize(in *solver.Input) {
	for i := range in.Students {
		s := &in.Students[i]
		s.Class = solver.ClassID(normalize(string(s.Class)))
		s.Language = solver.OptionKey(normalize(string(s.Language)))
		s.Option = solver.OptionKey(normalize(string(s.Option)))
		s.Association = solver.AssociationCode(normalize(string(s.Association)))
		s.Dissociation = solver.DissociationCode(normalize(string(s.Dissociation)))
	}
	for i := range in.Classes {
		c := &in.Classes[i]
		c.Name = solver.ClassID(normalize(string(c.Name)))
		if c.Quotas != nil {
			quotas := map[solver.OptionKey]int{}
			for k, v := range c.Quotas {
				quotas[solver.OptionKey(normalize(string(k)))] += v
			}
			c.Quotas = quotas
		}
	}
	if in.Pools != nil {
		pools := solver.OptionPool{}
		for k, classes := range in.Pools {
			key := solver.OptionKey(normalize(string(k)))
			for _, c := range classes {
				pools[key] = append(pools[key], solver.ClassID(normalize(string(c))))
			}
		}
		in.Pools = pools
	}
	if in.Dissociations != nil {
		seed := solver.DissociationMap{}
		for class, codes := range in.Dissociations {
			name := solver.ClassID(normalize(string(class)))
			if seed[name] == nil {
				seed[name] = map[solver.DissociationCode]int{}
			}
			for code, n := range codes {
				seed[name][solver.DissociationCode(normalize(string(code)))] += n
			}
		}
		in.Dissociations = seed
	}
}
