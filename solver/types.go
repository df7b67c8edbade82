package solver

import (
	"slices"
	"strings"
)

type (
	StudentID        string
	ClassID          string
	OptionKey        string
	AssociationCode  string
	DissociationCode string
)

type Sex int

const (
	SexUnknown Sex = iota
	SexF
	SexM
)

func ParseSex(s string) Sex {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "F":
		return SexF
	case "M", "G":
		return SexM
	}
	return SexUnknown
}

func (s Sex) String() string {
	switch s {
	case SexF:
		return "F"
	case SexM:
		return "M"
	}
	return ""
}

func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sex) UnmarshalText(b []byte) error {
	*s = ParseSex(string(b))
	return nil
}

type Mobility int

const (
	SwappableFree Mobility = iota
	SwappableConditional
	GroupLocked
	Fixed
)

func (m Mobility) String() string {
	switch m {
	case SwappableFree:
		return "SWAPPABLE-FREE"
	case SwappableConditional:
		return "SWAPPABLE-CONDITIONAL"
	case GroupLocked:
		return "GROUP-LOCKED"
	case Fixed:
		return "FIXED"
	}
	return "UNKNOWN"
}

func (m Mobility) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mobility) UnmarshalText(b []byte) error {
	for _, v := range []Mobility{SwappableFree, SwappableConditional, GroupLocked, Fixed} {
		if v.String() == string(b) {
			*m = v
			return nil
		}
	}
	*m = SwappableFree
	return nil
}

func (m Mobility) Swappable() bool {
	return m == SwappableFree || m == SwappableConditional
}

const (
	NumCriteria = 4
	MinScore    = 1
	MaxScore    = 4
)

type Criterion int

const (
	Behavior Criterion = iota
	Work
	Participation
	Attendance
)

var CriterionNames = [NumCriteria]string{"behavior", "work", "participation", "attendance"}

func (c Criterion) String() string {
	if c < 0 || int(c) >= NumCriteria {
		return "unknown"
	}
	return CriterionNames[c]
}

// Scores holds one ordinal score per criterion; 0 means unset.
type Scores [NumCriteria]int

type Student struct {
	ID           StudentID        `json:"id"`
	Class        ClassID          `json:"class"`
	Scores       Scores           `json:"scores"`
	Sex          Sex              `json:"sex"`
	Language     OptionKey        `json:"language,omitempty"`
	Option       OptionKey        `json:"option,omitempty"`
	Association  AssociationCode  `json:"association,omitempty"`
	Dissociation DissociationCode `json:"dissociation,omitempty"`
	Mobility     Mobility         `json:"mobility"`
}

func (s *Student) keys() []OptionKey {
	var keys []OptionKey
	if s.Option != "" {
		keys = append(keys, s.Option)
	}
	if s.Language != "" && s.Language != s.Option {
		keys = append(keys, s.Language)
	}
	return keys
}

func (s *Student) Fixed() bool {
	return s.Mobility == Fixed
}

type ClassGroup struct {
	Name   ClassID           `json:"name"`
	Min    int               `json:"min"`
	Max    int               `json:"max"`
	Ideal  int               `json:"ideal,omitempty"`
	Quotas map[OptionKey]int `json:"quotas,omitempty"`
}

// OptionPool maps an option or language key to the classes allowed to host it.
type OptionPool map[OptionKey][]ClassID

// BuildOptionPool derives a pool from every class quota greater than zero.
func BuildOptionPool(classes []ClassGroup) OptionPool {
	pool := OptionPool{}
	for _, c := range classes {
		for key, seats := range c.Quotas {
			if seats > 0 {
				pool[key] = append(pool[key], c.Name)
			}
		}
	}
	for key := range pool {
		slices.Sort(pool[key])
	}
	return pool
}

func (p OptionPool) Allows(key OptionKey, class ClassID) bool {
	classes, ok := p[key]
	if !ok {
		return true
	}
	return slices.Contains(classes, class)
}

// Resolve intersects the pools of every constraining key. The second result
// is false when none of the keys has a pool.
func (p OptionPool) Resolve(keys ...OptionKey) ([]ClassID, bool) {
	var out []ClassID
	constrained := false
	for _, key := range keys {
		classes, ok := p[key]
		if !ok {
			continue
		}
		if !constrained {
			out = slices.Clone(classes)
			constrained = true
			continue
		}
		out = slices.DeleteFunc(out, func(c ClassID) bool { return !slices.Contains(classes, c) })
	}
	return out, constrained
}

type DissociationMap map[ClassID]map[DissociationCode]int

func (m DissociationMap) Count(class ClassID, code DissociationCode) int {
	return m[class][code]
}

type TargetDistribution map[ClassID][NumCriteria][MaxScore + 1]int

// Input is the immutable snapshot a run starts from.
type Input struct {
	Students      []Student       `json:"students"`
	Classes       []ClassGroup    `json:"classes"`
	Pools         OptionPool      `json:"pools,omitempty"`
	Dissociations DissociationMap `json:"dissociations,omitempty"`
}
