package solver

import "fmt"

// TargetBasis selects the class size that bucket targets are scaled by.
type TargetBasis string

const (
	// BasisCurrent scales by the size each class has when a round starts.
	BasisCurrent TargetBasis = "current"
	// BasisCapacity scales by the ideal size, or a share of the cohort
	// proportional to Max for classes without one.
	BasisCapacity TargetBasis = "capacity"
)

type Params struct {
	CriterionWeights  [NumCriteria]float64 `json:"criterion_weights" yaml:"criterion_weights"`
	ParityWeight      float64              `json:"parity_weight" yaml:"parity_weight"`
	CapacityWeight    float64              `json:"capacity_weight" yaml:"capacity_weight"`
	CapacityTolerance float64              `json:"capacity_tolerance" yaml:"capacity_tolerance"`
	TargetBasis       TargetBasis          `json:"target_basis" yaml:"target_basis"`

	MaxIterations  int `json:"max_iterations" yaml:"max_iterations"`
	MaxMoves       int `json:"max_moves" yaml:"max_moves"`
	MaxRounds      int `json:"max_rounds" yaml:"max_rounds"`
	SwapClassLimit int `json:"swap_class_limit" yaml:"swap_class_limit"`

	ExactGroupLimit   int     `json:"exact_group_limit" yaml:"exact_group_limit"`
	ExactNodeLimit    int     `json:"exact_node_limit" yaml:"exact_node_limit"`
	HeuristicRestarts int     `json:"heuristic_restarts" yaml:"heuristic_restarts"`
	ConflictWeight    float64 `json:"conflict_weight" yaml:"conflict_weight"`
	StabilityBonus    float64 `json:"stability_bonus" yaml:"stability_bonus"`

	ParityTolerance float64 `json:"parity_tolerance" yaml:"parity_tolerance"`
	ParityTieWeight float64 `json:"parity_tie_weight" yaml:"parity_tie_weight"`
	ParityMaxMoves  int     `json:"parity_max_moves" yaml:"parity_max_moves"`

	Seed int64 `json:"seed" yaml:"seed"`
}

var DefaultParams = Params{
	CriterionWeights:  [NumCriteria]float64{1, 1, 1, 1},
	ParityWeight:      1,
	CapacityWeight:    2,
	CapacityTolerance: 1,
	TargetBasis:       BasisCurrent,

	MaxIterations:  5000,
	MaxMoves:       2000,
	MaxRounds:      10,
	SwapClassLimit: 4,

	ExactGroupLimit:   6,
	ExactNodeLimit:    200000,
	HeuristicRestarts: 8,
	ConflictWeight:    1000,
	StabilityBonus:    0.5,

	ParityTolerance: 1,
	ParityTieWeight: 0.05,
	ParityMaxMoves:  200,

	Seed: 42,
}

func (p Params) Validate() error {
	for i, w := range p.CriterionWeights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidParams, Criterion(i))
		}
	}
	floats := []struct {
		name string
		v    float64
	}{
		{"parity_weight", p.ParityWeight},
		{"capacity_weight", p.CapacityWeight},
		{"capacity_tolerance", p.CapacityTolerance},
		{"conflict_weight", p.ConflictWeight},
		{"stability_bonus", p.StabilityBonus},
		{"parity_tolerance", p.ParityTolerance},
		{"parity_tie_weight", p.ParityTieWeight},
	}
	for _, f := range floats {
		if f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidParams, f.name)
		}
	}
	ints := []struct {
		name string
		v    int
	}{
		{"max_iterations", p.MaxIterations},
		{"max_moves", p.MaxMoves},
		{"max_rounds", p.MaxRounds},
		{"swap_class_limit", p.SwapClassLimit},
		{"exact_node_limit", p.ExactNodeLimit},
		{"heuristic_restarts", p.HeuristicRestarts},
		{"parity_max_moves", p.ParityMaxMoves},
	}
	for _, f := range ints {
		if f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidParams, f.name)
		}
	}
	switch p.TargetBasis {
	case "", BasisCurrent, BasisCapacity:
	default:
		return fmt.Errorf("%w: unknown target_basis %q", ErrInvalidParams, p.TargetBasis)
	}
	if p.MaxRounds == 0 {
		return fmt.Errorf("%w: max_rounds must be at least 1", ErrInvalidParams)
	}
	if p.ExactGroupLimit < 2 {
		return fmt.Errorf("%w: exact_group_limit must be at least 2", ErrInvalidParams)
	}
	return nil
}
