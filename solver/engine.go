package solver

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseGrouping  Phase = "grouping"
	PhaseSearch    Phase = "search"
	PhaseConflicts Phase = "conflicts"
	PhaseParity    Phase = "parity"
)

type PhaseReport struct {
	Round           int     `json:"round"`
	Phase           Phase   `json:"phase"`
	ObjectiveBefore float64 `json:"objective_before"`
	ObjectiveAfter  float64 `json:"objective_after"`
	Moves           int     `json:"moves"`
}

// GroupIssue is an association group that could not be gathered in one class.
type GroupIssue struct {
	Code     AssociationCode `json:"code"`
	Students []StudentID     `json:"students"`
	Classes  []ClassID       `json:"classes"`
}

type Summary struct {
	Termination Termination `json:"termination"`
	Rounds      int         `json:"rounds"`
	Iterations  int         `json:"iterations"`
	TotalMoves  int         `json:"total_moves"`

	Transfers     int `json:"transfers"`
	Swaps         int `json:"swaps"`
	GroupMoves    int `json:"group_moves"`
	ConflictMoves int `json:"conflict_moves"`
	ParityMoves   int `json:"parity_moves"`

	ObjectiveBefore float64 `json:"objective_before"`
	ObjectiveAfter  float64 `json:"objective_after"`

	Phases      []PhaseReport    `json:"phases"`
	Moves       []Move           `json:"moves"`
	Conflicts   []Conflict       `json:"conflicts"`
	Unplaceable []GroupIssue     `json:"unplaceable"`
	Mobility    map[Mobility]int `json:"mobility"`
}

type Result struct {
	Assignment map[StudentID]ClassID `json:"assignment"`
	Students   []Student             `json:"students"`
	Targets    TargetDistribution    `json:"targets"`
	Summary    Summary               `json:"summary"`
}

type Engine struct {
	params Params
	rng    *rand.Rand
	log    *zap.Logger
}

type Option func(*Engine)

// WithRand injects the random source. Without it every run seeds a fresh
// source from Params.Seed, so repeated runs are identical.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func New(params Params, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{params: params, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run balances one snapshot. Input errors are returned before anything
// moves; every other outcome is described by the summary.
func (e *Engine) Run(in Input) (*Result, error) {
	st, err := newState(in, e.params)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	rng := e.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(e.params.Seed))
	}
	r := &runner{st: st, params: e.params, rng: rng, log: e.log}
	r.sum.ObjectiveBefore = st.objective()
	r.sum.Mobility = map[Mobility]int{}
	for _, m := range st.mobility {
		r.sum.Mobility[m]++
	}
	e.log.Info("run started",
		zap.Int("students", len(st.students)),
		zap.Int("classes", len(st.classes)),
		zap.Float64("objective", r.sum.ObjectiveBefore))

	phases := []struct {
		name Phase
		run  func() bool
	}{
		{PhaseGrouping, r.consolidateGroups},
		{PhaseSearch, r.search},
		{PhaseConflicts, r.resolveConflicts},
		{PhaseParity, r.balanceParity},
	}
	r.sum.Termination = Capped
rounds:
	for round := 1; round <= e.params.MaxRounds; round++ {
		r.round = round
		r.sum.Rounds = round
		if round > 1 {
			st.retarget()
		}
		start := r.sum.TotalMoves
		for _, p := range phases {
			before, moves := st.objective(), r.sum.TotalMoves
			capped := p.run()
			report := PhaseReport{
				Round:           round,
				Phase:           p.name,
				ObjectiveBefore: before,
				ObjectiveAfter:  st.objective(),
				Moves:           r.sum.TotalMoves - moves,
			}
			r.sum.Phases = append(r.sum.Phases, report)
			e.log.Info("phase done",
				zap.Int("round", round),
				zap.String("phase", string(p.name)),
				zap.Int("moves", report.Moves),
				zap.Float64("objective", report.ObjectiveAfter))
			if capped {
				break rounds
			}
		}
		if r.sum.TotalMoves == start {
			r.sum.Termination = Converged
			break
		}
	}

	r.sum.ObjectiveAfter = st.objective()
	r.sum.Conflicts = st.conflicts()
	for g, grp := range st.groups {
		if _, together := st.groupClass(g); together {
			continue
		}
		issue := GroupIssue{Code: grp.code, Students: st.ids(grp.members...)}
		for _, m := range grp.members {
			issue.Classes = append(issue.Classes, st.classes[st.assign[m]].Name)
		}
		r.sum.Unplaceable = append(r.sum.Unplaceable, issue)
	}
	e.log.Info("run finished",
		zap.Stringer("termination", r.sum.Termination),
		zap.Int("moves", r.sum.TotalMoves),
		zap.Float64("objective", r.sum.ObjectiveAfter),
		zap.Float64("parity", st.parityCost()),
		zap.Int("conflicts", len(r.sum.Conflicts)),
		zap.Int("unplaceable", len(r.sum.Unplaceable)))

	res := &Result{
		Assignment: map[StudentID]ClassID{},
		Students:   st.snapshot(),
		Targets:    st.targetDistribution(),
		Summary:    r.sum,
	}
	for _, s := range res.Students {
		res.Assignment[s.ID] = s.Class
	}
	return res, nil
}
