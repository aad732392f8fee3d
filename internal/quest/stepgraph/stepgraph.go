// Package stepgraph declares the fixed phase and step layout of each quest
// family and answers navigation questions about it.
package stepgraph

import (
	"github.com/iwvelando/finance-quests/internal/quest"
)

// SkipFunc reports whether a step is bypassed for the given data.
type SkipFunc func(d quest.Data, catalog quest.Catalog) bool

// Step is one screen of a quest.
type Step struct {
	ID quest.StepID
	// Requires lists the fields that must be set before leaving the step.
	Requires []quest.Field
	// Derives makes the controller compute and persist the metric snapshot
	// when the user advances past the step.
	Derives bool
	Skip    SkipFunc
}

// Graph is the ordered layout of one quest family.
type Graph struct {
	Family string
	phases map[quest.Phase][]Step
	// ordinal is the 1-based position of each step in the full traversal.
	ordinal map[quest.Position]int
	total   int
}

// New builds a graph from the steps of each phase. Every phase must have at
// least one step and step ids must be unique within a phase.
func New(family string, protocol, execution, debrief []Step) *Graph {
	g := &Graph{
		Family:  family,
		phases:  map[quest.Phase][]Step{quest.PhaseProtocol: protocol, quest.PhaseExecution: execution, quest.PhaseDebrief: debrief},
		ordinal: make(map[quest.Position]int),
	}
	for _, phase := range quest.Phases {
		if len(g.phases[phase]) == 0 {
			panic("stepgraph: phase " + string(phase) + " of " + family + " has no steps")
		}
		for _, step := range g.phases[phase] {
			pos := quest.Position{Phase: phase, Step: step.ID}
			if _, dup := g.ordinal[pos]; dup {
				panic("stepgraph: duplicate step " + string(step.ID) + " in " + family)
			}
			g.total++
			g.ordinal[pos] = g.total
		}
	}
	return g
}

// Steps returns the declared steps of a phase.
func (g *Graph) Steps(phase quest.Phase) []Step {
	return g.phases[phase]
}

// Step returns the declaration of a step.
func (g *Graph) Step(phase quest.Phase, id quest.StepID) (Step, error) {
	idx, err := g.index(phase, id)
	if err != nil {
		return Step{}, err
	}
	return g.phases[phase][idx], nil
}

// InitialStep returns the first step of a phase. Entry steps are never
// skipped.
func (g *Graph) InitialStep(phase quest.Phase) (quest.StepID, error) {
	steps, ok := g.phases[phase]
	if !ok {
		return "", quest.TransitionError(phase, "", "unknown phase")
	}
	return steps[0].ID, nil
}

// NextStep returns the step after current, evaluating skip predicates in
// declared order. done is true when the phase has no further step.
func (g *Graph) NextStep(phase quest.Phase, current quest.StepID, d quest.Data, catalog quest.Catalog) (next quest.StepID, done bool, err error) {
	idx, err := g.index(phase, current)
	if err != nil {
		return "", false, err
	}
	steps := g.phases[phase]
	for i := idx + 1; i < len(steps); i++ {
		if steps[i].Skip != nil && steps[i].Skip(d, catalog) {
			continue
		}
		return steps[i].ID, false, nil
	}
	return "", true, nil
}

// PreviousStep returns the linear predecessor of current in declared order.
// atStart is true for the first step of the phase.
func (g *Graph) PreviousStep(phase quest.Phase, current quest.StepID) (prev quest.StepID, atStart bool, err error) {
	idx, err := g.index(phase, current)
	if err != nil {
		return "", false, err
	}
	if idx == 0 {
		return "", true, nil
	}
	return g.phases[phase][idx-1].ID, false, nil
}

// ProgressFraction returns the share of the full declared traversal that is
// done once the given step is reached. Skipped steps count as passed.
func (g *Graph) ProgressFraction(phase quest.Phase, step quest.StepID) (float64, error) {
	n, ok := g.ordinal[quest.Position{Phase: phase, Step: step}]
	if !ok {
		return 0, quest.TransitionError(phase, step, "unknown step")
	}
	return float64(n) / float64(g.total), nil
}

// NextPhase returns the phase after the given one. done is true after
// DEBRIEF.
func NextPhase(phase quest.Phase) (next quest.Phase, done bool) {
	for i, p := range quest.Phases {
		if p == phase && i+1 < len(quest.Phases) {
			return quest.Phases[i+1], false
		}
	}
	return "", true
}

// PreviousPhase returns the phase before the given one. atStart is true for
// PROTOCOL.
func PreviousPhase(phase quest.Phase) (prev quest.Phase, atStart bool) {
	for i, p := range quest.Phases {
		if p == phase && i > 0 {
			return quest.Phases[i-1], false
		}
	}
	return "", true
}

// LastStep returns the final declared step of a phase.
func (g *Graph) LastStep(phase quest.Phase) (quest.StepID, error) {
	steps, ok := g.phases[phase]
	if !ok {
		return "", quest.TransitionError(phase, "", "unknown phase")
	}
	return steps[len(steps)-1].ID, nil
}

func (g *Graph) index(phase quest.Phase, id quest.StepID) (int, error) {
	steps, ok := g.phases[phase]
	if !ok {
		return 0, quest.TransitionError(phase, id, "unknown phase")
	}
	for i, s := range steps {
		if s.ID == id {
			return i, nil
		}
	}
	return 0, quest.TransitionError(phase, id, "unknown step")
}
