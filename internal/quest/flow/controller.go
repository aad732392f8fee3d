package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/internal/quest/stepgraph"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPersistence marks a completion record that was resolved but could not be
// saved. The record returned alongside it is valid.
var ErrPersistence = errors.New("completion record not saved")

// Controller holds the state of one quest run. It is owned by a single
// session and is not safe for concurrent use.
type Controller struct {
	logger *zap.Logger
	def    *definition
	runID  string
	saver  Saver
	now    func() time.Time

	pos quest.Position
	// trail holds the positions entered before pos, oldest first.
	trail     []quest.Position
	data      quest.Data
	completed bool

	record *completion.Record
	saved  bool
}

// State is a read-only view of a run.
type State struct {
	RunID              string           `json:"runId"`
	QuestID            string           `json:"questId"`
	Family             string           `json:"family"`
	Phase              quest.Phase      `json:"phase"`
	Step               quest.StepID     `json:"step"`
	Progress           float64          `json:"progress"`
	Completed          bool             `json:"completed"`
	Data               quest.Data       `json:"data"`
	SelectedStrategies []string         `json:"selectedStrategies"`
	Missing            []quest.Field    `json:"missing,omitempty"`
	Visited            []quest.Position `json:"visited,omitempty"`
}

// RunID returns the id assigned when the run was created.
func (c *Controller) RunID() string {
	return c.runID
}

// QuestID returns the quest type the run plays.
func (c *Controller) QuestID() string {
	return c.def.id
}

// Family returns the quest family of the run.
func (c *Controller) Family() string {
	return c.def.family
}

// CurrentPhase returns the phase of the current position.
func (c *Controller) CurrentPhase() quest.Phase {
	return c.pos.Phase
}

// CurrentStep returns the step of the current position.
func (c *Controller) CurrentStep() quest.StepID {
	return c.pos.Step
}

// Position returns the current (phase, step) pair.
func (c *Controller) Position() quest.Position {
	return c.pos
}

// Completed reports whether the run advanced out of DEBRIEF.
func (c *Controller) Completed() bool {
	return c.completed
}

// Data returns a copy of the accumulated data.
func (c *Controller) Data() quest.Data {
	return c.data.Clone()
}

// State returns a snapshot of the run for presentation.
func (c *Controller) State() State {
	return State{
		RunID:              c.runID,
		QuestID:            c.def.id,
		Family:             c.def.family,
		Phase:              c.pos.Phase,
		Step:               c.pos.Step,
		Progress:           c.CurrentProgress(),
		Completed:          c.completed,
		Data:               c.data.Clone(),
		SelectedStrategies: c.data.Strategies(),
		Missing:            c.MissingFields(),
		Visited:            append([]quest.Position(nil), c.trail...),
	}
}

// ValidatePatch reports whether UpdateData would accept the patch, without
// changing anything.
func (c *Controller) ValidatePatch(p quest.Patch) error {
	if v := p.MonthlyIncome; v != nil {
		if !v.IsPositive() {
			return quest.NewInputError(quest.FieldMonthlyIncome, "must be positive, got %s", v)
		}
		if v.LessThan(c.def.minimumIncome) {
			return quest.NewInputError(quest.FieldMonthlyIncome, "must be at least %s, got %s", c.def.minimumIncome, v)
		}
	}

	amounts := []struct {
		field quest.Field
		value *decimal.Decimal
	}{
		{quest.FieldFixedCharges, p.FixedCharges},
		{quest.FieldActualNeeds, p.ActualNeeds},
		{quest.FieldActualWants, p.ActualWants},
		{quest.FieldActualSavings, p.ActualSavings},
	}
	for _, a := range amounts {
		if a.value != nil && a.value.IsNegative() {
			return quest.NewInputError(a.field, "must not be negative, got %s", a.value)
		}
	}

	for _, id := range p.SelectedStrategies {
		if _, ok := c.def.params.Catalog.Lookup(id); !ok {
			return quest.NewInputError(quest.FieldSelectedStrategies, "unknown strategy %q", id)
		}
	}
	return nil
}

// UpdateData validates the patch and overlays it onto the run's data. A
// rejected patch leaves the data untouched. Nothing is recomputed.
func (c *Controller) UpdateData(p quest.Patch) error {
	if c.completed {
		return c.closedError("flow.UpdateData", "update")
	}
	if err := c.ValidatePatch(p); err != nil {
		c.logger.Debug("patch rejected",
			zap.String("op", "flow.UpdateData"),
			zap.Error(err),
		)
		return err
	}
	c.data.Merge(p)
	return nil
}

// MissingFields lists the inputs the current step requires that are still
// unset.
func (c *Controller) MissingFields() []quest.Field {
	step, err := c.def.graph.Step(c.pos.Phase, c.pos.Step)
	if err != nil {
		return nil
	}
	var missing []quest.Field
	for _, f := range step.Requires {
		if !c.data.IsSet(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// CanAdvance reports whether Advance would accept the current data.
func (c *Controller) CanAdvance() bool {
	return !c.completed && len(c.MissingFields()) == 0
}

// Advance leaves the current step. Steps that derive metrics compute the
// snapshot and persist its figures into the data first. Advancing from the
// last DEBRIEF step completes the run.
func (c *Controller) Advance() error {
	if c.completed {
		return c.closedError("flow.Advance", "advance")
	}
	step, err := c.def.graph.Step(c.pos.Phase, c.pos.Step)
	if err != nil {
		return c.transitionFailed("flow.Advance", err)
	}

	for _, f := range step.Requires {
		if !c.data.IsSet(f) {
			return quest.NewInputError(f, "is required before leaving %s", c.pos.Step)
		}
	}

	if step.Derives {
		snapshot, err := metrics.Compute(c.data, c.def.params)
		if err != nil {
			return err
		}
		c.data.Derived = snapshot.Derived()
		c.data.Derived.Corrective = outcome.SelectBranch(c.def.classifier.Classify(snapshot)).Corrective
	}

	from := c.pos
	next, done, err := c.def.graph.NextStep(c.pos.Phase, c.pos.Step, c.data, c.def.params.Catalog)
	if err != nil {
		return c.transitionFailed("flow.Advance", err)
	}
	if !done {
		c.moveTo(quest.Position{Phase: c.pos.Phase, Step: next})
	} else {
		phase, last := stepgraph.NextPhase(c.pos.Phase)
		if last {
			c.completed = true
			c.logger.Info("quest run completed",
				zap.String("op", "flow.Advance"),
				zap.Float64("progress", c.CurrentProgress()),
			)
			return nil
		}
		first, err := c.def.graph.InitialStep(phase)
		if err != nil {
			return c.transitionFailed("flow.Advance", err)
		}
		c.moveTo(quest.Position{Phase: phase, Step: first})
	}

	c.logger.Debug("advanced",
		zap.String("op", "flow.Advance"),
		zap.String("from", string(from.Phase)+"/"+string(from.Step)),
		zap.String("to", string(c.pos.Phase)+"/"+string(c.pos.Step)),
	)
	return nil
}

// Retreat returns to the position the run came from, so steps skipped going
// forward are skipped going back. Entered data is kept. Retreating from the
// first position is a no-op.
func (c *Controller) Retreat() error {
	if c.completed {
		return c.closedError("flow.Retreat", "retreat from")
	}
	if _, err := c.def.graph.Step(c.pos.Phase, c.pos.Step); err != nil {
		return c.transitionFailed("flow.Retreat", err)
	}

	if n := len(c.trail); n > 0 {
		c.pos = c.trail[n-1]
		c.trail = c.trail[:n-1]
		return nil
	}

	// Without a trail fall back to the declared order.
	prev, atStart, err := c.def.graph.PreviousStep(c.pos.Phase, c.pos.Step)
	if err != nil {
		return c.transitionFailed("flow.Retreat", err)
	}
	if !atStart {
		c.pos.Step = prev
		return nil
	}
	phase, first := stepgraph.PreviousPhase(c.pos.Phase)
	if first {
		return nil
	}
	last, err := c.def.graph.LastStep(phase)
	if err != nil {
		return c.transitionFailed("flow.Retreat", err)
	}
	c.pos = quest.Position{Phase: phase, Step: last}
	return nil
}

// JumpTo returns to a position visited earlier in this run, dropping the
// positions entered after it. Entered data is kept.
func (c *Controller) JumpTo(target quest.Position) error {
	if c.completed {
		return c.closedError("flow.JumpTo", "jump within")
	}
	if _, err := c.def.graph.Step(target.Phase, target.Step); err != nil {
		return c.transitionFailed("flow.JumpTo", err)
	}
	if target == c.pos {
		return nil
	}
	for i := len(c.trail) - 1; i >= 0; i-- {
		if c.trail[i] == target {
			c.pos = target
			c.trail = c.trail[:i]
			return nil
		}
	}
	return quest.TransitionError(target.Phase, target.Step, "step was not visited in this run")
}

// CurrentProgress returns the share of the quest done at the current step.
func (c *Controller) CurrentProgress() float64 {
	fraction, err := c.def.graph.ProgressFraction(c.pos.Phase, c.pos.Step)
	if err != nil {
		c.logger.DPanic("progress of unknown position",
			zap.String("op", "flow.CurrentProgress"),
			zap.Error(err),
		)
		return 0
	}
	return fraction
}

// Snapshot computes the metrics of the current data. It fails until the
// monthly income is known.
func (c *Controller) Snapshot() (metrics.Snapshot, error) {
	return metrics.Compute(c.data, c.def.params)
}

// Case classifies the current data.
func (c *Controller) Case() (outcome.Case, error) {
	snapshot, err := c.Snapshot()
	if err != nil {
		return "", err
	}
	return c.def.classifier.Classify(snapshot), nil
}

// Branch returns the narrative branch of the current data.
func (c *Controller) Branch() (outcome.Branch, error) {
	cs, err := c.Case()
	if err != nil {
		return outcome.Branch{}, err
	}
	return outcome.SelectBranch(cs), nil
}

// Finish resolves the completion record of a completed run and hands it to
// the saver. The record is resolved once; later calls return it again and
// retry a failed save. A save failure is reported as ErrPersistence together
// with the valid record and never reopens the run.
func (c *Controller) Finish(ctx context.Context) (completion.Record, error) {
	if !c.completed {
		return completion.Record{}, quest.TransitionError(c.pos.Phase, c.pos.Step, "quest run is not completed")
	}

	if c.record == nil {
		snapshot, err := c.Snapshot()
		if err != nil {
			return completion.Record{}, err
		}
		data := c.data.Clone()
		if !c.commitmentOffered() {
			// A commitment left behind on an abandoned path does not count.
			data.HasCommitted, data.CommitmentDecided = false, false
		}
		rec, err := c.def.resolver.Resolve(completion.Terminal{
			RunID:    c.runID,
			QuestID:  c.def.id,
			Data:     data,
			Snapshot: snapshot,
			Case:     c.def.classifier.Classify(snapshot),
		}, c.now())
		if err != nil {
			return completion.Record{}, err
		}
		c.record = &rec
	}

	if !c.saved {
		if err := c.saver.Save(ctx, *c.record); err != nil {
			c.logger.Error("failed to save completion record",
				zap.String("op", "flow.Finish"),
				zap.Error(err),
			)
			return *c.record, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		c.saved = true
		c.logger.Info("completion record saved",
			zap.String("op", "flow.Finish"),
			zap.String("case", string(c.record.Case)),
			zap.Int("xp", c.record.XPAwarded),
			zap.Int("streakDelta", c.record.StreakDelta),
			zap.String("annualizedImpact", c.record.AnnualizedImpact.StringFixed(2)),
		)
	}
	return *c.record, nil
}

// commitmentOffered reports whether the path that reached the current
// position went through a step asking for the commitment.
func (c *Controller) commitmentOffered() bool {
	path := make([]quest.Position, 0, len(c.trail)+1)
	path = append(append(path, c.trail...), c.pos)
	for _, p := range path {
		step, err := c.def.graph.Step(p.Phase, p.Step)
		if err != nil {
			continue
		}
		for _, f := range step.Requires {
			if f == quest.FieldHasCommitted {
				return true
			}
		}
	}
	return false
}

func (c *Controller) moveTo(pos quest.Position) {
	c.trail = append(c.trail, c.pos)
	c.pos = pos
}

func (c *Controller) closedError(op, action string) error {
	c.logger.Warn("operation on completed quest run",
		zap.String("op", op),
	)
	return quest.TransitionError(c.pos.Phase, c.pos.Step, "cannot "+action+" a completed quest run")
}

// transitionFailed logs a navigation request from a position the graph does
// not know. Development loggers panic here.
func (c *Controller) transitionFailed(op string, err error) error {
	c.logger.DPanic("invalid transition",
		zap.String("op", op),
		zap.String("phase", string(c.pos.Phase)),
		zap.String("step", string(c.pos.Step)),
		zap.Error(err),
	)
	return err
}
