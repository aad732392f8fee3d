// Package flow runs quests: the Engine turns the quest configuration into
// per-type definitions once, and each Controller drives one run through its
// step graph.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/finance-quests/internal/config"
	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/metrics"
	"github.com/iwvelando/finance-quests/internal/quest/outcome"
	"github.com/iwvelando/finance-quests/internal/quest/stepgraph"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnknownQuestType is returned when a run is requested for a quest type
// that is not configured.
var ErrUnknownQuestType = errors.New("unknown quest type")

// Saver receives completion records. store.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, rec completion.Record) error
}

type noopSaver struct{}

func (noopSaver) Save(context.Context, completion.Record) error { return nil }

// QuestType describes a configured quest type.
type QuestType struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Family        string           `json:"family"`
	MinimumIncome decimal.Decimal  `json:"minimumIncome"`
	Strategies    []quest.Strategy `json:"strategies,omitempty"`
	Steps         []quest.Position `json:"steps"`
}

type definition struct {
	id            string
	title         string
	family        string
	graph         *stepgraph.Graph
	params        metrics.Params
	classifier    outcome.Classifier
	resolver      completion.Resolver
	minimumIncome decimal.Decimal
}

// Engine creates quest runs. It is safe for concurrent use; the controllers
// it returns are not.
type Engine struct {
	logger      *zap.Logger
	definitions map[string]*definition
	saver       Saver
	now         func() time.Time
	newID       func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSaver sets the persistence port completion records are handed to.
func WithSaver(s Saver) Option {
	return func(e *Engine) {
		if s != nil {
			e.saver = s
		}
	}
}

// WithClock fixes the time source used to stamp completion records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine validates the configuration and builds every quest type
// definition. Any incomplete quest type fails here rather than mid-run.
func NewEngine(logger *zap.Logger, conf *config.Configuration, opts ...Option) (*Engine, error) {
	if conf == nil {
		return nil, fmt.Errorf("%w: configuration cannot be nil", quest.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		logger:      logger,
		definitions: make(map[string]*definition, len(conf.Quests)),
		saver:       noopSaver{},
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, id := range conf.QuestIDs() {
		def, err := buildDefinition(id, conf.Quests[id])
		if err != nil {
			return nil, err
		}
		e.definitions[id] = def
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn(warning, zap.String("op", "flow.NewEngine"))
	}
	logger.Debug("quest engine ready",
		zap.String("op", "flow.NewEngine"),
		zap.Strings("questTypes", conf.QuestIDs()),
	)
	return e, nil
}

func buildDefinition(id string, q config.QuestConfig) (*definition, error) {
	graph, ok := stepgraph.ForFamily(q.Family)
	if !ok {
		return nil, quest.ConfigError(id, "no step graph for family %q", q.Family)
	}

	table, err := q.ToRewardTable(id)
	if err != nil {
		return nil, err
	}
	classifier := q.ToClassifier()
	if missing := table.Missing(classifier.Cases()); len(missing) > 0 {
		return nil, quest.ConfigError(id, "reward table has no entry for %s", strings.Join(missing, ", "))
	}

	return &definition{
		id:     id,
		title:  q.Title,
		family: q.Family,
		graph:  graph,
		params: metrics.Params{
			ChargesField: stepgraph.ChargesField(q.Family),
			Thresholds:   q.ToThresholds(),
			Proportions:  q.ToProportions(),
			Catalog:      q.ToCatalog(),
		},
		classifier: classifier,
		resolver: completion.Resolver{
			Family:     q.Family,
			Table:      table,
			StreakRule: q.StreakRule,
		},
		minimumIncome: q.MinimumIncomeAmount(),
	}, nil
}

// QuestTypes lists the configured quest types sorted by id.
func (e *Engine) QuestTypes() []QuestType {
	types := make([]QuestType, 0, len(e.definitions))
	for _, def := range e.definitions {
		qt := QuestType{
			ID:            def.id,
			Title:         def.title,
			Family:        def.family,
			MinimumIncome: def.minimumIncome,
		}
		ids := make([]string, 0, len(def.params.Catalog))
		for id := range def.params.Catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			qt.Strategies = append(qt.Strategies, def.params.Catalog[id])
		}
		for _, phase := range quest.Phases {
			for _, step := range def.graph.Steps(phase) {
				qt.Steps = append(qt.Steps, quest.Position{Phase: phase, Step: step.ID})
			}
		}
		types = append(types, qt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

// CreateQuestFlow starts a new run of a quest type at the first PROTOCOL
// step. An initial patch is validated and merged before the run is returned.
func (e *Engine) CreateQuestFlow(questTypeID string, initial *quest.Patch) (*Controller, error) {
	def, ok := e.definitions[questTypeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuestType, questTypeID)
	}

	first, err := def.graph.InitialStep(quest.PhaseProtocol)
	if err != nil {
		return nil, err
	}

	runID := e.newID()
	c := &Controller{
		logger: e.logger.With(zap.String("runId", runID), zap.String("questId", def.id)),
		def:    def,
		runID:  runID,
		saver:  e.saver,
		now:    e.now,
		pos:    quest.Position{Phase: quest.PhaseProtocol, Step: first},
	}

	if initial != nil {
		if err := c.UpdateData(*initial); err != nil {
			return nil, err
		}
	}

	c.logger.Info("quest run created", zap.String("op", "flow.CreateQuestFlow"))
	return c, nil
}
