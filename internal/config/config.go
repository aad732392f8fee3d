// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for finance-quests.
type Configuration struct {
	Logging     LoggingConfig          `yaml:"logging,omitempty" mapstructure:"logging"`
	Output      OutputConfig           `yaml:"output,omitempty" mapstructure:"output"`
	Persistence PersistenceConfig      `yaml:"persistence,omitempty" mapstructure:"persistence"`
	Quests      map[string]QuestConfig `yaml:"quests" mapstructure:"quests"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// PersistenceConfig selects where completion records go.
type PersistenceConfig struct {
	Driver string `yaml:"driver,omitempty" mapstructure:"driver"` // none, memory, sqlite
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
}

// QuestConfig is the static configuration of one quest type.
type QuestConfig struct {
	Title          string               `yaml:"title,omitempty" mapstructure:"title"`
	Family         string               `yaml:"family" mapstructure:"family"`
	MinimumIncome  float64              `yaml:"minimumIncome,omitempty" mapstructure:"minimumIncome"`
	Proportions    ProportionsConfig    `yaml:"proportions,omitempty" mapstructure:"proportions"`
	RiskThresholds RiskThresholdsConfig `yaml:"riskThresholds,omitempty" mapstructure:"riskThresholds"`
	Classification ClassificationConfig `yaml:"classification,omitempty" mapstructure:"classification"`
	StreakRule     string               `yaml:"streakRule,omitempty" mapstructure:"streakRule"`
	Strategies     []StrategyConfig     `yaml:"strategies,omitempty" mapstructure:"strategies"`
	Rewards        []RewardConfig       `yaml:"rewards" mapstructure:"rewards"`
}

// ProportionsConfig is the envelope split of income.
type ProportionsConfig struct {
	Needs   float64 `yaml:"needs" mapstructure:"needs"`
	Wants   float64 `yaml:"wants" mapstructure:"wants"`
	Savings float64 `yaml:"savings" mapstructure:"savings"`
}

// RiskThresholdsConfig holds the ascending lower bounds of the risk tiers.
type RiskThresholdsConfig struct {
	Caution     float64 `yaml:"caution" mapstructure:"caution"`
	Stable      float64 `yaml:"stable" mapstructure:"stable"`
	Comfortable float64 `yaml:"comfortable" mapstructure:"comfortable"`
}

// ClassificationConfig tunes the budget outcome classifier.
type ClassificationConfig struct {
	SavingsTargetRatio float64 `yaml:"savingsTargetRatio,omitempty" mapstructure:"savingsTargetRatio"`
	DeficitTolerance   float64 `yaml:"deficitTolerance,omitempty" mapstructure:"deficitTolerance"`
}

// StrategyConfig is one strategy catalog entry.
type StrategyConfig struct {
	ID             string  `yaml:"id" mapstructure:"id"`
	Label          string  `yaml:"label,omitempty" mapstructure:"label"`
	MonthlyImpact  float64 `yaml:"monthlyImpact,omitempty" mapstructure:"monthlyImpact"`
	Protection     bool    `yaml:"protection,omitempty" mapstructure:"protection"`
	RequiresAction bool    `yaml:"requiresAction,omitempty" mapstructure:"requiresAction"`
}

// RewardConfig is one reward table row. Committed left empty matches both
// answers.
type RewardConfig struct {
	Case      string `yaml:"case" mapstructure:"case"`
	Committed *bool  `yaml:"committed,omitempty" mapstructure:"committed"`
	XP        int    `yaml:"xp" mapstructure:"xp"`
	Impact    string `yaml:"impact,omitempty" mapstructure:"impact"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	v.SetEnvPrefix("QUESTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	// Env overrides only reach keys viper was asked about explicitly.
	configuration.Logging.Level = v.GetString("logging.level")
	configuration.Persistence.Driver = v.GetString("persistence.driver")
	configuration.Persistence.Path = v.GetString("persistence.path")

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills in values a quest type may leave out.
func (c *Configuration) ApplyDefaults() {
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = constants.StoreDriverNone
	}
	for id, q := range c.Quests {
		if q.MinimumIncome == 0 {
			q.MinimumIncome = constants.DefaultMinimumIncome
		}
		if q.Proportions == (ProportionsConfig{}) {
			q.Proportions = ProportionsConfig{
				Needs:   constants.DefaultNeedsProportion,
				Wants:   constants.DefaultWantsProportion,
				Savings: constants.DefaultSavingsProportion,
			}
		}
		if q.RiskThresholds == (RiskThresholdsConfig{}) {
			q.RiskThresholds = RiskThresholdsConfig{
				Caution:     constants.DefaultCautionThreshold,
				Stable:      constants.DefaultStableThreshold,
				Comfortable: constants.DefaultComfortableThreshold,
			}
		}
		if q.Classification.SavingsTargetRatio == 0 {
			q.Classification.SavingsTargetRatio = 1
		}
		if q.StreakRule == "" {
			q.StreakRule = constants.StreakOnCommitment
		}
		c.Quests[id] = q
	}
}

// QuestIDs returns the configured quest type ids in sorted order.
func (c *Configuration) QuestIDs() []string {
	ids := make([]string, 0, len(c.Quests))
	for id := range c.Quests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
