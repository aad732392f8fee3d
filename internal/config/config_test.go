package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/pkg/constants"
)

const minimalYAML = `
logging:
  level: debug
quests:
  tiny-budget:
    family: budget
    rewards:
      - case: above-target-no-deficit
        xp: 10
`

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Example config file",
			configPath: filepath.Join("..", "..", constants.ExampleConfigFile),
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join("..", "..", constants.ExampleConfigFile))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if err := conf.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if got := conf.QuestIDs(); strings.Join(got, ",") != "budget-split,overdraft-risk" {
		t.Errorf("QuestIDs() = %v, expected [budget-split overdraft-risk]", got)
	}

	risk := conf.Quests["overdraft-risk"]
	if len(risk.Strategies) != 5 {
		t.Errorf("overdraft-risk strategies = %d, expected 5", len(risk.Strategies))
	}
	if !risk.Strategies[0].RequiresAction {
		t.Errorf("negotiate-overdraft requiresAction = false, expected true")
	}

	budget := conf.Quests["budget-split"]
	if len(budget.Rewards) != 7 {
		t.Errorf("budget-split rewards = %d, expected 7", len(budget.Rewards))
	}
	if budget.Rewards[0].Committed != nil {
		t.Errorf("first budget reward committed = %v, expected wildcard", *budget.Rewards[0].Committed)
	}
	if budget.Rewards[1].Committed == nil || !*budget.Rewards[1].Committed {
		t.Errorf("second budget reward should be restricted to committed runs")
	}
}

func TestLoadConfigurationFromReaderAppliesDefaults(t *testing.T) {
	conf, err := LoadConfigurationFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if conf.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, expected debug", conf.Logging.Level)
	}
	if conf.Persistence.Driver != constants.StoreDriverNone {
		t.Errorf("Persistence.Driver = %q, expected %q", conf.Persistence.Driver, constants.StoreDriverNone)
	}

	q := conf.Quests["tiny-budget"]
	if q.MinimumIncome != constants.DefaultMinimumIncome {
		t.Errorf("MinimumIncome = %v, expected %v", q.MinimumIncome, constants.DefaultMinimumIncome)
	}
	if q.Proportions.Savings != constants.DefaultSavingsProportion {
		t.Errorf("Proportions.Savings = %v, expected %v", q.Proportions.Savings, constants.DefaultSavingsProportion)
	}
	if q.RiskThresholds.Stable != constants.DefaultStableThreshold {
		t.Errorf("RiskThresholds.Stable = %v, expected %v", q.RiskThresholds.Stable, constants.DefaultStableThreshold)
	}
	if q.StreakRule != constants.StreakOnCommitment {
		t.Errorf("StreakRule = %q, expected %q", q.StreakRule, constants.StreakOnCommitment)
	}
	if q.Classification.SavingsTargetRatio != 1 {
		t.Errorf("SavingsTargetRatio = %v, expected 1", q.Classification.SavingsTargetRatio)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("QUESTS_PERSISTENCE_DRIVER", constants.StoreDriverMemory)
	t.Setenv("QUESTS_LOGGING_LEVEL", "warn")

	conf, err := LoadConfigurationFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if conf.Persistence.Driver != constants.StoreDriverMemory {
		t.Errorf("Persistence.Driver = %q, expected %q", conf.Persistence.Driver, constants.StoreDriverMemory)
	}
	if conf.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, expected warn", conf.Logging.Level)
	}
}

func TestLoadConfigurationFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quests.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if _, ok := conf.Quests["tiny-budget"]; !ok {
		t.Errorf("quest tiny-budget missing after load")
	}
}

func TestLoadConfigurationInvalidYAML(t *testing.T) {
	if _, err := LoadConfigurationFromReader(strings.NewReader("quests: [unclosed")); err == nil {
		t.Errorf("LoadConfigurationFromReader() expected error for malformed YAML")
	}
}

func TestDefaultConfiguration(t *testing.T) {
	conf := DefaultConfiguration()

	if err := conf.Validate(); err != nil {
		t.Fatalf("DefaultConfiguration().Validate() error = %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("DefaultConfiguration() produced warnings: %v", warnings)
	}

	for _, id := range conf.QuestIDs() {
		if _, err := conf.Quests[id].ToRewardTable(id); err != nil {
			t.Errorf("ToRewardTable(%s) error = %v", id, err)
		}
	}
}

func TestValidateRejectsEmptyConfiguration(t *testing.T) {
	conf := &Configuration{}
	if err := conf.Validate(); !errors.Is(err, quest.ErrConfiguration) {
		t.Errorf("Validate() = %v, expected ErrConfiguration", err)
	}
}
