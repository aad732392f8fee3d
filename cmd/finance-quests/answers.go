package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/finance-quests/internal/quest"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/flow"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/output"
	"gopkg.in/yaml.v3"
)

// maxAdvances bounds a scripted run; every quest graph is far shorter.
const maxAdvances = 64

// answerScript plays one quest from a file. Answers are merged in order
// before the run is walked to completion.
type answerScript struct {
	QuestType string        `yaml:"questType"`
	Answers   []quest.Patch `yaml:"answers"`
}

func loadAnswers(path string) (answerScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return answerScript{}, fmt.Errorf("failed to read answers file: %w", err)
	}

	var script answerScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return answerScript{}, fmt.Errorf("failed to parse answers file: %w", err)
	}
	if script.QuestType == "" {
		return answerScript{}, fmt.Errorf("answers file %s does not name a questType", path)
	}
	return script, nil
}

// playAnswers runs the script through a fresh quest run and finishes it. A
// record is returned alongside a persistence error.
func playAnswers(ctx context.Context, engine *flow.Engine, script answerScript) (completion.Record, error) {
	ctrl, err := engine.CreateQuestFlow(script.QuestType, nil)
	if err != nil {
		return completion.Record{}, err
	}

	for i, patch := range script.Answers {
		if err := ctrl.UpdateData(patch); err != nil {
			return completion.Record{}, fmt.Errorf("answer %d: %w", i+1, err)
		}
	}

	for n := 0; !ctrl.Completed(); n++ {
		if n == maxAdvances {
			return completion.Record{}, fmt.Errorf("quest %s did not complete after %d steps", script.QuestType, maxAdvances)
		}
		if err := ctrl.Advance(); err != nil {
			return completion.Record{}, fmt.Errorf("step %s/%s: %w", ctrl.CurrentPhase(), ctrl.CurrentStep(), err)
		}
	}

	return ctrl.Finish(ctx)
}

func writeRecords(w io.Writer, records []completion.Record, outputFormat string) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, records)
	case constants.OutputFormatJSON:
		return output.JSONFormat(w, records)
	}
	output.PrettyFormat(w, records)
	return nil
}
