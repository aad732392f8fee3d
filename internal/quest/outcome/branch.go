package outcome

// Tone is the register of the debrief narrative.
type Tone string

const (
	ToneCongratulate Tone = "congratulate"
	ToneNudge        Tone = "nudge"
	ToneRecover      Tone = "recover"
	ToneUrgent       Tone = "urgent"
)

// Branch is what a presentation layer needs to pick its debrief screen.
type Branch struct {
	Case        Case   `json:"case"`
	NarrativeID string `json:"narrativeId"`
	Tone        Tone   `json:"tone"`
	// Corrective is set when the user is asked to change something.
	Corrective bool `json:"corrective"`
}

// SelectBranch returns the narrative branch of a case. Unknown cases fall
// back to the neutral recovery branch.
func SelectBranch(c Case) Branch {
	b := Branch{Case: c, NarrativeID: "debrief." + string(c)}
	switch c {
	case AboveTargetNoDeficit, RiskComfortable:
		b.Tone = ToneCongratulate
	case AboveTargetWithDeficit, RiskStable:
		b.Tone, b.Corrective = ToneNudge, true
	case BelowTargetWithDeficit, RiskCritical:
		b.Tone, b.Corrective = ToneUrgent, true
	default:
		b.Tone, b.Corrective = ToneRecover, true
	}
	return b
}
