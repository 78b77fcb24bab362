// Package session sequences a listen, prepare, retell and score exercise.
package session

// Phase is the active step of a practice run.
type Phase int

const (
	// PhaseIdle means no run is in progress.
	PhaseIdle Phase = iota
	// PhaseListening is while the story is narrated.
	PhaseListening
	// PhasePrep is the silent preparation window.
	PhasePrep
	// PhaseSpeaking is while the retelling is captured.
	PhaseSpeaking
	// PhaseEvaluating is while the transcript is scored.
	PhaseEvaluating
	// PhaseResult holds the finished score until the next run.
	PhaseResult
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseListening:
		return "Listening"
	case PhasePrep:
		return "Prep"
	case PhaseSpeaking:
		return "Speaking"
	case PhaseEvaluating:
		return "Evaluating"
	case PhaseResult:
		return "Result"
	default:
		return "Unknown"
	}
}

// InProgress reports whether the phase belongs to a running cycle.
func (p Phase) InProgress() bool {
	switch p {
	case PhaseListening, PhasePrep, PhaseSpeaking, PhaseEvaluating:
		return true
	default:
		return false
	}
}
