package domain

// ActionOutcome classifies one amplify attempt against a candidate.
type ActionOutcome int

const (
	OutcomeFailed ActionOutcome = iota
	OutcomeAmplified
	OutcomeAlreadyAmplified
)

func (o ActionOutcome) String() string {
	switch o {
	case OutcomeAmplified:
		return "amplified"
	case OutcomeAlreadyAmplified:
		return "already_amplified"
	default:
		return "failed"
	}
}
