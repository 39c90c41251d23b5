package core

// Action is the verifier's classification of an agent output.
type Action string

const (
	// ActionPass indicates the output cleared the pass threshold.
	ActionPass Action = "pass"
	// ActionFlag indicates the output warrants review but is returned.
	ActionFlag Action = "flag"
	// ActionBlock indicates the output must not be used.
	ActionBlock Action = "block"
)

// Valid reports whether a is one of the three known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionPass, ActionFlag, ActionBlock:
		return true
	default:
		return false
	}
}
