package monitor

// inputState tracks the input-request state machine of spec.md §4.6. It is
// derived fresh from the observed flags each tick rather than trusted
// across ticks, since the transition is edge-triggered and the spec
// explicitly calls out tolerating the intermediate combined state.
type inputState int

const (
	stateIdle inputState = iota
	statePrompting
	stateDraining
)

func (s inputState) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case statePrompting:
		return "PROMPTING"
	case stateDraining:
		return "DRAINING"
	default:
		return "UNKNOWN"
	}
}

// classifyInputState maps the observed REQUESTED/AVAILABLE bits onto the
// three named states, preferring DRAINING when both are set (the
// intermediate PROMPTING→DRAINING observation §4.6 calls out).
func classifyInputState(requested, available bool) inputState {
	switch {
	case available:
		return stateDraining
	case requested:
		return statePrompting
	default:
		return stateIdle
	}
}
