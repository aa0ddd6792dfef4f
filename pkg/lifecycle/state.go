package lifecycle

// State is the position of an orchestrator run in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateSetup
	StateInvoking
	StateReady
	StateRunning
	StateInterrupting
	StateTearingDown
	StateTerminated

	// StateAborted is entered when a forward phase fails. It absorbs every
	// later transition; shutdown hooks still run.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSetup:
		return "setup"
	case StateInvoking:
		return "invoking"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateInterrupting:
		return "interrupting"
	case StateTearingDown:
		return "tearing_down"
	case StateTerminated:
		return "terminated"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
