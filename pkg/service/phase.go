package service

// Phase tags the part of the lifecycle a task or an error belongs to.
// The values double as the "event" field of lifecycle log entries.
type Phase string

const (
	PhaseSetup      Phase = "lifecycle.setup"
	PhaseInvoker    Phase = "lifecycle.invoker"
	PhaseHandler    Phase = "lifecycle.handler"
	PhaseRegister   Phase = "discovery.register"
	PhaseReady      Phase = "lifecycle.initialized"
	PhaseInterrupt  Phase = "lifecycle.interrupt"
	PhaseDeregister Phase = "discovery.deregister"
	PhaseTeardown   Phase = "lifecycle.teardown"
)

// Fatal reports whether failures in this phase fail the run.
func (p Phase) Fatal() bool {
	switch p {
	case PhaseSetup, PhaseInvoker, PhaseHandler, PhaseRegister, PhaseReady:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	return string(p)
}
