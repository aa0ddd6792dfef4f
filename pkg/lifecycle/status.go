package lifecycle

import (
	"errors"
	"sync"
)

// errFailed is recorded when Fail is called without a cause.
var errFailed = errors.New("service run failed")

// ExitStatus is the process-wide outcome shared by every orchestrator run
// of a launcher. Only the first failure is kept.
type ExitStatus struct {
	mu     sync.Mutex
	err    error
	failed bool
}

// Fail records err as the cause of failure. It reports whether this was
// the first failure.
func (s *ExitStatus) Fail(err error) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return false
	}
	if err == nil {
		err = errFailed
	}
	s.err = err
	s.failed = true
	return true
}

// Failed reports whether any run failed.
func (s *ExitStatus) Failed() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Err returns the first recorded failure.
func (s *ExitStatus) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Code returns the process exit code: 1 after a failure, 0 otherwise.
func (s *ExitStatus) Code() int {
	if s.Failed() {
		return 1
	}
	return 0
}

// Reset clears a recorded failure. The launcher calls it before restarting
// after a successful reload.
func (s *ExitStatus) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.err = nil
	s.failed = false
	s.mu.Unlock()
}
