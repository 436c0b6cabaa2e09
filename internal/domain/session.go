package domain

import "time"

// Result is the visible outcome of a finished request.
type Result struct {
	Text string
	// Failed is set when Text is a user-facing error message rather than
	// an interpretation.
	Failed bool
}

// Session is the lifecycle state of one user's current submission.
//
// Invariants: result is set iff phase is Done; startedAt is set iff phase is
// Generating or Done; a request can only be submitted while Idle.
type Session struct {
	phase      Phase
	request    *InterpretationRequest
	startedAt  time.Time
	result     *Result
	dispatched bool
}

// NewSession returns an Idle session.
func NewSession() *Session {
	return &Session{phase: PhaseIdle}
}

func (s *Session) Phase() Phase { return s.phase }

// Request returns the current request, if any.
func (s *Session) Request() (InterpretationRequest, bool) {
	if s.request == nil {
		return InterpretationRequest{}, false
	}
	return *s.request, true
}

// StartedAt returns when the current request was submitted.
func (s *Session) StartedAt() (time.Time, bool) {
	if s.phase == PhaseIdle {
		return time.Time{}, false
	}
	return s.startedAt, true
}

// Result returns the outcome once the session is Done.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Elapsed is the time since submission, or zero while Idle.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.phase == PhaseIdle {
		return 0
	}
	return now.Sub(s.startedAt)
}

// Submit moves an Idle session to Generating.
func (s *Session) Submit(req InterpretationRequest, now time.Time) error {
	if s.phase != PhaseIdle {
		return ErrInvalidTransition
	}
	s.request = &req
	s.startedAt = now
	s.result = nil
	s.dispatched = false
	s.phase = PhaseGenerating
	return nil
}

// MarkDispatched records that the outbound call for the current request has
// been issued. It reports true only for the first call in a Generating phase.
func (s *Session) MarkDispatched() bool {
	if s.phase != PhaseGenerating || s.dispatched {
		return false
	}
	s.dispatched = true
	return true
}

// Dispatched reports whether the outbound call was issued for the current request.
func (s *Session) Dispatched() bool { return s.dispatched }

// CompleteWithResult finishes a Generating session with the model's text.
func (s *Session) CompleteWithResult(text string) error {
	return s.complete(Result{Text: text})
}

// CompleteWithError finishes a Generating session with a user-facing error message.
func (s *Session) CompleteWithError(text string) error {
	return s.complete(Result{Text: text, Failed: true})
}

func (s *Session) complete(r Result) error {
	if s.phase != PhaseGenerating {
		return ErrInvalidTransition
	}
	s.result = &r
	s.phase = PhaseDone
	return nil
}

// Reset returns the session to Idle from any phase.
func (s *Session) Reset() {
	*s = Session{phase: PhaseIdle}
}
