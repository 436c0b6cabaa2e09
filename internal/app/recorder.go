package app

import (
	"math/rand/v2"
	"time"
)

// Outcome labels how an outbound call ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeError         Outcome = "error"
)

// Recorder observes outbound calls. Implementations must be safe for concurrent use.
type Recorder interface {
	Dispatched()
	Completed(outcome Outcome, latency time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Dispatched() {}
func (nopRecorder) Completed(Outcome, time.Duration) {}

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }
