// Package task holds the task envelope, the explicit task Result and the retry policy applied by queue workers.
package task

import (
	"fmt"
	"time"
)

// Outcome is how a task invocation ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetry
	OutcomeAbort
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeAbort:
		return "abort"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is returned by task handlers; queue adapters turn it into scheduling.
type Result struct {
	Outcome Outcome
	Delay   time.Duration
	Reason  string
	// Failed lists the targets (program UUIDs, course keys) that failed in this invocation.
	Failed []string
}

func Success() Result {
	return Result{Outcome: OutcomeSuccess}
}

func RetryAfter(delay time.Duration, reason string, failed ...string) Result {
	return Result{Outcome: OutcomeRetry, Delay: delay, Reason: reason, Failed: failed}
}

// Abort ends the task for good; retrying could not fix it.
func Abort(reason string) Result {
	return Result{Outcome: OutcomeAbort, Reason: reason}
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeRetry:
		return fmt.Sprintf("retry in %s: %s", r.Delay, r.Reason)
	case OutcomeAbort:
		return "abort: " + r.Reason
	}
	return r.Outcome.String()
}

// Backoff is the exponential retry delay for an attempt: 2^attempt seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}
