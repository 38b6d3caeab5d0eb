package task

import "time"

// Action is what a queue does with an envelope once its handler returned.
type Action int

const (
	ActionAck Action = iota
	ActionReschedule
	ActionDrop
	ActionDeadLetter
)

func (a Action) String() string {
	return [...]string{"ack", "reschedule", "drop", "dead-letter"}[a]
}

type Decision struct {
	Action Action
	Delay  time.Duration
	Reason string
	Failed []string
}

// Resolve applies the retry budget to a handler's Result.
// A retry is granted while fewer than MaxAttempts retries were made; past that the envelope is dead-lettered.
func Resolve(env Envelope, res Result) Decision {
	switch res.Outcome {
	case OutcomeSuccess:
		return Decision{Action: ActionAck}
	case OutcomeAbort:
		return Decision{Action: ActionDrop, Reason: res.Reason}
	}

	maxAttempts := env.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if env.Attempt >= maxAttempts {
		return Decision{Action: ActionDeadLetter, Reason: res.Reason, Failed: res.Failed}
	}
	delay := res.Delay
	if delay < 0 {
		delay = 0
	}
	return Decision{Action: ActionReschedule, Delay: delay, Reason: res.Reason, Failed: res.Failed}
}
