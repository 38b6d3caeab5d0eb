package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultMaxAttempts = 11

type (
	// Descriptor is a request to run a task: what triggers and batch drivers enqueue.
	Descriptor struct {
		Name      string
		Args      interface{}
		Countdown time.Duration
	}

	// Envelope is a task as persisted by the queue.
	Envelope struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Args        json.RawMessage `json:"args"`
		Attempt     int             `json:"attempt"` // retries already made
		MaxAttempts int             `json:"max_attempts"`
		ETA         time.Time       `json:"eta"`
		EnqueuedAt  time.Time       `json:"enqueued_at"`
		LastError   string          `json:"last_error,omitempty"`
	}
)

func NewEnvelope(d Descriptor, maxAttempts int, now time.Time) (Envelope, error) {
	if d.Name == "" {
		return Envelope{}, errors.New("task name required")
	}
	args, err := json.Marshal(d.Args)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encoding %s args", d.Name)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	now = now.UTC()
	return Envelope{
		ID:          uuid.NewString(),
		Name:        d.Name,
		Args:        args,
		MaxAttempts: maxAttempts,
		ETA:         now.Add(d.Countdown),
		EnqueuedAt:  now,
	}, nil
}

// Decode unmarshals the envelope's arguments into v.
func (e Envelope) Decode(v interface{}) error {
	return errors.Wrapf(json.Unmarshal(e.Args, v), "decoding %s args", e.Name)
}

// Retry returns the envelope of the next attempt, due after delay.
func (e Envelope) Retry(delay time.Duration, lastErr string, now time.Time) Envelope {
	next := e
	next.Attempt++
	next.ETA = now.UTC().Add(delay)
	next.LastError = lastErr
	return next
}
