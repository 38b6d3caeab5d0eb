package events

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestBus_Publish(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		subscribe map[Type][]error // one handler per error value
		event     Event
		wantCalls int
		wantErr   bool
	}{
		{name: "no subscribers", event: CertificateAwarded{}, wantCalls: 0},
		{
			name:      "only matching type",
			subscribe: map[Type][]error{TypeCertificateAwarded: {nil, nil}, TypeCertificateRevoked: {nil}},
			event:     CertificateAwarded{},
			wantCalls: 2,
		},
		{
			name:      "failure does not stop delivery",
			subscribe: map[Type][]error{TypeCertificateChanged: {errBoom, nil}},
			event:     CertificateChanged{},
			wantCalls: 2,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus()
			var calls int
			for typ, errs := range tt.subscribe {
				for _, err := range errs {
					err := err
					bus.Subscribe(typ, HandlerFunc(func(ctx context.Context, e Event) error {
						calls++
						return err
					}))
				}
			}

			err := bus.Publish(context.Background(), tt.event)
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("Publish() calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestBus_PublishPassesPayload(t *testing.T) {
	bus := NewBus()
	want := ExamAttemptRejected{Username: "awe", CourseKey: "course-v1:Org+C1+2021", AttemptID: "42", Reason: "suspicious"}

	var got Event
	bus.Subscribe(TypeExamAttemptRejected, HandlerFunc(func(ctx context.Context, e Event) error {
		got = e
		return nil
	}))
	if err := bus.Publish(context.Background(), want); err != nil {
		t.Fatalf("Publish() unexpected error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("handler got %+v, want %+v", got, want)
	}
}

func TestBus_PublishNil(t *testing.T) {
	if err := NewBus().Publish(context.Background(), nil); err == nil {
		t.Error("Publish(nil) expected error")
	}
}
