package award_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/services/queue"
	"github.com/trezcool/masomo-credentials/tests"
)

func TestTasksFor(t *testing.T) {
	cert := events.Certificate{LearnerID: 1, Username: "awe", CourseKey: courseX, Mode: "honor", Status: "downloadable"}
	disabled := settings
	disabled.ProgramCertificatesEnabled = false

	tests := []struct {
		name     string
		event    events.Event
		settings award.Settings
		want     []string
	}{
		{"awarded", events.CertificateAwarded{Certificate: cert}, settings, []string{award.TaskAwardCourseCertificate, award.TaskAwardProgramCertificates}},
		{"awarded without programs", events.CertificateAwarded{Certificate: cert}, disabled, []string{award.TaskAwardCourseCertificate}},
		{"changed", events.CertificateChanged{Certificate: cert}, settings, []string{award.TaskAwardCourseCertificate}},
		{"revoked", events.CertificateRevoked{Certificate: cert}, settings, []string{award.TaskAwardCourseCertificate, award.TaskRevokeProgramCertificates}},
		{"revoked without programs", events.CertificateRevoked{Certificate: cert}, disabled, []string{award.TaskAwardCourseCertificate}},
		{"exam attempt rejected", events.ExamAttemptRejected{Username: "awe", CourseKey: courseX}, settings, []string{award.TaskInvalidateCertificate}},
		{"course config changed", events.CourseCertificateConfigChanged{CourseKey: courseX}, settings, []string{award.TaskUpdateCourseCertificateConfig}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range award.TasksFor(tt.event, tt.settings) {
				got = append(got, d.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TasksFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriggers(t *testing.T) {
	ctx := context.Background()
	q := queuesvc.NewMemoryQueue(0)
	bus := events.NewBus(events.BusWithLogger(testutil.NewLogger()))
	award.NewTriggers(q, settings, testutil.NewLogger()).Subscribe(bus)

	cert := events.Certificate{LearnerID: 1, Username: "awe", CourseKey: courseX, Mode: "honor", Status: "downloadable"}
	if err := bus.Publish(ctx, events.CertificateAwarded{Certificate: cert}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	envs := q.Enqueued()
	if len(envs) != 2 {
		t.Fatalf("enqueued = %v, want 2 tasks", q.Names())
	}
	var args award.CourseArgs
	if err := envs[0].Decode(&args); err != nil {
		t.Fatal(err)
	}
	if want := (award.CourseArgs{Username: "awe", CourseKey: courseX}); args != want {
		t.Errorf("course args = %+v, want %+v", args, want)
	}

	t.Run("enqueue failure", func(t *testing.T) {
		q.Fail(errors.New("redis down"))
		if err := bus.Publish(ctx, events.CertificateChanged{Certificate: cert}); err == nil {
			t.Error("Publish() error = nil, want enqueue failure")
		}
	})
}
